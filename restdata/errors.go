// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/diffeo/go-testcache/testcache"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// Unwrap returns the embedded error.
func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// Unwrap returns the embedded error.
func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

// ErrUnknownAction is returned for a message whose action is not
// recognized.
type ErrUnknownAction struct {
	Action string
}

func (e ErrUnknownAction) Error() string {
	return fmt.Sprintf("Unknown action %q", e.Action)
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrUnknownAction) HTTPStatus() int {
	return http.StatusBadRequest
}

// well-known errors and their codes
var errorCodes = []struct {
	Err    error
	Code   string
	Status int
}{
	{testcache.ErrNotConfigured, "ErrNotConfigured", http.StatusServiceUnavailable},
	{testcache.ErrNoTestRunKey, "ErrNoTestRunKey", http.StatusBadRequest},
	{testcache.ErrNoAttachmentID, "ErrNoAttachmentID", http.StatusBadRequest},
	{testcache.ErrBadURL, "ErrBadURL", http.StatusBadRequest},
	{testcache.ErrUnauthorized, "ErrUnauthorized", http.StatusBadGateway},
}

// StatusOf returns the HTTP status code that err should be reported
// with.
func StatusOf(err error) int {
	for _, known := range errorCodes {
		if errors.Is(err, known.Err) {
			return known.Status
		}
	}
	var status ErrorStatus
	if errors.As(err, &status) {
		return status.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// FromError populates an ErrorResponse based on an error value.  The
// well-known testcache errors get a Code naming them.
func (e *ErrorResponse) FromError(err error) {
	e.Error = err.Error()
	for _, known := range errorCodes {
		if errors.Is(err, known.Err) {
			e.Code = known.Code
			return
		}
	}
}

// FromPanic populates an error response based on a panic.  Typical use
// is:
//
//     defer func() {
//         if obj := recovered(); obj != nil {
//             resp := restdata.ErrorResponse{}
//             resp.FromPanic(obj)
//             // write resp out as makes sense
//         }
//    }
func (e *ErrorResponse) FromPanic(obj interface{}) {
	e.Code = "panic"
	if recoveredError, isError := obj.(error); isError {
		e.Error = recoveredError.Error()
	} else {
		e.Error = fmt.Sprintf("%+v", obj)
	}
	var stack [4096]byte
	len := runtime.Stack(stack[:], false)
	e.Stack = string(stack[:len])
}
