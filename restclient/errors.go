// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"fmt"
	"net/http"
)

// ErrorHTTP is returned when the remote answers with a non-success
// status.
type ErrorHTTP struct {
	// Op describes the failed operation.
	Op string

	// StatusCode is the numeric HTTP status.
	StatusCode int

	// Status is the status text, such as "Not Found".
	Status string
}

func (e ErrorHTTP) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Status)
}

// HTTPStatus returns a fixed 502 Bad Gateway status; the failure is
// the upstream's, not the caller's.
func (e ErrorHTTP) HTTPStatus() int {
	return http.StatusBadGateway
}

// ErrNetwork is returned when a request to the remote could not be
// sent or its response could not be read.
type ErrNetwork struct {
	Op  string
	Err error
}

func (e ErrNetwork) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying transport error.
func (e ErrNetwork) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 502 Bad Gateway status.
func (e ErrNetwork) HTTPStatus() int {
	return http.StatusBadGateway
}

type errBadBase struct {
	URL string
}

func (e errBadBase) Error() string {
	return fmt.Sprintf("Invalid remote base URL %q", e.URL)
}
