// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/diffeo/go-testcache/testcache"
	"github.com/stretchr/testify/assert"
)

type gatewayError struct{}

func (gatewayError) Error() string   { return "upstream failed" }
func (gatewayError) HTTPStatus() int { return http.StatusBadGateway }

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(testcache.ErrNotConfigured))
	assert.Equal(t, http.StatusBadRequest, StatusOf(testcache.ErrBadURL))
	assert.Equal(t, http.StatusBadRequest, StatusOf(fmt.Errorf("settings: %w", testcache.ErrBadURL)))
	assert.Equal(t, http.StatusNotFound, StatusOf(ErrNotFound{Err: errors.New("x")}))
	assert.Equal(t, http.StatusBadRequest, StatusOf(ErrUnknownAction{Action: "fly"}))
	assert.Equal(t, http.StatusBadGateway, StatusOf(gatewayError{}))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestFromError(t *testing.T) {
	var resp ErrorResponse
	resp.FromError(testcache.ErrNotConfigured)
	assert.Equal(t, "ErrNotConfigured", resp.Code)
	assert.Equal(t, testcache.ErrNotConfigured.Error(), resp.Error)

	resp = ErrorResponse{}
	resp.FromError(fmt.Errorf("settings: %w", testcache.ErrBadURL))
	assert.Equal(t, "ErrBadURL", resp.Code)

	resp = ErrorResponse{}
	resp.FromError(errors.New("Failed to fetch attachments: 500 Internal Server Error"))
	assert.Equal(t, "", resp.Code)
	assert.Equal(t, "Failed to fetch attachments: 500 Internal Server Error", resp.Error)
}

func TestFromPanic(t *testing.T) {
	var resp ErrorResponse
	resp.FromPanic("oops")
	assert.Equal(t, "panic", resp.Code)
	assert.Equal(t, "oops", resp.Error)
	assert.NotEmpty(t, resp.Stack)
}
