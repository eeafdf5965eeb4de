// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic REST client code.

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/jtacoma/uritemplates"
	"github.com/ugorji/go/codec"
)

// jsonHandle returns the codec settings for remote responses.
// Untyped objects decode as string-keyed maps so they re-encode as
// the same JSON.
func jsonHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

// template expands a URI template relative to base.  base must end
// in a slash for its path to be kept.
func template(base *url.URL, tmpl string, vars map[string]interface{}) (*url.URL, error) {
	// Build the template object
	t, err := uritemplates.Parse(tmpl)
	if err != nil {
		return nil, err
	}

	// Expand the template to produce a string
	expanded, err := t.Expand(vars)
	if err != nil {
		return nil, err
	}

	// Return the parsed URL of the result, relative to the base
	return base.Parse(expanded)
}

// parseBase parses a remote base URL, making it usable as the base of
// relative references.
func parseBase(baseURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errBadBase{baseURL}
	}
	return u, nil
}

// do performs an HTTP GET.  op names the operation for error
// messages.  If out is non-nil, the response body is decoded into it;
// otherwise the caller must close the returned response's body.
func (c *Client) do(ctx context.Context, op string, u *url.URL, out interface{}) (resp *http.Response, err error) {
	// Create the request and set headers
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if out != nil {
		req.Header.Set("Accept", "application/json")
	}
	c.authorize(req)

	// Actually do the request
	resp, err = c.http.Do(req)
	if err != nil {
		return nil, ErrNetwork{Op: op, Err: err}
	}

	// Check the response code
	if err = checkHTTPStatus(op, resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	if out == nil {
		return resp, nil
	}

	defer func() {
		err = firstError(err, resp.Body.Close())
	}()
	decoder := codec.NewDecoder(resp.Body, jsonHandle())
	if err = decoder.Decode(out); err != nil && err != io.EOF {
		return nil, ErrNetwork{Op: op, Err: err}
	}
	return resp, nil
}

// authorize attaches the ambient credentials to a request.
func (c *Client) authorize(req *http.Request) {
	switch {
	case c.cfg.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	case c.cfg.Username != "":
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
	if c.cfg.Cookie != "" {
		req.Header.Set("Cookie", c.cfg.Cookie)
	}
}

// checkHTTPStatus examines an HTTP response and returns an error if
// it is not successful.
func checkHTTPStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	// Drain a little of the body so the connection can be reused
	_, _ = io.CopyN(io.Discard, resp.Body, 4096)
	status := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	if status == "" || status == resp.Status {
		status = http.StatusText(resp.StatusCode)
	}
	return ErrorHTTP{Op: op, StatusCode: resp.StatusCode, Status: status}
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
