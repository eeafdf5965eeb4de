// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/diffeo/go-testcache/restdata"
	"github.com/gorilla/mux"
)

// errUnmarshal is returned if the put/post contract is violated and
// a handler function is passed the wrong type.
var errUnmarshal = restdata.ErrBadRequest{
	Err: errors.New("Invalid input format"),
}

// reqContext holds all of the information that can be extracted from
// URL parameters, plus the request's own context.
type reqContext struct {
	Context      context.Context
	TestRunKey   string
	TestCaseKey  string
	AttachmentID string
	QueryParams  url.Values
}

func (api *restAPI) Context(req *http.Request) (ctx *reqContext, err error) {
	ctx = &reqContext{
		Context:     req.Context(),
		QueryParams: req.URL.Query(),
	}
	vars := mux.Vars(req)
	for name, out := range map[string]*string{
		"run":  &ctx.TestRunKey,
		"case": &ctx.TestCaseKey,
		"id":   &ctx.AttachmentID,
	} {
		value, present := vars[name]
		if !present {
			continue
		}
		*out, err = restdata.MaybeDecodeName(value)
		if err != nil {
			return nil, restdata.ErrBadRequest{Err: err}
		}
	}
	return ctx, nil
}

// BoolParam looks at ctx.QueryParams for a parameter named name.  If
// it has a normally-truthy value (1, on, false, no, ...) then return
// that value.  Otherwise (empty string, foo, ...) return def.
func (ctx *reqContext) BoolParam(name string, def bool) bool {
	switch strings.ToLower(ctx.QueryParams.Get(name)) {
	case "0", "f", "n", "false", "off", "no":
		return false
	case "1", "t", "y", "true", "on", "yes":
		return true
	default:
		return def
	}
}
