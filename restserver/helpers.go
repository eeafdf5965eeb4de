// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains helpers to turn named mux routes back into
// URLs and URI templates for the root document.

import (
	"fmt"
	"strings"

	"github.com/gorilla/mux"
)

// placeholder stands in for a template variable while mux builds a
// URL.  It must match the default {name} pattern and survive URL
// encoding unchanged.
const placeholder = "---"

type urlBuilder struct {
	Router *mux.Router
	Error  error
}

func buildURLs(router *mux.Router) *urlBuilder {
	return &urlBuilder{Router: router}
}

func (u *urlBuilder) Route(route string) *mux.Route {
	if u.Error != nil {
		return nil
	}
	r := u.Router.Get(route)
	if r == nil {
		u.Error = fmt.Errorf("No such route %q", route)
	}
	return r
}

// Template stores in out an RFC 6570 template for route, where each
// of vars is a path variable of the route.  query, if non-empty, is
// appended as a form-style query expansion.
func (u *urlBuilder) Template(out *string, route string, vars []string, query ...string) *urlBuilder {
	r := u.Route(route)
	if u.Error != nil {
		return u
	}
	pairs := make([]string, 0, 2*len(vars))
	for _, v := range vars {
		pairs = append(pairs, v, placeholder+v)
	}
	url, err := r.URL(pairs...)
	if err != nil {
		u.Error = err
		return u
	}
	tmpl := url.String()
	for _, v := range vars {
		tmpl = strings.Replace(tmpl, placeholder+v, "{"+v+"}", 1)
	}
	if len(query) > 0 {
		tmpl += "{?" + strings.Join(query, ",") + "}"
	}
	*out = tmpl
	return u
}

// URL stores in out the URL of a route with no variables.
func (u *urlBuilder) URL(out *string, route string) *urlBuilder {
	return u.Template(out, route, nil)
}
