// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"

	"github.com/diffeo/go-testcache/restdata"
	"github.com/diffeo/go-testcache/service"
	"github.com/gorilla/mux"
)

// NewRouter creates a new HTTP handler that processes all cache
// service requests.  All resources are under the URL path root,
// e.g. /testrun/foo.  For more control over this setup, create a
// mux.Router and call PopulateRouter instead.
func NewRouter(svc *service.Service) http.Handler {
	r := mux.NewRouter()
	PopulateRouter(r, svc)
	return r
}

// PopulateRouter adds cache service routes to an existing
// github.com/gorilla/mux router object.  This can be used, for
// instance, to place the interface under a subpath:
//
//     r := mux.NewRouter()
//     s := r.PathPrefix("/testcache").Subrouter()
//     PopulateRouter(s, svc)
func PopulateRouter(r *mux.Router, svc *service.Service) {
	api := &restAPI{Service: svc, Router: r}
	api.PopulateRouter(r)
}

// restAPI holds the persistent state for the REST API.
type restAPI struct {
	Service *service.Service
	Router  *mux.Router
}

// PopulateRouter adds all URL paths to a router.
func (api *restAPI) PopulateRouter(r *mux.Router) {
	api.PopulateTestRun(r)
	api.PopulateCache(r)
	api.PopulateSettings(r)
	api.PopulateMessage(r)
	r.Path("/").Name("root").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.RootDocument,
	})
}

func (api *restAPI) RootDocument(ctx *reqContext) (interface{}, error) {
	resp := restdata.RootData{}
	err := buildURLs(api.Router).
		Template(&resp.TestResultURL, "testResult", []string{"run", "case"}, "attachments").
		Template(&resp.PrefetchURL, "prefetch", []string{"run"}).
		Template(&resp.TestRunURL, "testRun", []string{"run"}).
		URL(&resp.CacheURL, "cache").
		URL(&resp.CacheLogURL, "cacheLog").
		Template(&resp.DownloadURL, "download", []string{"id"}).
		URL(&resp.UserURL, "user").
		URL(&resp.SettingsURL, "settings").
		URL(&resp.TestConnectionURL, "testConnection").
		URL(&resp.MessageURL, "message").
		Error
	return resp, err
}
