// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-testcache/restdata"
	"github.com/gorilla/mux"
)

func (api *restAPI) PopulateTestRun(r *mux.Router) {
	r.Path("/testrun/{run}").Name("testRun").Handler(&resourceHandler{
		Context: api.Context,
		Delete:  api.TestRunDelete,
	})
	r.Path("/testrun/{run}/result/{case}").Name("testResult").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.TestResultGet,
	})
	r.Path("/testrun/{run}/prefetch").Name("prefetch").Handler(&resourceHandler{
		Context: api.Context,
		Post:    api.TestRunPrefetch,
	})
}

func (api *restAPI) TestResultGet(ctx *reqContext) (interface{}, error) {
	return api.Service.GetTestResult(ctx.Context, ctx.TestRunKey, ctx.TestCaseKey,
		ctx.BoolParam("attachments", true))
}

func (api *restAPI) TestRunPrefetch(ctx *reqContext, in interface{}) (interface{}, error) {
	return api.Service.PrefetchTestRun(ctx.Context, ctx.TestRunKey)
}

func (api *restAPI) TestRunDelete(ctx *reqContext) (interface{}, error) {
	return restdata.Success{Success: api.Service.DeleteCacheEntry(ctx.TestRunKey)}, nil
}
