// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-testcache/restdata"
	"github.com/gorilla/mux"
)

func (api *restAPI) PopulateCache(r *mux.Router) {
	r.Path("/cache").Name("cache").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.CacheGet,
		Delete:  api.CacheDelete,
	})
	r.Path("/cache/log").Name("cacheLog").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.CacheLogGet,
	})
	r.Path("/attachment/{id}/download").Name("download").Handler(&resourceHandler{
		Representation: restdata.DownloadRequest{},
		Context:        api.Context,
		Post:           api.AttachmentDownload,
	})
	r.Path("/user").Name("user").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.UserGet,
	})
}

func (api *restAPI) CacheGet(ctx *reqContext) (interface{}, error) {
	return api.Service.CacheStatus(ctx.Context), nil
}

func (api *restAPI) CacheDelete(ctx *reqContext) (interface{}, error) {
	api.Service.ClearCache()
	return restdata.Success{Success: true}, nil
}

func (api *restAPI) CacheLogGet(ctx *reqContext) (interface{}, error) {
	return restdata.Log{Log: api.Service.CacheLog()}, nil
}

func (api *restAPI) AttachmentDownload(ctx *reqContext, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.DownloadRequest)
	if !valid {
		return nil, errUnmarshal
	}
	path, err := api.Service.DownloadAttachment(ctx.Context, ctx.AttachmentID, req.FileName)
	if err != nil {
		return nil, err
	}
	return restdata.DownloadResponse{Success: true, Path: path}, nil
}

func (api *restAPI) UserGet(ctx *reqContext) (interface{}, error) {
	return api.Service.CurrentUser(ctx.Context)
}
