// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"

	"github.com/diffeo/go-testcache/restdata"
	"github.com/gorilla/mux"
)

// errNoSettings is returned for a settings update message without
// settings.
var errNoSettings = restdata.ErrBadRequest{Err: errors.New("No settings in message")}

func (api *restAPI) PopulateMessage(r *mux.Router) {
	r.Path("/message").Name("message").Handler(&resourceHandler{
		Representation: map[string]interface{}{},
		Context:        api.Context,
		Post:           api.MessagePost,
	})
}

// MessagePost dispatches an action envelope to the matching service
// operation.  Each action answers with the same body its dedicated
// route would.
func (api *restAPI) MessagePost(ctx *reqContext, in interface{}) (interface{}, error) {
	raw, valid := in.(map[string]interface{})
	if !valid {
		return nil, errUnmarshal
	}
	msg, err := restdata.DecodeMessage(raw)
	if err != nil {
		return nil, err
	}

	svc := api.Service
	switch msg.Action {
	case restdata.ActionGetTestResult:
		include := msg.IncludeAttachments == nil || *msg.IncludeAttachments
		return svc.GetTestResult(ctx.Context, msg.TestRunKey, msg.TestCaseKey, include)
	case restdata.ActionPrefetchTestRun:
		return svc.PrefetchTestRun(ctx.Context, msg.TestRunKey)
	case restdata.ActionDeleteCacheEntry:
		return restdata.Success{Success: svc.DeleteCacheEntry(msg.TestRunKey)}, nil
	case restdata.ActionClearCache:
		svc.ClearCache()
		return restdata.Success{Success: true}, nil
	case restdata.ActionGetCacheStatus:
		return svc.CacheStatus(ctx.Context), nil
	case restdata.ActionGetCacheLog:
		return restdata.Log{Log: svc.CacheLog()}, nil
	case restdata.ActionDownloadAttachment:
		path, err := svc.DownloadAttachment(ctx.Context, msg.AttachmentID, msg.FileName)
		if err != nil {
			return nil, err
		}
		return restdata.DownloadResponse{Success: true, Path: path}, nil
	case restdata.ActionGetCurrentUser:
		return svc.CurrentUser(ctx.Context)
	case restdata.ActionGetSettings:
		return svc.Settings(), nil
	case restdata.ActionSettingsUpdated:
		if msg.Settings == nil {
			return nil, errNoSettings
		}
		return svc.UpdateSettings(ctx.Context, *msg.Settings)
	case restdata.ActionTestConnection:
		return api.testConnection(ctx, msg.URL)
	}
	return nil, restdata.ErrUnknownAction{Action: msg.Action}
}
