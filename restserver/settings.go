// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-testcache/restdata"
	"github.com/diffeo/go-testcache/testcache"
	"github.com/gorilla/mux"
)

func (api *restAPI) PopulateSettings(r *mux.Router) {
	r.Path("/settings").Name("settings").Handler(&resourceHandler{
		Representation: testcache.Settings{},
		Context:        api.Context,
		Get:            api.SettingsGet,
		Put:            api.SettingsPut,
	})
	r.Path("/settings/test").Name("testConnection").Handler(&resourceHandler{
		Representation: restdata.TestConnectionRequest{},
		Context:        api.Context,
		Post:           api.SettingsTest,
	})
}

func (api *restAPI) SettingsGet(ctx *reqContext) (interface{}, error) {
	return api.Service.Settings(), nil
}

func (api *restAPI) SettingsPut(ctx *reqContext, in interface{}) (interface{}, error) {
	settings, valid := in.(testcache.Settings)
	if !valid {
		return nil, errUnmarshal
	}
	return api.Service.UpdateSettings(ctx.Context, settings)
}

func (api *restAPI) SettingsTest(ctx *reqContext, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.TestConnectionRequest)
	if !valid {
		return nil, errUnmarshal
	}
	return api.testConnection(ctx, req.URL)
}

// testConnection probes url, or the configured remote if url is empty.
func (api *restAPI) testConnection(ctx *reqContext, url string) (interface{}, error) {
	if url == "" {
		url = api.Service.Settings().JiraURL
	}
	user, err := api.Service.TestConnection(ctx.Context, url)
	if err != nil {
		return nil, err
	}
	return restdata.TestConnectionResponse{Success: true, User: user}, nil
}
