// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jtacoma/uritemplates"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo/go-testcache/memory"
	"github.com/diffeo/go-testcache/restclient"
	"github.com/diffeo/go-testcache/restdata"
	"github.com/diffeo/go-testcache/service"
	"github.com/diffeo/go-testcache/testcache"
)

// remoteServer serves a small slice of the remote API.
type remoteServer struct {
	*httptest.Server
	RunRequests int32
	AttRequests int32
}

func newRemoteServer() *remoteServer {
	f := &remoteServer{}
	r := mux.NewRouter()
	r.HandleFunc("/rest/atm/1.0/testrun/{key}/testresults", func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&f.RunRequests, 1)
		if mux.Vars(req)["key"] != "RUN-1" {
			http.NotFound(w, req)
			return
		}
		fmt.Fprint(w, `[{"id":101,"testCaseKey":"CT-1","status":"Pass","comment":"ok"},`+
			`{"id":102,"testCaseKey":"CT-2","status":"Fail"}]`)
	})
	r.HandleFunc("/rest/atm/1.0/testresult/{id}/attachments", func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&f.AttRequests, 1)
		fmt.Fprintf(w, `[{"id":7,"fileName":"shot-%s.png"}]`, mux.Vars(req)["id"])
	})
	r.HandleFunc("/rest/tests/1.0/attachment/{id}", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, "contents of %s", mux.Vars(req)["id"])
	})
	r.HandleFunc("/rest/api/2/myself", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"name":"jdoe","displayName":"Jane Doe"}`)
	})
	f.Server = httptest.NewServer(r)
	return f
}

// newHandler builds the full stack: a REST client against remote
// (unconfigured if remote is nil), a memory-backed service, and the
// router under test.
func newHandler(t *testing.T, remote *remoteServer, token string) (http.Handler, *service.Service) {
	cfg := restclient.Config{Token: token, DownloadDir: t.TempDir()}
	settings := testcache.Settings{}
	if remote != nil {
		settings.JiraURL = remote.URL
	}
	client, err := restclient.New(cfg)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	svc, err := service.New(context.Background(), service.Config{
		Store:    memory.New(),
		Remote:   client,
		Logger:   logger,
		Version:  "1.2.3",
		Settings: settings,
	})
	require.NoError(t, err)
	return NewRouter(svc), svc
}

func call(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	err := restdata.Decode(rec.Header().Get("Content-Type"), rec.Body, out)
	require.NoError(t, err)
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) restdata.ErrorResponse {
	var resp restdata.ErrorResponse
	decode(t, rec, &resp)
	return resp
}

func TestRootDocument(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	rec := call(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, restdata.V1JSONMediaType, rec.Header().Get("Content-Type"))
	var root restdata.RootData
	decode(t, rec, &root)
	assert.Equal(t, "/testrun/{run}/result/{case}{?attachments}", root.TestResultURL)
	assert.Equal(t, "/testrun/{run}/prefetch", root.PrefetchURL)
	assert.Equal(t, "/testrun/{run}", root.TestRunURL)
	assert.Equal(t, "/cache", root.CacheURL)
	assert.Equal(t, "/cache/log", root.CacheLogURL)
	assert.Equal(t, "/attachment/{id}/download", root.DownloadURL)
	assert.Equal(t, "/user", root.UserURL)
	assert.Equal(t, "/settings", root.SettingsURL)
	assert.Equal(t, "/settings/test", root.TestConnectionURL)
	assert.Equal(t, "/message", root.MessageURL)

	// The templates expand to working URLs
	tmpl, err := uritemplates.Parse(root.TestResultURL)
	require.NoError(t, err)
	path, err := tmpl.Expand(map[string]interface{}{
		"run":         "RUN-1",
		"case":        "CT-2",
		"attachments": "false",
	})
	require.NoError(t, err)
	assert.Equal(t, "/testrun/RUN-1/result/CT-2?attachments=false", path)
	rec = call(h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTestResult(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	rec := call(h, http.MethodGet, "/testrun/RUN-1/result/CT-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lookup testcache.Lookup
	decode(t, rec, &lookup)
	assert.True(t, lookup.Found)
	if assert.NotNil(t, lookup.Status) {
		assert.Equal(t, "Pass", *lookup.Status)
	}
	if assert.NotNil(t, lookup.Comment) {
		assert.Equal(t, "ok", *lookup.Comment)
	}
	if assert.Len(t, lookup.Attachments, 1) {
		assert.Equal(t, "shot-101.png", lookup.Attachments[0]["fileName"])
	}

	// Second lookup in the same run is served from the cache
	rec = call(h, http.MethodGet, "/testrun/RUN-1/result/CT-2?attachments=no", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lookup = testcache.Lookup{}
	decode(t, rec, &lookup)
	assert.True(t, lookup.Found)
	assert.Nil(t, lookup.Comment)
	assert.Empty(t, lookup.Attachments)
	assert.Equal(t, int32(1), atomic.LoadInt32(&remote.RunRequests))
	assert.Equal(t, int32(1), atomic.LoadInt32(&remote.AttRequests))

	rec = call(h, http.MethodGet, "/testrun/RUN-1/result/CT-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"found":false,"comment":null,"status":null,"attachments":[]}`, rec.Body.String())
}

func TestEncodedKey(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	// "-UlVOLTE" is "RUN-1" encoded
	rec := call(h, http.MethodGet, "/testrun/-UlVOLTE/result/CT-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lookup testcache.Lookup
	decode(t, rec, &lookup)
	assert.True(t, lookup.Found)

	rec = call(h, http.MethodGet, "/testrun/-!!/result/CT-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoteError(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	rec := call(h, http.MethodGet, "/testrun/RUN-404/result/CT-1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := errorOf(t, rec)
	assert.Equal(t, "Failed to fetch test run results: 404 Not Found", resp.Error)
	assert.Empty(t, resp.Code)
}

func TestNotConfigured(t *testing.T) {
	h, _ := newHandler(t, nil, "")

	rec := call(h, http.MethodPost, "/testrun/RUN-1/prefetch", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ErrNotConfigured", errorOf(t, rec).Code)

	rec = call(h, http.MethodGet, "/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status testcache.CacheStatus
	decode(t, rec, &status)
	assert.False(t, status.Configured)
}

func TestPrefetchStatusDelete(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, svc := newHandler(t, remote, "secret")

	rec := call(h, http.MethodPost, "/testrun/RUN-1/prefetch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var prefetch testcache.PrefetchResult
	decode(t, rec, &prefetch)
	assert.Equal(t, testcache.PrefetchResult{Success: true, ResultsCount: 2}, prefetch)

	rec = call(h, http.MethodGet, "/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status testcache.CacheStatus
	decode(t, rec, &status)
	assert.Equal(t, []testcache.TestRunSummary{{Key: "RUN-1", ResultsCount: 2}}, status.TestRuns)
	assert.Equal(t, 1, status.TestRunCacheSize)
	assert.True(t, status.Configured)
	assert.Equal(t, "1.2.3", status.Version)

	var success restdata.Success
	rec = call(h, http.MethodDelete, "/testrun/RUN-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &success)
	assert.True(t, success.Success)

	rec = call(h, http.MethodDelete, "/testrun/RUN-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &success)
	assert.False(t, success.Success)

	require.NoError(t, svc.Flush(context.Background()))
}

func TestClearAndLog(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	rec := call(h, http.MethodPost, "/testrun/RUN-1/prefetch", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(h, http.MethodDelete, "/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var success restdata.Success
	decode(t, rec, &success)
	assert.True(t, success.Success)

	rec = call(h, http.MethodGet, "/cache/log", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var log restdata.Log
	decode(t, rec, &log)
	var clears []string
	for _, record := range log.Log {
		if record.Action == testcache.EventClear {
			clears = append(clears, record.Details)
		}
	}
	assert.Equal(t, []string{"testRuns: 1, attachments: 0"}, clears)
}

func TestDownload(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	rec := call(h, http.MethodPost, "/attachment/7/download", `{"fileName":"report.txt"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp restdata.DownloadResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	contents, err := os.ReadFile(resp.Path)
	require.NoError(t, err)
	assert.Equal(t, "contents of 7", string(contents))
}

func TestSettings(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	rec := call(h, http.MethodPut, "/settings", `{"jiraUrl":"`+remote.URL+`//","testRunPrefix":" TR- "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings testcache.Settings
	decode(t, rec, &settings)
	assert.Equal(t, remote.URL, settings.JiraURL)
	assert.Equal(t, "TR-", settings.TestRunPrefix)

	rec = call(h, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	settings = testcache.Settings{}
	decode(t, rec, &settings)
	assert.Equal(t, "TR-", settings.TestRunPrefix)

	rec = call(h, http.MethodPut, "/settings", `{"jiraUrl":"ftp://jira"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ErrBadURL", errorOf(t, rec).Code)
}

func TestConnection(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()

	h, _ := newHandler(t, remote, "secret")
	rec := call(h, http.MethodPost, "/settings/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp restdata.TestConnectionResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "jdoe", resp.User.Name)

	rec = call(h, http.MethodGet, "/user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var user testcache.User
	decode(t, rec, &user)
	assert.Equal(t, "Jane Doe", user.DisplayName)

	h, _ = newHandler(t, remote, "")
	rec = call(h, http.MethodPost, "/settings/test", `{"url":"`+remote.URL+`"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "ErrUnauthorized", errorOf(t, rec).Code)
}

func TestMessage(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	rec := call(h, http.MethodPost, "/message",
		`{"action":"getTestResult","testRunKey":"RUN-1","testCaseKey":"CT-2","includeAttachments":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var lookup testcache.Lookup
	decode(t, rec, &lookup)
	assert.True(t, lookup.Found)
	if assert.NotNil(t, lookup.Status) {
		assert.Equal(t, "Fail", *lookup.Status)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&remote.AttRequests))

	rec = call(h, http.MethodPost, "/message", `{"action":"deleteCacheEntry","testRunKey":"RUN-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"success":true}`, rec.Body.String())

	rec = call(h, http.MethodPost, "/message", `{"action":"getCacheStatus"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var status testcache.CacheStatus
	decode(t, rec, &status)
	assert.Equal(t, 0, status.TestRunCacheSize)

	rec = call(h, http.MethodPost, "/message", `{"action":"downloadAttachment","attachmentId":7,"fileName":"x.bin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var download restdata.DownloadResponse
	decode(t, rec, &download)
	assert.True(t, download.Success)

	rec = call(h, http.MethodPost, "/message",
		`{"action":"settingsUpdated","settings":{"jiraUrl":"`+remote.URL+`/","testCasePrefix":"TC-"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings testcache.Settings
	decode(t, rec, &settings)
	assert.Equal(t, remote.URL, settings.JiraURL)
	assert.Equal(t, "TC-", settings.TestCasePrefix)

	rec = call(h, http.MethodPost, "/message", `{"action":"settingsUpdated"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h, http.MethodPost, "/message", `{"action":"launchRockets"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Unknown action "launchRockets"`, errorOf(t, rec).Error)

	rec = call(h, http.MethodPost, "/message", `{"testRunKey":"RUN-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h, http.MethodPost, "/message", `{"action":"getTestResult"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ErrNoTestRunKey", errorOf(t, rec).Code)
}

func TestRequestErrors(t *testing.T) {
	remote := newRemoteServer()
	defer remote.Close()
	h, _ := newHandler(t, remote, "secret")

	rec := call(h, http.MethodPut, "/cache", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(`{"action":"getCacheLog"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = call(h, http.MethodPost, "/message", `{"action":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/cache", nil)
	req.Header.Set("Accept", "text/html")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/cache", nil)
	req.Header.Set("Accept", "text/html;q=0.9, text/*;q=0.5")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/json", rec.Header().Get("Content-Type"))
}

func TestNegotiateResponse(t *testing.T) {
	for _, tc := range []struct {
		Accept string
		Type   string
		Err    bool
	}{
		{"", restdata.V1JSONMediaType, false},
		{"application/json", "application/json", false},
		{"*/*;q=0.1, application/json;q=0.5", "application/json", false},
		{"application/*, text/json", "text/json", false},
		{"image/png", "", true},
		{"application/json;q=2", "", true},
	} {
		req := &http.Request{Header: http.Header{}}
		if tc.Accept != "" {
			req.Header.Set("Accept", tc.Accept)
		}
		mediaType, err := negotiateResponse(req)
		if tc.Err {
			assert.Error(t, err, tc.Accept)
		} else if assert.NoError(t, err, tc.Accept) {
			assert.Equal(t, tc.Type, mediaType, tc.Accept)
		}
	}
}

type failResponseWriter struct {
	Headers    http.Header
	StatusCode int
}

func (rw *failResponseWriter) Header() http.Header {
	if rw.Headers == nil {
		rw.Headers = make(http.Header)
	}
	return rw.Headers
}

func (rw *failResponseWriter) Write([]byte) (int, error) {
	return 0, errors.New("foo")
}

func (rw *failResponseWriter) WriteHeader(code int) {
	rw.StatusCode = code
}

// TestDoubleFault checks that, if there is an error serializing a JSON
// response, it doesn't actually panic the process.
func TestDoubleFault(t *testing.T) {
	h, _ := newHandler(t, nil, "")
	req := &http.Request{
		Method:     http.MethodGet,
		URL:        &url.URL{Path: "/cache"},
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
		Close:      true,
		Host:       "localhost",
	}
	resp := &failResponseWriter{}
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestPanic checks that a panicking handler produces a 500 response
// carrying the panic.
func TestPanic(t *testing.T) {
	r := mux.NewRouter()
	api := &restAPI{Router: r}
	r.Path("/boom").Handler(&resourceHandler{
		Context: api.Context,
		Get: func(*reqContext) (interface{}, error) {
			panic("boom")
		},
	})
	rec := call(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := errorOf(t, rec)
	assert.Equal(t, "panic", resp.Code)
	assert.Equal(t, "boom", resp.Error)
	assert.NotEmpty(t, resp.Stack)
}
