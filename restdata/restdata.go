// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines the data structures passed between the
// restserver transport and its clients.  JSON encodings of these are
// passed across the wire as application/json, or as the more specific
// application/vnd.diffeo.testcache.v1+json MIME type.
//
// API Usage
//
// HTTP GET the root document at its specified URL.  This will return a
// JSON serialization of the RootData object, whose fields are RFC 6570
// URI templates for every other resource.  For instance, if the
// service is rooted at /, part of the root document looks like
//
//     {
//         "test_result_url": "/testrun/{run}/result/{case}{?attachments}",
//         "cache_url": "/cache"
//     }
//
// While the URL structure is predictable, it is not part of the API
// contract; only the root document is.
//
// Encoding Considerations
//
// A name that appears in a URL path must be made of ASCII characters
// that can be represented unescaped.  Other names are escaped by
// encoding their bytes using the base64 URL-safe alphabet with no
// padding, and prepending a hyphen.  Names that would otherwise be safe
// but begin with a hyphen are also encoded.
//
// Timestamps are represented in JSON as RFC 3339 strings,
// "2012-03-04T05:06:07.890Z".
//
// Errors
//
// Every failing request returns an ErrorResponse, {"error": message},
// with a failing HTTP status.  Well-known errors also carry a short
// code naming them.  If the server panics, the code is "panic".
//
// Messages
//
// POST /message accepts a Message envelope whose action names one of
// the service operations, and returns that operation's response.  This
// mirrors the message-passing interface of the browser extension the
// service backs, so its collaborators can keep their request shapes.
package restdata

import "github.com/diffeo/go-testcache/testcache"

// V1JSONMediaType is the preferred, most specific MIME type for the
// JSON representation.
const V1JSONMediaType = "application/vnd.diffeo.testcache.v1+json"

// JSONMediaType requests the most recent version of the JSON
// representation.
const JSONMediaType = "application/vnd.diffeo.testcache+json"

// RootData is the root resource.  Every field is a URI template.
type RootData struct {
	TestResultURL     string `json:"test_result_url"`
	PrefetchURL       string `json:"prefetch_url"`
	TestRunURL        string `json:"test_run_url"`
	CacheURL          string `json:"cache_url"`
	CacheLogURL       string `json:"cache_log_url"`
	DownloadURL       string `json:"download_url"`
	UserURL           string `json:"user_url"`
	SettingsURL       string `json:"settings_url"`
	TestConnectionURL string `json:"test_connection_url"`
	MessageURL        string `json:"message_url"`
}

// Success is the response to operations that only report success.
type Success struct {
	Success bool `json:"success"`
}

// Log is the response to a cache log request.
type Log struct {
	Log []testcache.EventRecord `json:"log"`
}

// DownloadRequest is the body of an attachment download request.
type DownloadRequest struct {
	FileName string `json:"fileName"`
}

// DownloadResponse reports a completed attachment download.
type DownloadResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
}

// TestConnectionRequest is the body of a connection test.  If URL is
// empty, the currently configured URL is tested.
type TestConnectionRequest struct {
	URL string `json:"url"`
}

// TestConnectionResponse reports a successful connection test.
type TestConnectionResponse struct {
	Success bool           `json:"success"`
	User    testcache.User `json:"user"`
}

// Message actions.
const (
	ActionGetTestResult      = "getTestResult"
	ActionPrefetchTestRun    = "prefetchTestRun"
	ActionDeleteCacheEntry   = "deleteCacheEntry"
	ActionClearCache         = "clearCache"
	ActionGetCacheStatus     = "getCacheStatus"
	ActionGetCacheLog        = "getCacheLog"
	ActionDownloadAttachment = "downloadAttachment"
	ActionGetCurrentUser     = "getCurrentUser"
	ActionGetSettings        = "getSettings"
	ActionSettingsUpdated    = "settingsUpdated"
	ActionTestConnection     = "testConnection"
)

// Message is an action-dispatched request.  Which fields are used
// depends on Action.  IncludeAttachments defaults to true when absent.
type Message struct {
	Action             string              `mapstructure:"action"`
	TestRunKey         string              `mapstructure:"testRunKey"`
	TestCaseKey        string              `mapstructure:"testCaseKey"`
	IncludeAttachments *bool               `mapstructure:"includeAttachments"`
	AttachmentID       string              `mapstructure:"attachmentId"`
	FileName           string              `mapstructure:"fileName"`
	URL                string              `mapstructure:"url"`
	Settings           *testcache.Settings `mapstructure:"settings"`
}

// ErrorResponse can be a response to any method, generally accompanied
// by a failing HTTP status code.
type ErrorResponse struct {
	// Error is a human-readable description of the failure.
	Error string `json:"error"`

	// Code is a short name for well-known errors, or "panic".
	Code string `json:"code,omitempty"`

	// Stack is the server stack trace of a panic.
	Stack string `json:"stack,omitempty"`
}
