// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package testcache defines the shared vocabulary of the test-result
// cache daemon: the records fetched from the remote test-management
// API, the durable store abstraction, and the payloads returned to UI
// collaborators.
//
// Most applications will construct a service.Service with a Store from
// one of the backend packages (memory, sqlstore, redisstore) and a
// Remote from the restclient package, and then talk to it through the
// restserver transport.
package testcache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// DefaultTTL is the maximum age of a cached entry before it is treated
// as stale.
const DefaultTTL = 15 * 24 * time.Hour

// Names of the durable store keys.  These are part of the persisted
// layout and should not change.
const (
	TestRunStoreKey     = "testRunCache"
	AttachmentsStoreKey = "attachmentsCache"
	SettingsStoreKey    = "settings"
)

// Store is the durable key/value persistence layer.  Every value is a
// complete serialized snapshot; there are no partial updates.
type Store interface {
	// Get retrieves the blob stored under name.  If nothing is
	// stored there, returns ok == false and no error.
	Get(ctx context.Context, name string) (data []byte, ok bool, err error)

	// Set replaces the blob stored under name.
	Set(ctx context.Context, name string, data []byte) error

	// Remove deletes the named blobs.  Names that are not stored
	// are ignored.
	Remove(ctx context.Context, names ...string) error

	// Clear deletes every blob in the store.
	Clear(ctx context.Context) error

	// BytesInUse returns the approximate number of bytes used by
	// the named blobs.  With no names, reports the whole store.
	BytesInUse(ctx context.Context, names ...string) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}

// Remote is the test-management API as seen by the cache service.
type Remote interface {
	// TestResults fetches every test result of a test run.
	TestResults(ctx context.Context, testRunKey string) ([]TestResult, error)

	// Attachments fetches the attachment listing of one test
	// result.
	Attachments(ctx context.Context, testResultID string) ([]Attachment, error)

	// Download saves one attachment under fileName in the
	// download directory, returning the path written.
	Download(ctx context.Context, attachmentID, fileName string) (string, error)

	// CurrentUser returns the user the ambient credentials
	// authenticate as.
	CurrentUser(ctx context.Context) (User, error)

	// Probe performs the same request as CurrentUser against an
	// arbitrary base URL, without changing the configuration.
	Probe(ctx context.Context, baseURL string) (User, error)

	// SetBaseURL replaces the remote endpoint.  An empty string
	// leaves the remote unconfigured.
	SetBaseURL(baseURL string)

	// BaseURL returns the current remote endpoint, or an empty
	// string if unconfigured.
	BaseURL() string
}

// TestResult is one row of a test run's result set, kept exactly as
// the remote sent it.  The accessors read the fields the service
// looks at; everything else rides along into the cache untouched.
type TestResult map[string]interface{}

// ID returns the remote identifier of the result as a string.  The
// remote API sends a number, but some deployments send strings.
func (r TestResult) ID() string {
	return NormalizeKey(r["id"])
}

// TestCaseKey returns the key of the test case this result is for.
func (r TestResult) TestCaseKey() string {
	return r.str("testCaseKey")
}

// Status returns the result's status name, or "" if it has none.
func (r TestResult) Status() string {
	return r.str("status")
}

// Comment returns the result's comment, or "" if it has none.
func (r TestResult) Comment() string {
	return r.str("comment")
}

func (r TestResult) str(field string) string {
	s, _ := r[field].(string)
	return s
}

// Attachment is one entry of an attachment listing.  Its fields vary
// across remote versions and are passed through untouched.
type Attachment map[string]interface{}

// User identifies an authenticated remote user.
type User struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

// Settings is the user-editable configuration of the remote
// connection.
type Settings struct {
	JiraURL        string `json:"jiraUrl" mapstructure:"jiraUrl"`
	ConfluenceURL  string `json:"confluenceUrl,omitempty" mapstructure:"confluenceUrl"`
	TestCasePrefix string `json:"testCasePrefix,omitempty" mapstructure:"testCasePrefix"`
	TestRunPrefix  string `json:"testRunPrefix,omitempty" mapstructure:"testRunPrefix"`
}

// Lookup is the answer to a single test-case lookup within a test run.
// Comment and Status are nil when the case was not found or the
// result carries no value for them.
type Lookup struct {
	Found       bool         `json:"found"`
	Comment     *string      `json:"comment"`
	Status      *string      `json:"status"`
	Attachments []Attachment `json:"attachments"`
}

// PrefetchResult reports a forced population of the test-run cache.
type PrefetchResult struct {
	Success      bool `json:"success"`
	ResultsCount int  `json:"resultsCount"`
}

// TestRunSummary describes one cached test run.
type TestRunSummary struct {
	Key          string `json:"key"`
	ResultsCount int    `json:"resultsCount"`
}

// CacheStatus is a read-only snapshot of the cache service state.
type CacheStatus struct {
	TestRuns             []TestRunSummary `json:"testRuns"`
	TestRunCacheSize     int              `json:"testRunCacheSize"`
	AttachmentsCacheSize int              `json:"attachmentsCacheSize"`
	InFlightCount        int              `json:"inFlightCount"`
	StorageBytesUsed     int64            `json:"storageBytesUsed"`
	Name                 string           `json:"name"`
	Version              string           `json:"version"`
	Configured           bool             `json:"configured"`
	JiraURL              string           `json:"jiraUrl,omitempty"`
}

// EventRecord is one entry in the diagnostic event log.
type EventRecord struct {
	Timestamp time.Time `json:"ts"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// NormalizeKey converts a test-result identifier, which may arrive as
// a string or as any JSON number type, to its canonical string form.
func NormalizeKey(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
