// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides a client for the remote test-management
// REST API.  It implements testcache.Remote.
//
// Requests carry ambient credentials from Config: a bearer token, or
// a basic-auth user name and password, plus an optional raw cookie
// header copied from a browser session.
package restclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/diffeo/go-testcache/testcache"
)

// URI templates of the remote resources, relative to the base URL.
const (
	testResultsTemplate = "rest/atm/1.0/testrun/{key}/testresults"
	attachmentsTemplate = "rest/atm/1.0/testresult/{id}/attachments"
	downloadTemplate    = "rest/tests/1.0/attachment/{id}"
	myselfTemplate      = "rest/api/2/myself"
)

// Operation names used in error messages.
const (
	opTestResults = "Failed to fetch test run results"
	opAttachments = "Failed to fetch attachments"
	opDownload    = "Failed to download attachment"
	opMyself      = "Failed to fetch current user"
)

// Config holds the connection parameters of a Client.
type Config struct {
	// BaseURL is the root of the remote system, such as
	// "https://jira.example.com".  If empty, every operation
	// fails with testcache.ErrNotConfigured until SetBaseURL is
	// called.
	BaseURL string `mapstructure:"base_url"`

	// Token is sent as a bearer token if set.
	Token string `mapstructure:"token"`

	// Username and Password are sent as basic authentication if
	// Username is set and Token is not.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Cookie is sent verbatim as the Cookie header if set.
	Cookie string `mapstructure:"cookie"`

	// DownloadDir receives downloaded attachments.  If unset,
	// uses the system temporary directory.
	DownloadDir string `mapstructure:"download_dir"`

	// Timeout bounds each request.  Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// HTTPClient is used for requests if set; Timeout is then
	// ignored.
	HTTPClient *http.Client
}

// Client talks to the remote test-management API.  The base URL may
// be replaced at any time; requests already under way finish against
// the old one.
type Client struct {
	cfg  Config
	http *http.Client

	lock sync.RWMutex
	base *url.URL
}

// New creates a new client.  Returns an error only if cfg.BaseURL is
// set and is not an absolute http or https URL.
func New(cfg Config) (*Client, error) {
	c := &Client{cfg: cfg, http: cfg.HTTPClient}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.cfg.DownloadDir == "" {
		c.cfg.DownloadDir = os.TempDir()
	}
	if cfg.BaseURL != "" {
		base, err := parseBase(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		c.base = base
	}
	return c, nil
}

// SetBaseURL replaces the remote endpoint.  An empty or unparseable
// URL leaves the client unconfigured.
func (c *Client) SetBaseURL(baseURL string) {
	var base *url.URL
	if baseURL != "" {
		base, _ = parseBase(baseURL)
	}
	c.lock.Lock()
	c.base = base
	c.lock.Unlock()
}

// BaseURL returns the current remote endpoint without a trailing
// slash, or an empty string if unconfigured.
func (c *Client) BaseURL() string {
	base := c.baseURL()
	if base == nil {
		return ""
	}
	return strings.TrimRight(base.String(), "/")
}

func (c *Client) baseURL() *url.URL {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.base
}

// get expands tmpl against the current base URL and decodes the
// response into out.
func (c *Client) get(ctx context.Context, op, tmpl string, vars map[string]interface{}, out interface{}) error {
	base := c.baseURL()
	if base == nil {
		return testcache.ErrNotConfigured
	}
	u, err := template(base, tmpl, vars)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, op, u, out)
	return err
}

// TestResults fetches every test result of a test run.
func (c *Client) TestResults(ctx context.Context, testRunKey string) ([]testcache.TestResult, error) {
	var results []testcache.TestResult
	err := c.get(ctx, opTestResults, testResultsTemplate, map[string]interface{}{"key": testRunKey}, &results)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []testcache.TestResult{}
	}
	return results, nil
}

// Attachments fetches the attachment listing of one test result.
func (c *Client) Attachments(ctx context.Context, testResultID string) ([]testcache.Attachment, error) {
	var attachments []testcache.Attachment
	err := c.get(ctx, opAttachments, attachmentsTemplate, map[string]interface{}{"id": testResultID}, &attachments)
	if err != nil {
		return nil, err
	}
	if attachments == nil {
		attachments = []testcache.Attachment{}
	}
	return attachments, nil
}

// CurrentUser returns the user the client's credentials authenticate
// as.
func (c *Client) CurrentUser(ctx context.Context) (testcache.User, error) {
	var user testcache.User
	err := c.get(ctx, opMyself, myselfTemplate, nil, &user)
	return user, err
}

// Probe asks an arbitrary remote who the client's credentials
// authenticate as, without changing the configured endpoint.
func (c *Client) Probe(ctx context.Context, baseURL string) (testcache.User, error) {
	var user testcache.User
	base, err := parseBase(baseURL)
	if err != nil {
		return user, err
	}
	u, err := template(base, myselfTemplate, nil)
	if err != nil {
		return user, err
	}
	_, err = c.do(ctx, opMyself, u, &user)
	return user, err
}

// Download saves one attachment into the download directory under
// the final element of fileName, returning the path written.  If
// fileName has no usable final element, the attachment id is used.
func (c *Client) Download(ctx context.Context, attachmentID, fileName string) (path string, err error) {
	base := c.baseURL()
	if base == nil {
		return "", testcache.ErrNotConfigured
	}
	u, err := template(base, downloadTemplate, map[string]interface{}{"id": attachmentID})
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, opDownload, u, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		err = firstError(err, resp.Body.Close())
	}()

	f, err := createUnique(c.cfg.DownloadDir, sanitizeFileName(fileName, attachmentID))
	if err != nil {
		return "", err
	}
	path = f.Name()
	_, err = io.Copy(f, resp.Body)
	err = firstError(err, f.Close())
	if err != nil {
		_ = os.Remove(path)
		return "", ErrNetwork{Op: opDownload, Err: err}
	}
	return path, nil
}

// maxNameAttempts bounds the numbered variants createUnique tries.
const maxNameAttempts = 1000

// createUnique creates a new file named name in dir.  If that name is
// taken, it tries "base (1).ext", "base (2).ext", and so on, so an
// earlier download is never overwritten.
func createUnique(dir, name string) (*os.File, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 1; ; n++ {
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, nil
		}
		if !os.IsExist(err) || n > maxNameAttempts {
			return nil, err
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
}

// sanitizeFileName reduces a requested file name to a single path
// element.
func sanitizeFileName(fileName, fallback string) string {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(fileName, "\\", "/")))
	switch name {
	case ".", "/":
		name = "attachment-" + filepath.Base(filepath.Clean("/"+fallback))
	}
	return name
}
