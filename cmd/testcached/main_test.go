// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo/go-testcache/memory"
	"github.com/diffeo/go-testcache/restclient"
	"github.com/diffeo/go-testcache/service"
	"github.com/diffeo/go-testcache/testcache"
)

const configYaml = `
backend: sqlite3:/tmp/cache.db
http: ":7000"
ttl: 360h
log_capacity: 50
remote:
  token: abc123
  timeout: 10s
settings:
  jiraUrl: https://jira.example.com
  testRunPrefix: TR-
`

// parse runs the CLI with args and returns the options it would
// serve with.
func parse(t *testing.T, args ...string) options {
	var got options
	app := newApp(func(opts options) error {
		got = opts
		return nil
	})
	require.NoError(t, app.Run(append([]string{"testcached"}, args...)))
	return got
}

func TestDefaults(t *testing.T) {
	opts := parse(t)
	assert.Equal(t, "memory", opts.Backend.Implementation)
	assert.Equal(t, ":5980", opts.HTTP)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, testcache.DefaultTTL, opts.TTL)
	assert.Equal(t, 30*time.Second, opts.Remote.Timeout)
	assert.Equal(t, "", opts.Settings.JiraURL)
}

func TestFlags(t *testing.T) {
	opts := parse(t, "--backend", "redis:cache:6379", "--jira-url", "https://jira.test",
		"--token", "t0k", "--ttl", "1h", "--log-requests")
	assert.Equal(t, "redis", opts.Backend.Implementation)
	assert.Equal(t, "cache:6379", opts.Backend.Address)
	assert.Equal(t, "https://jira.test", opts.Settings.JiraURL)
	assert.Equal(t, "t0k", opts.Remote.Token)
	assert.Equal(t, time.Hour, opts.TTL)
	assert.True(t, opts.LogRequests)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testcached.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(configYaml), 0600))

	opts := parse(t, "--config", path, "--http", ":8000")
	assert.Equal(t, "sqlite3", opts.Backend.Implementation)
	assert.Equal(t, "/tmp/cache.db", opts.Backend.Address)
	assert.Equal(t, ":8000", opts.HTTP, "flags win over the file")
	assert.Equal(t, 360*time.Hour, opts.TTL)
	assert.Equal(t, 50, opts.LogCapacity)
	assert.Equal(t, "abc123", opts.Remote.Token)
	assert.Equal(t, 10*time.Second, opts.Remote.Timeout)
	assert.Equal(t, "https://jira.example.com", opts.Settings.JiraURL)
	assert.Equal(t, "TR-", opts.Settings.TestRunPrefix)
}

func TestBadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testcached.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("backend: floppy\n"), 0600))
	_, err := loadConfigYaml(path)
	assert.Error(t, err)

	_, err = loadConfigYaml(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func newService(t *testing.T) *service.Service {
	client, err := restclient.New(restclient.Config{})
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	svc, err := service.New(context.Background(), service.Config{
		Store:  memory.New(),
		Remote: client,
		Logger: logger,
	})
	require.NoError(t, err)
	return svc
}

func TestHandler(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := &HTTP{svc: newService(t), logRequests: true, logger: logger}
	handler := h.Handler()

	for _, path := range []string{"/", "/cache", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetrics(t *testing.T) {
	svc := newService(t)
	m := newMetrics()
	m.MustRegister(prometheus.NewRegistry())
	m.Watch(svc.Log())

	svc.ClearCache()
	svc.DeleteCacheEntry("RUN-1")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues(testcache.EventClear)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues(testcache.EventDelete)))

	m.Update(testcache.CacheStatus{TestRunCacheSize: 3, AttachmentsCacheSize: 2, InFlightCount: 1, StorageBytesUsed: 100})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Entries.WithLabelValues("testRuns")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Entries.WithLabelValues("attachments")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.StorageBytes))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Observe(ctx, svc, time.Hour)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Entries.WithLabelValues("testRuns")))
}
