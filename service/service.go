// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package service implements the cache service: the operations UI
// collaborators use to look up test results, manage the cache, and
// configure the remote connection.
//
// A Service owns two cache namespaces, test runs keyed by test-run key
// and attachment listings keyed by test-result id, each behind a
// single-flight fetch group.  Creating a Service restores both
// namespaces from the durable store before returning, so any
// transport built on it only ever sees a restored cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-testcache/cache"
	"github.com/diffeo/go-testcache/eventlog"
	"github.com/diffeo/go-testcache/testcache"
)

// Config describes a cache service.
type Config struct {
	// Store holds the persisted caches and settings.  Required.
	Store testcache.Store

	// Remote is the test-management API.  Required.
	Remote testcache.Remote

	// TTL is the maximum age of a cached entry.  If unset, uses
	// testcache.DefaultTTL.
	TTL time.Duration

	// LogCapacity bounds the event log.  If unset, uses
	// eventlog.DefaultCapacity.
	LogCapacity int

	// Clock is the time source.  Only test code should need to
	// set this.  If unset, uses real wall-clock time.
	Clock clock.Clock

	// Logger receives diagnostics and a mirror of the event log.
	// If unset, uses the logrus standard logger.
	Logger logrus.FieldLogger

	// Name and Version are reported by CacheStatus.
	Name    string
	Version string

	// Settings are used if the store holds no saved settings.
	Settings testcache.Settings
}

func (cfg *Config) setDefaults() {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Name == "" {
		cfg.Name = "testcached"
	}
}

// Service is the cache service.  It is safe for concurrent use.
type Service struct {
	cfg Config
	log *eventlog.Log

	runs     *cache.TTLCache[[]testcache.TestResult]
	atts     *cache.TTLCache[[]testcache.Attachment]
	runGroup *cache.Group[[]testcache.TestResult]
	attGroup *cache.Group[[]testcache.Attachment]

	settingsLock sync.RWMutex
	settings     testcache.Settings
}

// New creates a service, restoring its caches and settings from
// cfg.Store.  Restore problems are recorded in the event log and do
// not prevent the service from starting cold.
func New(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Store == nil || cfg.Remote == nil {
		return nil, errors.New("Service needs both a store and a remote")
	}
	cfg.setDefaults()

	log := eventlog.NewWithClock(cfg.LogCapacity, cfg.Clock)
	log.SetLogger(cfg.Logger)
	s := &Service{cfg: cfg, log: log}
	s.runs = cache.NewTTLCache[[]testcache.TestResult](cache.Config{
		Name:  testcache.TestRunStoreKey,
		Label: "testRuns",
		TTL:   cfg.TTL,
		Store: cfg.Store,
		Log:   log,
		Clock: cfg.Clock,
	})
	s.atts = cache.NewTTLCache[[]testcache.Attachment](cache.Config{
		Name:  testcache.AttachmentsStoreKey,
		Label: "attachments",
		TTL:   cfg.TTL,
		Store: cfg.Store,
		Log:   log,
		Clock: cfg.Clock,
	})
	s.runGroup = cache.NewGroup(s.runs, func(v []testcache.TestResult) int { return len(v) })
	s.runGroup.SetLogger(cfg.Logger)
	s.attGroup = cache.NewGroup(s.atts, func(v []testcache.Attachment) int { return len(v) })
	s.attGroup.SetLogger(cfg.Logger)

	stats := cache.RestoreAll(ctx, log, s.runs, s.atts)
	cfg.Logger.WithFields(logrus.Fields{
		"testRuns":    stats.Kept[s.runs.Label()],
		"attachments": stats.Kept[s.atts.Label()],
		"expired":     stats.Expired,
	}).Info("cache restored")

	s.loadSettings(ctx)
	return s, nil
}

// Log returns the service's event log.
func (s *Service) Log() *eventlog.Log {
	return s.log
}

// Flush waits for every pending snapshot write to finish.
func (s *Service) Flush(ctx context.Context) error {
	if err := s.runs.Flush(ctx); err != nil {
		return err
	}
	return s.atts.Flush(ctx)
}

// GetTestResult looks up one test case within a test run.  The test
// run's results come from the cache or from a single shared remote
// fetch.  If includeAttachments is set and the matching result has an
// id, its attachment listing is fetched the same way; a failure there
// yields an empty listing rather than an error.
func (s *Service) GetTestResult(ctx context.Context, testRunKey, testCaseKey string, includeAttachments bool) (testcache.Lookup, error) {
	lookup := testcache.Lookup{Attachments: []testcache.Attachment{}}
	if testRunKey == "" {
		return lookup, testcache.ErrNoTestRunKey
	}
	results, err := s.runGroup.Fetch(ctx, testRunKey, s.cfg.Remote.TestResults)
	if err != nil {
		return lookup, err
	}

	var result testcache.TestResult
	for _, r := range results {
		if r.TestCaseKey() == testCaseKey {
			result = r
			break
		}
	}
	if result == nil {
		return lookup, nil
	}

	lookup.Found = true
	if comment := result.Comment(); comment != "" {
		lookup.Comment = &comment
	}
	if status := result.Status(); status != "" {
		lookup.Status = &status
	}
	id := result.ID()
	if includeAttachments && id != "" && id != "0" {
		attachments, err := s.attGroup.Fetch(ctx, id, s.cfg.Remote.Attachments)
		if err != nil {
			s.cfg.Logger.WithError(err).WithField("testResult", id).Debug("attachments unavailable")
		} else if attachments != nil {
			lookup.Attachments = attachments
		}
	}
	return lookup, nil
}

// PrefetchTestRun makes sure a test run's results are cached,
// fetching them if needed.
func (s *Service) PrefetchTestRun(ctx context.Context, testRunKey string) (testcache.PrefetchResult, error) {
	if testRunKey == "" {
		return testcache.PrefetchResult{}, testcache.ErrNoTestRunKey
	}
	results, err := s.runGroup.Fetch(ctx, testRunKey, s.cfg.Remote.TestResults)
	if err != nil {
		return testcache.PrefetchResult{}, err
	}
	return testcache.PrefetchResult{Success: true, ResultsCount: len(results)}, nil
}

// DeleteCacheEntry drops one test run from the cache, reporting
// whether it was there.
func (s *Service) DeleteCacheEntry(testRunKey string) bool {
	return s.runs.Delete(testRunKey)
}

// ClearCache empties both namespaces and removes their snapshots.
// Fetches already under way still complete and cache their results.
func (s *Service) ClearCache() {
	s.log.Append(testcache.EventClear, fmt.Sprintf("%s: %d, %s: %d",
		s.runs.Label(), s.runs.Len(), s.atts.Label(), s.atts.Len()))
	s.runs.Clear()
	s.atts.Clear()
}

// CacheStatus reports the current contents of the caches.  Entries
// that have expired but not yet been read are still counted.
func (s *Service) CacheStatus(ctx context.Context) testcache.CacheStatus {
	status := testcache.CacheStatus{
		TestRuns:             []testcache.TestRunSummary{},
		TestRunCacheSize:     s.runs.Len(),
		AttachmentsCacheSize: s.atts.Len(),
		InFlightCount:        s.runGroup.InFlight() + s.attGroup.InFlight(),
		Name:                 s.cfg.Name,
		Version:              s.cfg.Version,
		JiraURL:              s.cfg.Remote.BaseURL(),
	}
	status.Configured = status.JiraURL != ""
	for _, key := range s.runs.Keys() {
		results, ok := s.runs.Peek(key)
		if !ok {
			continue
		}
		status.TestRuns = append(status.TestRuns, testcache.TestRunSummary{
			Key:          key,
			ResultsCount: len(results),
		})
	}
	used, err := s.cfg.Store.BytesInUse(ctx, testcache.TestRunStoreKey, testcache.AttachmentsStoreKey)
	if err != nil {
		s.cfg.Logger.WithError(err).Warn("could not measure storage")
	} else {
		status.StorageBytesUsed = used
	}
	return status
}

// CacheLog returns a copy of the event log, oldest first.
func (s *Service) CacheLog() []testcache.EventRecord {
	return s.log.Records()
}

// DownloadAttachment saves one attachment to the download directory.
// It never touches the caches.
func (s *Service) DownloadAttachment(ctx context.Context, attachmentID, fileName string) (string, error) {
	if attachmentID == "" {
		return "", testcache.ErrNoAttachmentID
	}
	path, err := s.cfg.Remote.Download(ctx, attachmentID, fileName)
	if err != nil {
		return "", err
	}
	s.cfg.Logger.WithFields(logrus.Fields{
		"attachment": attachmentID,
		"path":       path,
	}).Info("attachment downloaded")
	return path, nil
}

// CurrentUser returns the remote user the service authenticates as.
func (s *Service) CurrentUser(ctx context.Context) (testcache.User, error) {
	return s.cfg.Remote.CurrentUser(ctx)
}
