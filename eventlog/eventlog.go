// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package eventlog keeps a bounded, in-memory trail of cache events
// for diagnostics.  It is never consulted by cache logic.
package eventlog

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-testcache/testcache"
	"github.com/sirupsen/logrus"
)

// DefaultCapacity is the number of records retained by default.
const DefaultCapacity = 500

// Log is a fixed-capacity ring buffer of event records.  Once full,
// each append overwrites the oldest record.  A Log can be safely used
// from multiple goroutines.
type Log struct {
	lock    sync.Mutex
	clock   clock.Clock
	logger  logrus.FieldLogger
	records []testcache.EventRecord
	start   int
	count   int
	hooks   []func(testcache.EventRecord)
}

// New creates a new event log holding at most capacity records,
// timestamped from the real wall clock.
func New(capacity int) *Log {
	return NewWithClock(capacity, clock.New())
}

// NewWithClock creates a new event log using an explicit time source.
// A non-positive capacity selects DefaultCapacity.
func NewWithClock(capacity int, clk clock.Clock) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		clock:   clk,
		records: make([]testcache.EventRecord, capacity),
	}
}

// SetLogger mirrors every subsequent record to logger.  Failure
// actions are logged at warning level and everything else at debug.
func (l *Log) SetLogger(logger logrus.FieldLogger) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.logger = logger
}

// OnAppend registers a function called with every appended record,
// outside the log's lock.
func (l *Log) OnAppend(hook func(testcache.EventRecord)) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Append adds a record with the current time.
func (l *Log) Append(action, details string) {
	rec := testcache.EventRecord{
		Timestamp: l.clock.Now(),
		Action:    action,
		Details:   details,
	}

	l.lock.Lock()
	capacity := len(l.records)
	if l.count < capacity {
		l.records[(l.start+l.count)%capacity] = rec
		l.count++
	} else {
		l.records[l.start] = rec
		l.start = (l.start + 1) % capacity
	}
	logger := l.logger
	hooks := l.hooks
	l.lock.Unlock()

	if logger != nil {
		entry := logger.WithFields(logrus.Fields{
			"action":  action,
			"details": details,
		})
		if testcache.IsErrorEvent(action) {
			entry.Warn("cache event")
		} else {
			entry.Debug("cache event")
		}
	}
	for _, hook := range hooks {
		hook(rec)
	}
}

// Records returns a copy of the retained records, oldest first.
func (l *Log) Records() []testcache.EventRecord {
	l.lock.Lock()
	defer l.lock.Unlock()
	result := make([]testcache.EventRecord, l.count)
	for i := 0; i < l.count; i++ {
		result[i] = l.records[(l.start+i)%len(l.records)]
	}
	return result
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.count
}

// Capacity returns the maximum number of retained records.
func (l *Log) Capacity() int {
	return len(l.records)
}
