// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-testcache/eventlog"
	"github.com/diffeo/go-testcache/testcache"
	"github.com/stretchr/testify/require"
)

// epoch is an arbitrary realistic wall-clock time for the mock clock.
// A mock clock starts at the Unix epoch, which no stored entry could
// be older than.
var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	Clock *clock.Mock
	Log   *eventlog.Log
	Runs  *TTLCache[[]string]
	Atts  *TTLCache[[]string]
}

func newHarness(store testcache.Store) *harness {
	clk := clock.NewMock()
	clk.Add(epoch.Sub(clk.Now()))
	log := eventlog.NewWithClock(0, clk)
	return &harness{
		Clock: clk,
		Log:   log,
		Runs: NewTTLCache[[]string](Config{
			Name:  testcache.TestRunStoreKey,
			Label: "testRuns",
			Store: store,
			Log:   log,
			Clock: clk,
		}),
		Atts: NewTTLCache[[]string](Config{
			Name:  testcache.AttachmentsStoreKey,
			Label: "attachments",
			Store: store,
			Log:   log,
			Clock: clk,
		}),
	}
}

// flush waits for both namespaces' pending writes.
func (h *harness) flush(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Runs.Flush(ctx))
	require.NoError(t, h.Atts.Flush(ctx))
}

// events returns the logged records with the given action.
func (h *harness) events(action string) []string {
	var details []string
	for _, r := range h.Log.Records() {
		if r.Action == action {
			details = append(details, r.Details)
		}
	}
	return details
}

// actions returns every logged action in order.
func (h *harness) actions() []string {
	var actions []string
	for _, r := range h.Log.Records() {
		actions = append(actions, r.Action)
	}
	return actions
}

func ms(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// faultyStore wraps a real store and fails selected operations.
type faultyStore struct {
	testcache.Store
	FailGet bool
	FailSet bool

	// FailGetName, if set, fails reads of only that name.
	FailGetName string
}

func (s *faultyStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	if s.FailGet || (s.FailGetName != "" && s.FailGetName == name) {
		return nil, false, errStore
	}
	return s.Store.Get(ctx, name)
}

func (s *faultyStore) Set(ctx context.Context, name string, data []byte) error {
	if s.FailSet {
		return errStore
	}
	return s.Store.Set(ctx, name, data)
}

type storeError struct{}

func (storeError) Error() string { return "quota exceeded" }

var errStore error = storeError{}

// waitFor polls cond until it holds or a few seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
