// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-testcache/eventlog"
	"github.com/diffeo/go-testcache/testcache"
)

// defaultPersistTimeout bounds a single snapshot write.
const defaultPersistTimeout = 30 * time.Second

// Config describes one cache namespace.
type Config struct {
	// Name is the durable store key for this namespace's
	// snapshot.  Required.
	Name string

	// Label is a short human-readable namespace name used in
	// event log details.  If unset, uses Name.
	Label string

	// TTL is the maximum age of a live entry.  If unset, uses
	// testcache.DefaultTTL.
	TTL time.Duration

	// Store receives a full snapshot after every mutation.  If
	// nil, the cache is purely in-memory.
	Store testcache.Store

	// Log receives cache events.  If nil, a private log is
	// created.
	Log *eventlog.Log

	// Clock is the time source for entry ages.  Only test code
	// should need to set this.  If unset, uses real wall-clock
	// time.
	Clock clock.Clock

	// PersistTimeout bounds each snapshot write.  If unset,
	// defaults to 30 seconds.
	PersistTimeout time.Duration
}

func (cfg *Config) setDefaults() {
	if cfg.Label == "" {
		cfg.Label = cfg.Name
	}
	if cfg.TTL <= 0 {
		cfg.TTL = testcache.DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Log == nil {
		cfg.Log = eventlog.NewWithClock(0, cfg.Clock)
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
}

// entry is the in-memory and persisted form of one cached value.
// The timestamp is in milliseconds since the Unix epoch.
type entry[V any] struct {
	Data V     `json:"data"`
	TS   int64 `json:"ts"`
}

// TTLCache is a map of keys to values with a fixed time-to-live.
// Expired entries are removed lazily when read; nothing sweeps the
// map in the background.  Every mutation schedules a write of the
// whole map to the durable store, without blocking the caller.  The
// cache can be safely accessed from multiple goroutines.
type TTLCache[V any] struct {
	cfg Config

	lock    sync.Mutex
	entries map[string]entry[V]
	// gen counts mutations; written is the last generation
	// that reached the store.
	gen     uint64
	written uint64
	// cleared is set by Clear and reset by any other mutation,
	// and makes the next flush remove the snapshot instead of
	// writing it.
	cleared bool

	// writes counts scheduled snapshot writes; idle is closed
	// whenever it is zero.
	writes int
	idle   chan struct{}

	persistLock sync.Mutex
}

// NewTTLCache creates an empty cache namespace.  Call RestoreAll to load
// its persisted snapshot.
func NewTTLCache[V any](cfg Config) *TTLCache[V] {
	cfg.setDefaults()
	idle := make(chan struct{})
	close(idle)
	return &TTLCache[V]{
		cfg:     cfg,
		entries: make(map[string]entry[V]),
		idle:    idle,
	}
}

// Name returns the durable store key of this namespace.
func (c *TTLCache[V]) Name() string {
	return c.cfg.Name
}

// Label returns the short namespace name used in event details.
func (c *TTLCache[V]) Label() string {
	return c.cfg.Label
}

// TTL returns the configured time-to-live.
func (c *TTLCache[V]) TTL() time.Duration {
	return c.cfg.TTL
}

func (c *TTLCache[V]) detail(key string) string {
	return c.cfg.Label + ": " + key
}

func (c *TTLCache[V]) now() int64 {
	return c.cfg.Clock.Now().UnixNano() / int64(time.Millisecond)
}

// live says whether an entry stored at ts is still fresh at now.
func (c *TTLCache[V]) live(ts, now int64) bool {
	return time.Duration(now-ts)*time.Millisecond <= c.cfg.TTL
}

// Get returns the value stored under key.  If the key is absent, or
// the entry is older than the TTL, returns ok == false; an expired
// entry is also removed.  Reading never extends an entry's lifetime.
func (c *TTLCache[V]) Get(key string) (value V, ok bool) {
	c.lock.Lock()
	e, present := c.entries[key]
	if !present {
		c.lock.Unlock()
		return value, false
	}
	if !c.live(e.TS, c.now()) {
		delete(c.entries, key)
		c.lock.Unlock()
		c.cfg.Log.Append(testcache.EventExpired, c.detail(key))
		return value, false
	}
	c.lock.Unlock()
	return e.Data, true
}

// Set stores value under key, timestamped now, and schedules a
// snapshot write.  Persistence failures are logged as PERSIST_ERR
// and never reported to the caller.
func (c *TTLCache[V]) Set(key string, value V) {
	c.lock.Lock()
	c.entries[key] = entry[V]{Data: value, TS: c.now()}
	c.cleared = false
	c.gen++
	c.lock.Unlock()
	c.schedulePersist()
}

// Delete removes key, persists the reduced snapshot, and reports
// whether anything was removed.  Deleting an absent key writes
// nothing.
func (c *TTLCache[V]) Delete(key string) bool {
	c.lock.Lock()
	_, present := c.entries[key]
	if present {
		delete(c.entries, key)
		c.cleared = false
		c.gen++
	}
	c.lock.Unlock()

	if !present {
		c.cfg.Log.Append(testcache.EventDelete, c.detail(key)+" not found")
		return false
	}
	c.cfg.Log.Append(testcache.EventDelete, c.detail(key)+" removed")
	c.schedulePersist()
	return true
}

// Clear empties the cache and removes its snapshot from the store.
func (c *TTLCache[V]) Clear() {
	c.lock.Lock()
	c.entries = make(map[string]entry[V])
	c.cleared = true
	c.gen++
	c.lock.Unlock()
	c.schedulePersist()
}

// Len returns the number of entries, including any that have expired
// but not yet been read.
func (c *TTLCache[V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.entries)
}

// Keys returns the cached keys in sorted order.
func (c *TTLCache[V]) Keys() []string {
	c.lock.Lock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.lock.Unlock()
	sort.Strings(keys)
	return keys
}

// Peek returns the value under key without checking or enforcing
// its age.  Intended for status reporting.
func (c *TTLCache[V]) Peek(key string) (value V, ok bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	e, ok := c.entries[key]
	return e.Data, ok
}

// StoredAt returns the time key was written.
func (c *TTLCache[V]) StoredAt(key string) (time.Time, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(0, e.TS*int64(time.Millisecond)), true
}

// Flush waits for every scheduled snapshot write to finish, or for
// ctx to be done.
func (c *TTLCache[V]) Flush(ctx context.Context) error {
	c.lock.Lock()
	idle := c.idle
	c.lock.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *TTLCache[V]) schedulePersist() {
	if c.cfg.Store == nil {
		return
	}
	c.lock.Lock()
	if c.writes == 0 {
		c.idle = make(chan struct{})
	}
	c.writes++
	c.lock.Unlock()

	go func() {
		c.persist()
		c.lock.Lock()
		c.writes--
		if c.writes == 0 {
			close(c.idle)
		}
		c.lock.Unlock()
	}()
}

// persist writes the current state of the map.  Writes are
// serialized, and a write that finds a newer generation already in
// the store does nothing, so an older snapshot never replaces a newer
// one.
func (c *TTLCache[V]) persist() {
	c.persistLock.Lock()
	defer c.persistLock.Unlock()

	c.lock.Lock()
	gen := c.gen
	if gen <= c.written {
		c.lock.Unlock()
		return
	}
	cleared := c.cleared
	snapshot := make(map[string]entry[V], len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
	defer cancel()

	var err error
	if cleared {
		err = c.cfg.Store.Remove(ctx, c.cfg.Name)
	} else {
		var data []byte
		data, err = encodeSnapshot(snapshot)
		if err == nil {
			err = c.cfg.Store.Set(ctx, c.cfg.Name, data)
		}
	}
	if err != nil {
		c.cfg.Log.Append(testcache.EventPersistErr, c.cfg.Name+": "+err.Error())
		return
	}

	c.lock.Lock()
	c.written = gen
	c.lock.Unlock()
	if cleared {
		c.cfg.Log.Append(testcache.EventPersist, c.cfg.Name+": removed")
	} else {
		c.cfg.Log.Append(testcache.EventPersist, fmt.Sprintf("%s: %d entries", c.cfg.Name, len(snapshot)))
	}
}

// restore loads the persisted snapshot, admitting only live entries.
// found is false if the store held no snapshot.
func (c *TTLCache[V]) restore(ctx context.Context) (kept, expired int, found bool, err error) {
	if c.cfg.Store == nil {
		return 0, 0, false, nil
	}
	data, found, err := c.cfg.Store.Get(ctx, c.cfg.Name)
	if err != nil || !found {
		return 0, 0, found, err
	}
	var snapshot map[string]entry[V]
	if err = decodeSnapshot(data, &snapshot); err != nil {
		return 0, 0, true, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	now := c.now()
	for key, e := range snapshot {
		// An entry without a timestamp is as good as expired
		if e.TS > 0 && c.live(e.TS, now) {
			c.entries[key] = e
		} else {
			expired++
		}
	}
	return len(c.entries), expired, true, nil
}

// rewrite schedules a snapshot write of the current map even if
// nothing changed in memory.
func (c *TTLCache[V]) rewrite() {
	c.lock.Lock()
	c.gen++
	c.lock.Unlock()
	c.schedulePersist()
}
