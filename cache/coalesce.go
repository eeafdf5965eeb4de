// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/diffeo/go-testcache/testcache"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Loader fetches the value for a key from the remote system.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// Group puts a single-flight front end on a TTLCache.  A miss for some
// key results in exactly one outstanding call to the loader for that
// key, no matter how many callers are waiting on it.
type Group[V any] struct {
	cache  *TTLCache[V]
	count  func(V) int
	logger logrus.FieldLogger

	// lock makes the cache check and the pending registration
	// a single step.
	lock    sync.Mutex
	pending map[string]string
	flight  singleflight.Group
}

// NewGroup creates a fetch coalescer over cache.  count reports the
// cardinality of a loaded value for the event log; it may be nil.
func NewGroup[V any](cache *TTLCache[V], count func(V) int) *Group[V] {
	if count == nil {
		count = func(V) int { return 0 }
	}
	return &Group[V]{
		cache:   cache,
		count:   count,
		logger:  logrus.StandardLogger(),
		pending: make(map[string]string),
	}
}

// SetLogger replaces the logger used for fetch diagnostics.
func (g *Group[V]) SetLogger(logger logrus.FieldLogger) {
	g.logger = logger
}

// Cache returns the underlying cache.
func (g *Group[V]) Cache() *TTLCache[V] {
	return g.cache
}

// InFlight returns the number of fetches currently running.
func (g *Group[V]) InFlight() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return len(g.pending)
}

// Fetch returns the cached value for key, or loads it.  If another
// caller is already loading key, this waits for and shares its
// result.  A successful load is written into the cache before any
// waiter sees it; a failed load is not cached and is returned to every
// waiter.  Nothing is retried.
//
// If ctx is done before the load finishes, Fetch returns ctx.Err(),
// but the load keeps running for the remaining waiters.
func (g *Group[V]) Fetch(ctx context.Context, key string, loader Loader[V]) (V, error) {
	var zero V
	log := g.cache.cfg.Log
	detail := g.cache.detail(key)

	g.lock.Lock()
	if value, ok := g.cache.Get(key); ok {
		g.lock.Unlock()
		log.Append(testcache.EventHit, detail)
		return value, nil
	}
	fetchID, joining := g.pending[key]
	if joining {
		log.Append(testcache.EventInFlight, detail)
	} else {
		fetchID = uuid.NewV4().String()
		g.pending[key] = fetchID
		log.Append(testcache.EventFetch, detail)
	}
	// With key in pending, singleflight already has a call for it
	// and this joins without running the function
	loadCtx := context.WithoutCancel(ctx)
	results := g.flight.DoChan(key, func() (interface{}, error) {
		return g.load(loadCtx, key, fetchID, loader)
	})
	g.lock.Unlock()

	select {
	case res := <-results:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// load runs the loader for one fetch and settles it.  The pending
// registration is dropped before singleflight releases the waiters,
// so a caller arriving after settlement starts a new fetch.
func (g *Group[V]) load(ctx context.Context, key, fetchID string, loader Loader[V]) (value V, err error) {
	log := g.cache.cfg.Log
	detail := g.cache.detail(key)
	fields := logrus.Fields{
		"namespace": g.cache.cfg.Label,
		"key":       key,
		"fetch_id":  fetchID,
	}

	defer func() {
		g.lock.Lock()
		delete(g.pending, key)
		g.flight.Forget(key)
		g.lock.Unlock()
	}()
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("fetch panicked: %v", recovered)
			log.Append(testcache.EventFetchErr, detail+": "+err.Error())
			g.logger.WithFields(fields).WithField("err", recovered).Error("loader panicked")
		}
	}()

	value, err = loader(ctx, key)
	if err != nil {
		log.Append(testcache.EventFetchErr, detail+": "+err.Error())
		g.logger.WithFields(fields).WithError(err).Debug("fetch failed")
		return value, err
	}
	g.cache.Set(key, value)
	log.Append(testcache.EventFetched, fmt.Sprintf("%s → %d items", detail, g.count(value)))
	g.logger.WithFields(fields).Debug("fetch complete")
	return value, nil
}
