// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/diffeo/go-testcache/eventlog"
	"github.com/diffeo/go-testcache/testcache"
)

// Restorable is a cache namespace that can reload its persisted
// snapshot.  *TTLCache implements it.
type Restorable interface {
	Label() string
	restore(ctx context.Context) (kept, expired int, found bool, err error)
	rewrite()
}

// RestoreStats summarizes a restore pass.
type RestoreStats struct {
	// Kept maps each namespace label to the number of live
	// entries admitted.
	Kept map[string]int

	// Expired counts stale entries dropped across all namespaces.
	Expired int

	// Empty is set if no namespace had a persisted snapshot.
	Empty bool
}

// RestoreAll loads every namespace's persisted snapshot, admitting
// only entries younger than the namespace TTL.  If any entry was
// dropped, the snapshot of every namespace that loaded is rewritten
// so the store no longer offers stale data.  A namespace whose
// snapshot cannot be loaded is logged as RESTORE_ERR, left empty, and
// its stored snapshot is left alone.
//
// This must complete before the caches are used.
func RestoreAll(ctx context.Context, log *eventlog.Log, caches ...Restorable) RestoreStats {
	stats := RestoreStats{Kept: make(map[string]int), Empty: true}
	summary := make([]string, 0, len(caches)+1)
	loaded := make([]Restorable, 0, len(caches))
	for _, c := range caches {
		kept, expired, found, err := c.restore(ctx)
		if err != nil {
			log.Append(testcache.EventRestoreErr, c.Label()+": "+err.Error())
		} else {
			loaded = append(loaded, c)
		}
		if found {
			stats.Empty = false
		}
		stats.Kept[c.Label()] = kept
		stats.Expired += expired
		summary = append(summary, fmt.Sprintf("%s: %d", c.Label(), kept))
	}

	if stats.Empty {
		log.Append(testcache.EventRestore, "storage empty")
		return stats
	}
	summary = append(summary, fmt.Sprintf("expired: %d", stats.Expired))
	log.Append(testcache.EventRestore, strings.Join(summary, ", "))

	if stats.Expired > 0 {
		for _, c := range loaded {
			c.rewrite()
		}
	}
	return stats
}
