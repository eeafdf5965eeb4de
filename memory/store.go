// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memory provides an in-process, in-memory implementation of
// testcache.Store.  Nothing survives the process, so this is mostly
// useful for tests and for running the daemon without durability.
package memory

import (
	"context"
	"sync"

	"github.com/diffeo/go-testcache/testcache"
)

// New creates a new empty in-memory store.
func New() testcache.Store {
	return &memStore{blobs: make(map[string][]byte)}
}

type memStore struct {
	lock  sync.RWMutex
	blobs map[string][]byte
}

func (s *memStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *memStore) Set(ctx context.Context, name string, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.blobs[name] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Remove(ctx context.Context, names ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, name := range names {
		delete(s.blobs, name)
	}
	return nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.blobs = make(map[string][]byte)
	return nil
}

func (s *memStore) BytesInUse(ctx context.Context, names ...string) (int64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var total int64
	if len(names) == 0 {
		for name, data := range s.blobs {
			total += int64(len(name) + len(data))
		}
		return total, nil
	}
	for _, name := range names {
		if data, ok := s.blobs[name]; ok {
			total += int64(len(name) + len(data))
		}
	}
	return total, nil
}

func (s *memStore) Close() error {
	return nil
}
