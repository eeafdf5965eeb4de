// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package redisstore provides a testcache.Store backed by Redis.  Each
// named blob is a single Redis string under a common key prefix, so
// several caches may share one Redis database.
package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/diffeo/go-testcache/testcache"
)

// DefaultPrefix is prepended to every blob name unless a different
// prefix is given.
const DefaultPrefix = "testcache:"

type redisStore struct {
	client *redis.Client
	prefix string
}

// New creates a store connected to the Redis server at address
// ("host:port").  The connection is lazy; New only fails if the server
// does not answer a PING.
func New(ctx context.Context, address string) (testcache.Store, error) {
	return NewWithClient(ctx, redis.NewClient(&redis.Options{Addr: address}), DefaultPrefix)
}

// NewWithClient creates a store using an existing client and key
// prefix.  Closing the store closes the client.
func NewWithClient(ctx context.Context, client *redis.Client, prefix string) (testcache.Store, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) key(name string) string {
	return s.prefix + name
}

func (s *redisStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *redisStore) Set(ctx context.Context, name string, data []byte) error {
	return s.client.Set(ctx, s.key(name), data, 0).Err()
}

func (s *redisStore) Remove(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.key(name)
	}
	return s.client.Del(ctx, keys...).Err()
}

// names returns every blob name currently under the prefix.
func (s *redisStore) names(ctx context.Context) ([]string, error) {
	var names []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, iter.Val()[len(s.prefix):])
	}
	return names, iter.Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	names, err := s.names(ctx)
	if err != nil {
		return err
	}
	return s.Remove(ctx, names...)
}

func (s *redisStore) BytesInUse(ctx context.Context, names ...string) (int64, error) {
	if len(names) == 0 {
		var err error
		names, err = s.names(ctx)
		if err != nil {
			return 0, err
		}
	}
	pipe := s.client.Pipeline()
	lens := make([]*redis.IntCmd, len(names))
	for i, name := range names {
		lens[i] = pipe.StrLen(ctx, s.key(name))
	}
	if len(names) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, err
		}
	}
	var total int64
	for i, cmd := range lens {
		// STRLEN is 0 for a missing key
		if n := cmd.Val(); n > 0 {
			total += int64(len(names[i])) + n
		}
	}
	return total, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
