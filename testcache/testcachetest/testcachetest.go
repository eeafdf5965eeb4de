// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package testcachetest provides generic functional tests for the
// testcache.Store interface.  A typical store test module wraps Suite
// to create its store:
//
//     package mystore
//
//     import (
//             "testing"
//             "github.com/diffeo/go-testcache/testcache/testcachetest"
//             "github.com/stretchr/testify/suite"
//     )
//
//     // Suite is the per-store generic test suite.
//     type Suite struct{
//             testcachetest.Suite
//     }
//
//     // SetupSuite does global setup for the test suite.
//     func (s *Suite) SetupSuite() {
//             s.Store = New()
//     }
//
//     // TestStore runs the Store generic tests.
//     func TestStore(t *testing.T) {
//             suite.Run(t, &Suite{})
//     }
package testcachetest

import (
	"context"
	"sync"

	"github.com/diffeo/go-testcache/testcache"
	"github.com/stretchr/testify/suite"
)

// Suite is the generic Store test suite.
type Suite struct {
	suite.Suite

	// Store contains the store under test.  It is set by
	// importing packages.
	Store testcache.Store
}

// SetupTest empties the store before each test.
func (s *Suite) SetupTest() {
	s.Require().NoError(s.Store.Clear(context.Background()))
}

// TearDownSuite empties the store after the last test.
func (s *Suite) TearDownSuite() {
	if s.Store != nil {
		_ = s.Store.Clear(context.Background())
	}
}

// TestGetMissing checks that an absent name is reported as such.
func (s *Suite) TestGetMissing() {
	data, ok, err := s.Store.Get(context.Background(), "missing")
	s.NoError(err)
	s.False(ok)
	s.Nil(data)
}

// TestSetGet checks a basic round trip.
func (s *Suite) TestSetGet() {
	ctx := context.Background()
	blob := []byte(`{"CT-1":{"data":[],"ts":1}}`)
	s.Require().NoError(s.Store.Set(ctx, testcache.TestRunStoreKey, blob))

	data, ok, err := s.Store.Get(ctx, testcache.TestRunStoreKey)
	s.NoError(err)
	s.True(ok)
	s.Equal(blob, data)
}

// TestOverwrite checks that Set replaces the whole blob.
func (s *Suite) TestOverwrite() {
	ctx := context.Background()
	s.Require().NoError(s.Store.Set(ctx, "name", []byte("a much longer first value")))
	s.Require().NoError(s.Store.Set(ctx, "name", []byte("short")))

	data, ok, err := s.Store.Get(ctx, "name")
	s.NoError(err)
	s.True(ok)
	s.Equal([]byte("short"), data)
}

// TestRemove checks that removing some names leaves the others.
func (s *Suite) TestRemove() {
	ctx := context.Background()
	s.Require().NoError(s.Store.Set(ctx, testcache.TestRunStoreKey, []byte("{}")))
	s.Require().NoError(s.Store.Set(ctx, testcache.AttachmentsStoreKey, []byte("{}")))
	s.Require().NoError(s.Store.Set(ctx, testcache.SettingsStoreKey, []byte("{}")))

	err := s.Store.Remove(ctx, testcache.TestRunStoreKey, testcache.AttachmentsStoreKey, "never-stored")
	s.NoError(err)

	_, ok, err := s.Store.Get(ctx, testcache.TestRunStoreKey)
	s.NoError(err)
	s.False(ok)
	_, ok, err = s.Store.Get(ctx, testcache.AttachmentsStoreKey)
	s.NoError(err)
	s.False(ok)
	_, ok, err = s.Store.Get(ctx, testcache.SettingsStoreKey)
	s.NoError(err)
	s.True(ok)
}

// TestClear checks that Clear removes everything.
func (s *Suite) TestClear() {
	ctx := context.Background()
	s.Require().NoError(s.Store.Set(ctx, "a", []byte("1")))
	s.Require().NoError(s.Store.Set(ctx, "b", []byte("2")))
	s.Require().NoError(s.Store.Clear(ctx))

	for _, name := range []string{"a", "b"} {
		_, ok, err := s.Store.Get(ctx, name)
		s.NoError(err)
		s.False(ok, name)
	}
	used, err := s.Store.BytesInUse(ctx)
	s.NoError(err)
	s.Equal(int64(0), used)
}

// TestBytesInUse checks the size accounting, which counts each name
// plus its blob.
func (s *Suite) TestBytesInUse() {
	ctx := context.Background()
	used, err := s.Store.BytesInUse(ctx, "a", "bb")
	s.NoError(err)
	s.Equal(int64(0), used)

	s.Require().NoError(s.Store.Set(ctx, "a", []byte("12345")))
	s.Require().NoError(s.Store.Set(ctx, "bb", []byte("123")))
	s.Require().NoError(s.Store.Set(ctx, "ccc", []byte("1")))

	used, err = s.Store.BytesInUse(ctx, "a", "bb")
	s.NoError(err)
	s.Equal(int64(1+5+2+3), used)

	used, err = s.Store.BytesInUse(ctx, "a", "missing")
	s.NoError(err)
	s.Equal(int64(1+5), used)

	used, err = s.Store.BytesInUse(ctx)
	s.NoError(err)
	s.Equal(int64(1+5+2+3+3+1), used)
}

// TestConcurrentSet checks that concurrent writers to one name leave
// exactly one of their values behind.
func (s *Suite) TestConcurrentSet() {
	ctx := context.Background()
	values := []string{"alpha", "beta", "gamma", "delta"}
	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			s.NoError(s.Store.Set(ctx, "name", []byte(v)))
		}(v)
	}
	wg.Wait()

	data, ok, err := s.Store.Get(ctx, "name")
	s.NoError(err)
	s.True(ok)
	s.Contains(values, string(data))
}
