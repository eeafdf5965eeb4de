// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package backend provides a standard way to construct a blob store
// based on command-line flags.
package backend

import (
	"context"
	"errors"
	"strings"

	"github.com/diffeo/go-testcache/memory"
	"github.com/diffeo/go-testcache/redisstore"
	"github.com/diffeo/go-testcache/sqlstore"
	"github.com/diffeo/go-testcache/testcache"
)

// Backend describes user-visible parameters to store cached data.
// This implements the flag.Value interface, and so a typical use is
//
//     func main() {
//         backend := backend.Backend{"memory", ""}
//         flag.Var(&backend, "backend", "impl:address of cache storage")
//         flag.Parse()
//         store, err := backend.Store(ctx)
//     }
//
// The known implementations are "memory", "postgres" (address is a
// connection string), "sqlite3" (address is a file name) and "redis"
// (address is "host:port").
type Backend struct {
	// Implementation holds the name of the implementation; for
	// instance, "memory".
	Implementation string

	// Address holds some backend-specific address, such as a
	// database connect string.
	Address string
}

var implementations = map[string]bool{
	"memory":          true,
	sqlstore.Postgres: true,
	sqlstore.SQLite:   true,
	"redis":           true,
}

// Store creates a new blob store.  This generally should be only
// called once.  If b.Implementation is "memory", multiple calls to
// this will create multiple independent stores.
func (b *Backend) Store(ctx context.Context) (testcache.Store, error) {
	switch b.Implementation {
	case "memory":
		return memory.New(), nil
	case sqlstore.Postgres, sqlstore.SQLite:
		return sqlstore.New(b.Implementation, b.Address)
	case "redis":
		address := b.Address
		if address == "" {
			address = "localhost:6379"
		}
		return redisstore.New(ctx, address)
	default:
		return nil, errors.New("unknown cache backend " + b.Implementation)
	}
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks to see if the provided
// implementation is any of the known implementations, and returns an
// appropriate error if not.
//
// This is part of the flag.Value interface.  Neither Set nor String
// attempts to validate the b.Address part of the string or to make a
// connection.
func (b *Backend) Set(param string) error {
	parts := strings.SplitN(param, ":", 2)
	if parts[0] == "" {
		return errors.New("must specify a backend type")
	}
	if !implementations[parts[0]] {
		return errors.New("unknown cache backend " + parts[0])
	}
	b.Implementation = parts[0]
	b.Address = ""
	if len(parts) == 2 {
		b.Address = parts[1]
	}
	return nil
}
