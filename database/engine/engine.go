// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package engine defines the minimal key/value storage contract the relay's
// persistent store is written against. Concrete backends live in the leveldb
// and pebbledb subpackages.
package engine

import "errors"

var (
	// ErrIterReleased is returned by an iterator that has been released.
	ErrIterReleased = errors.New("engine: iterator released")

	// ErrNotFound is returned by Snapshot.Get when the key does not exist.
	// Backends translate their native not-found error to this value.
	ErrNotFound = errors.New("engine: key not found")
)

// Engine is an open key/value database.
type Engine interface {
	// Transaction opens a write batch. Writes become visible to new
	// snapshots only after Commit.
	Transaction() (Transaction, error)

	// Snapshot returns a consistent read-only view of committed data.
	Snapshot() (Snapshot, error)

	Close() error
}

// Transaction is an atomic group of writes.
type Transaction interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Discard()
}

// Snapshot is a point-in-time read view.
type Snapshot interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewIterator(*Range) Iterator
	Releaser
}

// Releaser releases the resources held by a snapshot or iterator.
type Releaser interface {
	Release()
}

// Iterator walks the keys of a Range in ascending byte order.
type Iterator interface {
	// First moves to the first pair in the range and reports whether it
	// exists.
	First() bool

	// Next moves to the next pair. It returns false once exhausted.
	Next() bool

	// Key and Value return the current pair, or nil when exhausted. The
	// returned slices are only valid until the next move.
	Key() []byte
	Value() []byte

	// Error returns any accumulated error. Exhaustion is not an error.
	Error() error

	Releaser
}

// Range is a half-open key range [Start, Limit). A nil Limit is unbounded.
type Range struct {
	Start []byte
	Limit []byte
}

// BytesPrefix returns the range holding every key that starts with prefix.
func BytesPrefix(prefix []byte) *Range {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		if c := prefix[i]; c < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			break
		}
	}
	return &Range{Start: prefix, Limit: limit}
}
