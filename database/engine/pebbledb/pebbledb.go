// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pebbledb implements the storage engine on cockroachdb/pebble.
package pebbledb

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/btcsuite/pkgrelay/database/engine"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

var (
	ErrDbClosed         = errors.New("pebbledb: closed")
	ErrTxClosed         = errors.New("pebbledb: transaction already closed")
	ErrSnapshotReleased = errors.New("pebbledb: snapshot released")
)

const (
	// DefaultCache is the block cache size in MiB.
	DefaultCache = 16

	// DefaultHandles is the open file limit.
	DefaultHandles = 16
)

// NewDB opens the database at dbPath. Zero cache or handles select the
// defaults.
func NewDB(dbPath string, create bool, cache, handles int) (engine.Engine, error) {
	if cache <= 0 {
		cache = DefaultCache
	}
	if handles <= 0 {
		handles = DefaultHandles
	}

	filter := bloom.FilterPolicy(10)
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(int64(cache * 1024 * 1024)),
		ErrorIfExists:            create,
		MaxOpenFiles:             handles,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels: []pebble.LevelOptions{
			{TargetFileSize: 2 * 1024 * 1024, FilterPolicy: filter},
			{TargetFileSize: 4 * 1024 * 1024, FilterPolicy: filter},
			{TargetFileSize: 8 * 1024 * 1024, FilterPolicy: filter},
		},
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

// DB adapts a pebble handle to engine.Engine.
type DB struct {
	db     *pebble.DB
	closed atomic.Bool
}

func (d *DB) Transaction() (engine.Transaction, error) {
	if d.closed.Load() {
		return nil, ErrDbClosed
	}
	return &transaction{batch: d.db.NewBatch()}, nil
}

func (d *DB) Snapshot() (engine.Snapshot, error) {
	if d.closed.Load() {
		return nil, ErrDbClosed
	}
	return &snapshot{snap: d.db.NewSnapshot()}, nil
}

func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return ErrDbClosed
	}
	return d.db.Close()
}

type transaction struct {
	batch    *pebble.Batch
	released bool
}

func (t *transaction) Put(key, value []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.batch.Set(key, value, pebble.NoSync)
}

func (t *transaction) Delete(key []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.batch.Delete(key, pebble.NoSync)
}

func (t *transaction) Commit() error {
	if t.released {
		return ErrTxClosed
	}
	err := t.batch.Commit(pebble.Sync)
	t.Discard()
	return err
}

func (t *transaction) Discard() {
	if !t.released {
		t.released = true
		t.batch.Close()
	}
}

type snapshot struct {
	snap     *pebble.Snapshot
	released bool
}

func (s *snapshot) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	if s.released {
		return nil, ErrSnapshotReleased
	}

	val, closer, err := s.snap.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, engine.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *snapshot) Release() {
	if !s.released {
		s.released = true
		s.snap.Close()
	}
}

func (s *snapshot) NewIterator(r *engine.Range) engine.Iterator {
	if s.released {
		return &iterator{err: ErrSnapshotReleased}
	}
	iter, err := s.snap.NewIter(&pebble.IterOptions{
		LowerBound: r.Start,
		UpperBound: r.Limit,
	})
	if err != nil {
		return &iterator{err: err}
	}
	return &iterator{iter: iter}
}

// iterator wraps a pebble iterator. A nil iter carries a construction error.
type iterator struct {
	iter     *pebble.Iterator
	err      error
	released bool
}

func (i *iterator) First() bool {
	if i.iter == nil || i.released {
		return false
	}
	return i.iter.First()
}

func (i *iterator) Next() bool {
	if i.iter == nil || i.released {
		return false
	}
	return i.iter.Next()
}

func (i *iterator) Key() []byte {
	if i.iter == nil || i.released || !i.iter.Valid() {
		return nil
	}
	return i.iter.Key()
}

func (i *iterator) Value() []byte {
	if i.iter == nil || i.released || !i.iter.Valid() {
		return nil
	}
	return i.iter.Value()
}

func (i *iterator) Error() error {
	switch {
	case i.err != nil:
		return i.err
	case i.released:
		return engine.ErrIterReleased
	}
	return i.iter.Error()
}

func (i *iterator) Release() {
	if !i.released {
		i.released = true
		if i.iter != nil {
			i.iter.Close()
		}
	}
}
