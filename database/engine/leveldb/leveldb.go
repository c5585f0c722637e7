// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb implements the storage engine on goleveldb.
package leveldb

import (
	"errors"

	"github.com/btcsuite/pkgrelay/database/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// NewDB opens the database at dbPath. When create is set the call fails if
// a database already exists there.
func NewDB(dbPath string, create bool) (engine.Engine, error) {
	opts := opt.Options{
		ErrorIfExist: create,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, err
	}
	return &DB{db: ldb}, nil
}

// DB adapts a goleveldb handle to engine.Engine.
type DB struct {
	db *leveldb.DB
}

func (d *DB) Transaction() (engine.Transaction, error) {
	tx, err := d.db.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx}, nil
}

func (d *DB) Snapshot() (engine.Snapshot, error) {
	s, err := d.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot{snap: s}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

type transaction struct {
	tx *leveldb.Transaction
}

func (t *transaction) Put(key, value []byte) error { return t.tx.Put(key, value, nil) }
func (t *transaction) Delete(key []byte) error     { return t.tx.Delete(key, nil) }
func (t *transaction) Commit() error               { return t.tx.Commit() }
func (t *transaction) Discard()                    { t.tx.Discard() }

type snapshot struct {
	snap *leveldb.Snapshot
}

func (s *snapshot) Has(key []byte) (bool, error) {
	return s.snap.Has(key, nil)
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	val, err := s.snap.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	return val, err
}

func (s *snapshot) Release() {
	s.snap.Release()
}

func (s *snapshot) NewIterator(r *engine.Range) engine.Iterator {
	return s.snap.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)
}
