// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store persists a mempool and the confirmed outputs it spends on a
// key/value engine.
//
// Records are grouped by a one byte prefix:
//
//	m|<seq>         time added and raw transaction of a mempool entry
//	u|<outpoint>    value and public key script of an unspent output
//	k|<txid>        marker for a recently confirmed transaction
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/pkgrelay/database/engine"
	"github.com/btcsuite/pkgrelay/database/engine/leveldb"
	"github.com/btcsuite/pkgrelay/database/engine/pebbledb"
	"github.com/btcsuite/pkgrelay/mempool"
)

const (
	// TypeLevelDB selects the goleveldb engine.
	TypeLevelDB = "leveldb"

	// TypePebble selects the pebble engine.
	TypePebble = "pebble"
)

// SupportedTypes lists the engine names accepted by Open.
var SupportedTypes = []string{TypeLevelDB, TypePebble}

var (
	mempoolPrefix = []byte("m|")
	utxoPrefix    = []byte("u|")
	knownPrefix   = []byte("k|")

	// byteOrder is the preferred byte order used for serializing numeric
	// fields for storage in the database.
	byteOrder = binary.LittleEndian
)

var (
	// ErrUnknownType is returned by Open for an unsupported engine name.
	ErrUnknownType = errors.New("unknown database type")

	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = errors.New("corrupt database record")
)

// Store is a persistent mempool and UTXO set.
type Store struct {
	db engine.Engine
}

// Ensure the Store implements the mempool.UtxoSource interface.
var _ mempool.UtxoSource = (*Store)(nil)

// Open opens, creating if needed, the database of type dbType at path.
func Open(dbType, path string) (*Store, error) {
	_, err := os.Stat(path)
	create := os.IsNotExist(err)

	var db engine.Engine
	switch dbType {
	case TypeLevelDB:
		db, err = leveldb.NewDB(path, create)
	case TypePebble:
		db, err = pebbledb.NewDB(path, create, pebbledb.DefaultCache,
			pebbledb.DefaultHandles)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open %s database at %s: %w",
			dbType, path, err)
	}

	log.Infof("Opened %s database at %s", dbType, path)
	return New(db), nil
}

// New returns a store over an open engine.
func New(db engine.Engine) *Store {
	return &Store{db: db}
}

// Close closes the underlying engine.
func (s *Store) Close() error {
	return s.db.Close()
}

// update runs fn in a transaction and commits it when fn succeeds.
func (s *Store) update(fn func(tx engine.Transaction) error) error {
	tx, err := s.db.Transaction()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// view runs fn against a snapshot.
func (s *Store) view(fn func(snap engine.Snapshot) error) error {
	snap, err := s.db.Snapshot()
	if err != nil {
		return err
	}
	defer snap.Release()

	return fn(snap)
}

// forEach calls fn for every pair under prefix in key order.
func forEach(snap engine.Snapshot, prefix []byte,
	fn func(key, value []byte) error) error {

	iter := snap.NewIterator(engine.BytesPrefix(prefix))
	defer iter.Release()

	for ok := iter.First(); ok; ok = iter.Next() {
		if err := fn(iter.Key()[len(prefix):], iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// StoredEntry is a mempool entry as persisted by SaveMempool. The fee is not
// stored since it is recomputed when the entry is validated again.
type StoredEntry struct {
	Tx    *btcutil.Tx
	Added time.Time
}

// mempoolKey returns the key of the entry at position seq.
func mempoolKey(seq uint32) []byte {
	key := make([]byte, len(mempoolPrefix)+4)
	copy(key, mempoolPrefix)
	binary.BigEndian.PutUint32(key[len(mempoolPrefix):], seq)
	return key
}

// serializeEntry encodes an entry as unix time added and raw tx.
func serializeEntry(entry *mempool.TxEntry) ([]byte, error) {
	msgTx := entry.Tx.MsgTx()
	var buf bytes.Buffer
	buf.Grow(8 + msgTx.SerializeSize())

	var header [8]byte
	byteOrder.PutUint64(header[:], uint64(entry.Added.Unix()))
	buf.Write(header[:])

	if err := msgTx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeEntry decodes a value written by serializeEntry.
func deserializeEntry(value []byte) (StoredEntry, error) {
	if len(value) < 8 {
		return StoredEntry{}, fmt.Errorf("%w: mempool entry of %d bytes",
			ErrCorrupt, len(value))
	}

	var msgTx wire.MsgTx
	if err := msgTx.Deserialize(bytes.NewReader(value[8:])); err != nil {
		return StoredEntry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return StoredEntry{
		Tx:    btcutil.NewTx(&msgTx),
		Added: time.Unix(int64(byteOrder.Uint64(value[0:8])), 0),
	}, nil
}

// SaveMempool replaces the persisted mempool with entries. The order of
// entries is kept, so a mempool saved in admission order reloads with every
// parent before its children.
func (s *Store) SaveMempool(entries []*mempool.TxEntry) error {
	var stale [][]byte
	err := s.view(func(snap engine.Snapshot) error {
		return forEach(snap, mempoolPrefix, func(key, _ []byte) error {
			k := make([]byte, len(mempoolPrefix)+len(key))
			copy(k, mempoolPrefix)
			copy(k[len(mempoolPrefix):], key)
			stale = append(stale, k)
			return nil
		})
	})
	if err != nil {
		return err
	}

	err = s.update(func(tx engine.Transaction) error {
		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		for i, entry := range entries {
			value, err := serializeEntry(entry)
			if err != nil {
				return err
			}
			if err := tx.Put(mempoolKey(uint32(i)), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to save mempool: %w", err)
	}

	log.Debugf("Saved %d mempool entries", len(entries))
	return nil
}

// LoadMempool returns the persisted mempool in saved order.
func (s *Store) LoadMempool() ([]StoredEntry, error) {
	var entries []StoredEntry
	err := s.view(func(snap engine.Snapshot) error {
		return forEach(snap, mempoolPrefix, func(_, value []byte) error {
			entry, err := deserializeEntry(value)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// utxoKey returns the key of op.
func utxoKey(op wire.OutPoint) []byte {
	key := make([]byte, len(utxoPrefix)+chainhash.HashSize+4)
	copy(key, utxoPrefix)
	copy(key[len(utxoPrefix):], op.Hash[:])
	binary.BigEndian.PutUint32(key[len(utxoPrefix)+chainhash.HashSize:],
		op.Index)
	return key
}

// outPointFromKey decodes the suffix of a utxo key.
func outPointFromKey(key []byte) (wire.OutPoint, error) {
	if len(key) != chainhash.HashSize+4 {
		return wire.OutPoint{}, fmt.Errorf("%w: utxo key of %d bytes",
			ErrCorrupt, len(key))
	}
	var op wire.OutPoint
	copy(op.Hash[:], key[:chainhash.HashSize])
	op.Index = binary.BigEndian.Uint32(key[chainhash.HashSize:])
	return op, nil
}

// serializeUtxo encodes an output as its value followed by its script.
func serializeUtxo(txOut *wire.TxOut) []byte {
	value := make([]byte, 8+len(txOut.PkScript))
	byteOrder.PutUint64(value, uint64(txOut.Value))
	copy(value[8:], txOut.PkScript)
	return value
}

// deserializeUtxo decodes a value written by serializeUtxo.
func deserializeUtxo(value []byte) (*wire.TxOut, error) {
	if len(value) < 8 {
		return nil, fmt.Errorf("%w: utxo of %d bytes", ErrCorrupt,
			len(value))
	}
	script := make([]byte, len(value)-8)
	copy(script, value[8:])
	return wire.NewTxOut(int64(byteOrder.Uint64(value)), script), nil
}

// PutUtxo records op as confirmed and unspent.
func (s *Store) PutUtxo(op wire.OutPoint, txOut *wire.TxOut) error {
	return s.update(func(tx engine.Transaction) error {
		return tx.Put(utxoKey(op), serializeUtxo(txOut))
	})
}

// DeleteUtxo marks op as spent.
func (s *Store) DeleteUtxo(op wire.OutPoint) error {
	return s.update(func(tx engine.Transaction) error {
		return tx.Delete(utxoKey(op))
	})
}

// ConnectTransaction spends the inputs of a confirmed transaction and adds
// its outputs in one write.
func (s *Store) ConnectTransaction(t *btcutil.Tx) error {
	return s.update(func(tx engine.Transaction) error {
		for _, txIn := range t.MsgTx().TxIn {
			err := tx.Delete(utxoKey(txIn.PreviousOutPoint))
			if err != nil {
				return err
			}
		}
		for i, txOut := range t.MsgTx().TxOut {
			op := wire.OutPoint{Hash: *t.Hash(), Index: uint32(i)}
			if err := tx.Put(utxoKey(op), serializeUtxo(txOut)); err != nil {
				return err
			}
		}
		return nil
	})
}

// FetchOutput returns the unspent output at op. Read failures are logged
// and reported as a missing output.
func (s *Store) FetchOutput(op wire.OutPoint) (*wire.TxOut, bool) {
	var txOut *wire.TxOut
	err := s.view(func(snap engine.Snapshot) error {
		value, err := snap.Get(utxoKey(op))
		if err != nil {
			return err
		}
		txOut, err = deserializeUtxo(value)
		return err
	})
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return nil, false
	case err != nil:
		log.Errorf("Unable to fetch output %v: %v", op, err)
		return nil, false
	}
	return txOut, true
}

// Utxos returns every unspent output.
func (s *Store) Utxos() (map[wire.OutPoint]*wire.TxOut, error) {
	utxos := make(map[wire.OutPoint]*wire.TxOut)
	err := s.view(func(snap engine.Snapshot) error {
		return forEach(snap, utxoPrefix, func(key, value []byte) error {
			op, err := outPointFromKey(key)
			if err != nil {
				return err
			}
			txOut, err := deserializeUtxo(value)
			if err != nil {
				return err
			}
			utxos[op] = txOut
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return utxos, nil
}

// knownKey returns the key marking hash as recently confirmed.
func knownKey(hash chainhash.Hash) []byte {
	key := make([]byte, len(knownPrefix)+chainhash.HashSize)
	copy(key, knownPrefix)
	copy(key[len(knownPrefix):], hash[:])
	return key
}

// PutKnown records hashes as recently confirmed.
func (s *Store) PutKnown(hashes ...chainhash.Hash) error {
	return s.update(func(tx engine.Transaction) error {
		for _, h := range hashes {
			if err := tx.Put(knownKey(h), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Known returns every recently confirmed txid in byte order.
func (s *Store) Known() ([]chainhash.Hash, error) {
	var hashes []chainhash.Hash
	err := s.view(func(snap engine.Snapshot) error {
		return forEach(snap, knownPrefix, func(key, _ []byte) error {
			hash, err := chainhash.NewHash(key)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			hashes = append(hashes, *hash)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return hashes, nil
}
