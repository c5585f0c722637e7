// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxEntry is a transaction held by the mempool along with its cached
// relationships to other entries. Entries are owned by the index that
// created them and must be treated as read only by callers.
type TxEntry struct {
	Tx    *btcutil.Tx
	Fee   btcutil.Amount
	Size  int64
	Added time.Time

	// Aggregates over the mempool only, each including the entry itself.
	AncestorCount   int
	AncestorSize    int64
	AncestorFees    btcutil.Amount
	DescendantCount int
	DescendantSize  int64
	DescendantFees  btcutil.Amount

	seq         uint64
	parents     map[chainhash.Hash]*TxEntry
	children    map[chainhash.Hash]*TxEntry
	ancestors   map[chainhash.Hash]*TxEntry
	descendants map[chainhash.Hash]*TxEntry
}

// NewTxEntry returns an unlinked entry whose aggregates cover only the
// transaction itself.
func NewTxEntry(tx *btcutil.Tx, fee btcutil.Amount, added time.Time) *TxEntry {
	size := int64(tx.MsgTx().SerializeSize())
	return &TxEntry{
		Tx:              tx,
		Fee:             fee,
		Size:            size,
		Added:           added,
		AncestorCount:   1,
		AncestorSize:    size,
		AncestorFees:    fee,
		DescendantCount: 1,
		DescendantSize:  size,
		DescendantFees:  fee,
		parents:         make(map[chainhash.Hash]*TxEntry),
		children:        make(map[chainhash.Hash]*TxEntry),
		ancestors:       make(map[chainhash.Hash]*TxEntry),
		descendants:     make(map[chainhash.Hash]*TxEntry),
	}
}

// Hash returns the txid of the entry.
func (e *TxEntry) Hash() *chainhash.Hash {
	return e.Tx.Hash()
}

// FeePerKB returns the entry's own fee rate in satoshi per 1000 bytes.
func (e *TxEntry) FeePerKB() btcutil.Amount {
	return calcFeePerKB(e.Fee, e.Size)
}

// RelativeSet is a read-only view of the ancestors or descendants of an
// entry. Entries excludes the entry itself while Count and Size include it.
// The map is owned by the index and must not be modified.
type RelativeSet struct {
	Entries map[chainhash.Hash]*TxEntry
	Count   int
	Size    int64
}

// Contains reports whether hash is a member of the set.
func (s *RelativeSet) Contains(hash chainhash.Hash) bool {
	_, ok := s.Entries[hash]
	return ok
}
