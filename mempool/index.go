// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/pkgrelay/mempool/txgraph"
)

// RemovalReason describes why an entry left the mempool.
type RemovalReason uint8

const (
	// RemoveReasonBlock is used for entries confirmed by a block.
	RemoveReasonBlock RemovalReason = iota

	// RemoveReasonConflict is used for entries double spent by a block.
	RemoveReasonConflict

	// RemoveReasonEviction is used for entries removed by the operator or
	// a size policy.
	RemoveReasonEviction

	// RemoveReasonExpiry is used for entries that aged out.
	RemoveReasonExpiry
)

var removalReasonStrings = map[RemovalReason]string{
	RemoveReasonBlock:    "block",
	RemoveReasonConflict: "conflict",
	RemoveReasonEviction: "eviction",
	RemoveReasonExpiry:   "expiry",
}

// String returns the RemovalReason in human-readable form.
func (r RemovalReason) String() string {
	if s, ok := removalReasonStrings[r]; ok {
		return s
	}
	return "unknown"
}

// Index is the mempool graph the package validator reads and the submitter
// writes. Implementations keep ancestor and descendant sets current on every
// admission and removal so queries do not walk the graph.
type Index interface {
	txgraph.MempoolView

	// Lookup returns the entry for hash.
	Lookup(hash chainhash.Hash) (*TxEntry, bool)

	// Ancestors returns the in-mempool ancestors of hash.
	Ancestors(hash chainhash.Hash) (*RelativeSet, bool)

	// Descendants returns the in-mempool descendants of hash.
	Descendants(hash chainhash.Hash) (*RelativeSet, bool)

	// Admit inserts tx with the given fee. It fails with a TxRuleError of
	// kind txn-already-in-mempool for a known txid and
	// txn-mempool-conflict when an input is already spent by another
	// entry.
	Admit(tx *btcutil.Tx, fee btcutil.Amount) (*TxEntry, error)

	// Remove detaches the entry. Its descendants stay in the index.
	Remove(hash chainhash.Hash, reason RemovalReason) error

	// Count returns the number of entries.
	Count() int

	// Entries returns every entry in admission order.
	Entries() []*TxEntry
}

// outPoint is shorthand for building an outpoint of tx.
func outPoint(tx *btcutil.Tx, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: *tx.Hash(), Index: index}
}
