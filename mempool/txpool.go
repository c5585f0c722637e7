// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// TxPool is the in-memory Index. Each entry carries its full ancestor and
// descendant sets, updated incrementally on Admit and Remove.
type TxPool struct {
	mu sync.RWMutex

	entries map[chainhash.Hash]*TxEntry
	spentBy map[wire.OutPoint]*TxEntry
	nextSeq uint64

	// lastUpdated is the unix time of the last admission or removal.
	lastUpdated atomic.Int64

	// now is replaceable by tests.
	now func() time.Time
}

// Ensure TxPool implements the Index interface.
var _ Index = (*TxPool)(nil)

// NewTxPool returns an empty pool.
func NewTxPool() *TxPool {
	p := &TxPool{
		entries: make(map[chainhash.Hash]*TxEntry),
		spentBy: make(map[wire.OutPoint]*TxEntry),
		now:     time.Now,
	}
	p.lastUpdated.Store(p.now().Unix())
	return p
}

// LastUpdated returns the last time an entry was admitted or removed.
func (p *TxPool) LastUpdated() time.Time {
	return time.Unix(p.lastUpdated.Load(), 0)
}

// HasTransaction reports whether hash is in the pool.
func (p *TxPool) HasTransaction(hash chainhash.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.entries[hash]
	return ok
}

// Lookup returns the entry for hash.
func (p *TxPool) Lookup(hash chainhash.Hash) (*TxEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[hash]
	return e, ok
}

// SpenderOf returns the entry spending op.
func (p *TxPool) SpenderOf(op wire.OutPoint) (chainhash.Hash, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.spentBy[op]
	if !ok {
		return chainhash.Hash{}, false
	}
	return *e.Hash(), true
}

// Ancestors returns the cached ancestor set of hash.
func (p *TxPool) Ancestors(hash chainhash.Hash) (*RelativeSet, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[hash]
	if !ok {
		return nil, false
	}
	return &RelativeSet{
		Entries: e.ancestors,
		Count:   e.AncestorCount,
		Size:    e.AncestorSize,
	}, true
}

// Descendants returns the cached descendant set of hash.
func (p *TxPool) Descendants(hash chainhash.Hash) (*RelativeSet, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[hash]
	if !ok {
		return nil, false
	}
	return &RelativeSet{
		Entries: e.descendants,
		Count:   e.DescendantCount,
		Size:    e.DescendantSize,
	}, true
}

// Admit inserts tx. The entry's ancestor set is the union of its in-pool
// parents and their ancestor sets, and the entry joins the descendant set of
// every ancestor. Admit does not check limits or fees.
func (p *TxPool) Admit(tx *btcutil.Tx, fee btcutil.Amount) (*TxEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := *tx.Hash()
	if _, ok := p.entries[hash]; ok {
		return nil, txRuleError(RejectAlreadyInMempool,
			"transaction %v already in mempool", hash)
	}
	for _, txIn := range tx.MsgTx().TxIn {
		if spender, ok := p.spentBy[txIn.PreviousOutPoint]; ok {
			return nil, txRuleError(RejectMempoolConflict,
				"output %v already spent by transaction %v in "+
					"the memory pool", txIn.PreviousOutPoint,
				spender.Hash())
		}
	}

	entry := NewTxEntry(tx, fee, p.now())
	entry.seq = p.nextSeq
	p.nextSeq++

	for _, txIn := range tx.MsgTx().TxIn {
		parent, ok := p.entries[txIn.PreviousOutPoint.Hash]
		if !ok {
			continue
		}
		entry.parents[*parent.Hash()] = parent
		parent.children[hash] = entry

		entry.ancestors[*parent.Hash()] = parent
		for h, anc := range parent.ancestors {
			entry.ancestors[h] = anc
		}
	}

	for _, anc := range entry.ancestors {
		entry.AncestorCount++
		entry.AncestorSize += anc.Size
		entry.AncestorFees += anc.Fee

		anc.descendants[hash] = entry
		anc.DescendantCount++
		anc.DescendantSize += entry.Size
		anc.DescendantFees += entry.Fee
	}

	for _, txIn := range tx.MsgTx().TxIn {
		p.spentBy[txIn.PreviousOutPoint] = entry
	}
	p.entries[hash] = entry
	p.lastUpdated.Store(p.now().Unix())

	log.Debugf("Admitted %v (fee %v, size %d, %d %s)", hash, fee,
		entry.Size, entry.AncestorCount-1,
		pickNoun(entry.AncestorCount-1, "ancestor", "ancestors"))

	return entry, nil
}

// Remove detaches hash from the pool. Ancestors lose it from their
// descendant sets and descendants lose it from their ancestor sets.
func (p *TxPool) Remove(hash chainhash.Hash, reason RemovalReason) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[hash]
	if !ok {
		return ErrNotInMempool
	}

	for _, anc := range entry.ancestors {
		delete(anc.descendants, hash)
		anc.DescendantCount--
		anc.DescendantSize -= entry.Size
		anc.DescendantFees -= entry.Fee
	}
	for _, desc := range entry.descendants {
		delete(desc.ancestors, hash)
		desc.AncestorCount--
		desc.AncestorSize -= entry.Size
		desc.AncestorFees -= entry.Fee
	}
	for h, parent := range entry.parents {
		delete(parent.children, hash)
		delete(entry.parents, h)
	}
	for h, child := range entry.children {
		delete(child.parents, hash)
		delete(entry.children, h)
	}

	for _, txIn := range entry.Tx.MsgTx().TxIn {
		if p.spentBy[txIn.PreviousOutPoint] == entry {
			delete(p.spentBy, txIn.PreviousOutPoint)
		}
	}
	delete(p.entries, hash)
	p.lastUpdated.Store(p.now().Unix())

	log.Debugf("Removed %v from mempool (%v)", hash, reason)

	return nil
}

// Count returns the number of entries.
func (p *TxPool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.entries)
}

// Entries returns every entry in admission order.
func (p *TxPool) Entries() []*TxEntry {
	p.mu.RLock()
	entries := make([]*TxEntry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *TxEntry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return entries
}
