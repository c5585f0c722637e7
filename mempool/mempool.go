// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
)

// Config is the configuration of a Mempool.
type Config struct {
	// Policy is the admission policy.
	Policy Policy

	// Checker runs context-free checks. Nil selects a StandardChecker.
	Checker ContextFreeChecker

	// UtxoSource resolves confirmed outputs. Required.
	UtxoSource UtxoSource

	// Index holds the mempool graph. Nil selects a new TxPool.
	Index Index

	// RecentlyConfirmedSize bounds the cache of confirmed txids. Zero
	// selects DefaultRecentlyConfirmedSize.
	RecentlyConfirmedSize uint

	// OnAccepted is invoked for every admitted transaction while the
	// mempool lock is held. Optional.
	OnAccepted AcceptedFunc
}

// Mempool serializes package validation and commits against one index. Any
// number of TestAccept calls and read queries may run concurrently, while
// SubmitPackage, ConnectBlock and RemoveTransaction run alone.
type Mempool struct {
	cfg       Config
	index     Index
	validator *PackageValidator
	submitter *PackageSubmitter

	// known holds recently confirmed txids. It is internally
	// synchronized.
	known lru.Cache

	mu sync.RWMutex
}

// New returns a mempool for cfg.
func New(cfg *Config) (*Mempool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mempool config cannot be nil")
	}

	index := cfg.Index
	if index == nil {
		index = NewTxPool()
	}
	size := cfg.RecentlyConfirmedSize
	if size == 0 {
		size = DefaultRecentlyConfirmedSize
	}

	mp := &Mempool{
		cfg:       *cfg,
		index:     index,
		submitter: NewPackageSubmitter(cfg.OnAccepted),
		known:     lru.NewCache(size),
	}

	validator, err := NewPackageValidator(ValidatorConfig{
		Policy:     cfg.Policy,
		Checker:    cfg.Checker,
		UtxoSource: cfg.UtxoSource,
		IsKnown:    mp.IsKnown,
	})
	if err != nil {
		return nil, err
	}
	mp.validator = validator

	log.Infof("Initialized mempool (ancestors %d/%d bytes, descendants "+
		"%d/%d bytes, min relay fee %v/kB)",
		cfg.Policy.MaxAncestorCount, cfg.Policy.MaxAncestorSize,
		cfg.Policy.MaxDescendantCount, cfg.Policy.MaxDescendantSize,
		cfg.Policy.MinRelayTxFee)

	return mp, nil
}

// Policy returns the admission policy.
func (mp *Mempool) Policy() Policy {
	return mp.cfg.Policy
}

// TestAccept validates txs without modifying the mempool.
func (mp *Mempool) TestAccept(txs []*btcutil.Tx,
	opts *PackageOptions) (*PackageResult, error) {

	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.validator.Validate(txs, mp.index, opts)
}

// SubmitPackage validates txs and, when the package is accepted, admits its
// valid members. A package of more than one transaction must be a child
// preceded by its parents. A rejected package leaves the mempool untouched
// and is reported through the result, not the error.
func (mp *Mempool) SubmitPackage(txs []*btcutil.Tx,
	opts *PackageOptions) (*PackageResult, error) {

	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.submit(txs, opts)
}

// RestoreTransaction submits tx on its own and, when it is admitted, keeps
// added as its admission time. It is used to reload a saved mempool.
func (mp *Mempool) RestoreTransaction(tx *btcutil.Tx,
	added time.Time) (*PackageResult, error) {

	mp.mu.Lock()
	defer mp.mu.Unlock()

	result, err := mp.submit([]*btcutil.Tx{tx}, nil)
	if err != nil || !result.TxResults[0].Committed {
		return result, err
	}
	if entry, ok := mp.index.Lookup(*tx.Hash()); ok {
		entry.Added = added
	}
	return result, nil
}

// submit validates and commits txs. The caller must hold the write lock.
func (mp *Mempool) submit(txs []*btcutil.Tx,
	opts *PackageOptions) (*PackageResult, error) {

	result, err := mp.validator.ValidateSubmission(txs, mp.index, opts)
	if err != nil {
		return nil, err
	}
	if !result.Accepted() {
		return result, nil
	}

	if _, err := mp.submitter.Commit(mp.index, txs, result); err != nil {
		return result, err
	}
	return result, nil
}

// ConnectBlock removes the transactions of a newly connected block from the
// mempool, remembers them as recently confirmed, and evicts entries double
// spent by the block together with their descendants. It returns the number
// of entries removed.
func (mp *Mempool) ConnectBlock(txs []*btcutil.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for _, tx := range txs {
		hash := *tx.Hash()
		mp.known.Add(hash)

		if mp.index.HasTransaction(hash) {
			if err := mp.index.Remove(hash, RemoveReasonBlock); err == nil {
				removed++
			}
		}

		for _, txIn := range tx.MsgTx().TxIn {
			spender, ok := mp.index.SpenderOf(txIn.PreviousOutPoint)
			if !ok || spender == hash {
				continue
			}
			removed += mp.removeWithDescendants(spender,
				RemoveReasonConflict)
		}
	}

	log.Infof("Connected block with %d %s, removed %d from mempool",
		len(txs), pickNoun(len(txs), "transaction", "transactions"),
		removed)

	return removed
}

// RemoveTransaction removes hash from the mempool. With cascade set its
// descendants are removed too, otherwise they stay.
func (mp *Mempool) RemoveTransaction(hash chainhash.Hash, cascade bool) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if !mp.index.HasTransaction(hash) {
		return ErrNotInMempool
	}
	if cascade {
		mp.removeWithDescendants(hash, RemoveReasonEviction)
		return nil
	}
	return mp.index.Remove(hash, RemoveReasonEviction)
}

// removeWithDescendants removes hash and every descendant. The caller must
// hold the write lock.
func (mp *Mempool) removeWithDescendants(hash chainhash.Hash,
	reason RemovalReason) int {

	doomed := []chainhash.Hash{hash}
	if desc, ok := mp.index.Descendants(hash); ok {
		for h := range desc.Entries {
			doomed = append(doomed, h)
		}
	}

	var removed int
	for _, h := range doomed {
		if err := mp.index.Remove(h, reason); err != nil {
			log.Warnf("Unable to remove %v: %v", h, err)
			continue
		}
		removed++
	}
	return removed
}

// MarkConfirmed records hashes as recently confirmed.
func (mp *Mempool) MarkConfirmed(hashes ...chainhash.Hash) {
	for _, h := range hashes {
		mp.known.Add(h)
	}
}

// IsKnown reports whether hash was recently confirmed.
func (mp *Mempool) IsKnown(hash chainhash.Hash) bool {
	return mp.known.Contains(hash)
}

// Count returns the number of mempool entries.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.index.Count()
}

// Entry returns the entry for hash.
func (mp *Mempool) Entry(hash chainhash.Hash) (*TxEntry, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.index.Lookup(hash)
}

// Entries returns every entry in admission order.
func (mp *Mempool) Entries() []*TxEntry {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.index.Entries()
}
