// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"slices"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
)

// MockIndex is an Index whose graph state is injected directly, so tests can
// describe large or oddly shaped mempools by their aggregates alone.
type MockIndex struct {
	entries     map[chainhash.Hash]*TxEntry
	ancestors   map[chainhash.Hash]*RelativeSet
	descendants map[chainhash.Hash]*RelativeSet
	spenders    map[wire.OutPoint]chainhash.Hash
	order       []chainhash.Hash

	// AdmitErr, when set, fails every Admit call.
	AdmitErr error

	// Admitted records the transactions passed to successful Admit calls.
	Admitted []*btcutil.Tx

	// Removed records the hashes passed to successful Remove calls.
	Removed []chainhash.Hash
}

// Ensure the MockIndex implements the Index interface.
var _ Index = (*MockIndex)(nil)

// NewMockIndex returns an empty MockIndex.
func NewMockIndex() *MockIndex {
	return &MockIndex{
		entries:     make(map[chainhash.Hash]*TxEntry),
		ancestors:   make(map[chainhash.Hash]*RelativeSet),
		descendants: make(map[chainhash.Hash]*RelativeSet),
		spenders:    make(map[wire.OutPoint]chainhash.Hash),
	}
}

// Inject adds entry with the given relative sets. A nil set stands for the
// entry alone. The inputs of the entry are recorded as spent by it.
func (m *MockIndex) Inject(entry *TxEntry, ancestors,
	descendants *RelativeSet) {

	hash := *entry.Hash()
	self := func() *RelativeSet {
		return &RelativeSet{
			Entries: map[chainhash.Hash]*TxEntry{},
			Count:   1,
			Size:    entry.Size,
		}
	}
	if ancestors == nil {
		ancestors = self()
	}
	if descendants == nil {
		descendants = self()
	}

	entry.AncestorCount, entry.AncestorSize = ancestors.Count, ancestors.Size
	entry.DescendantCount = descendants.Count
	entry.DescendantSize = descendants.Size

	if _, ok := m.entries[hash]; !ok {
		m.order = append(m.order, hash)
	}
	m.entries[hash] = entry
	m.ancestors[hash] = ancestors
	m.descendants[hash] = descendants
	for _, txIn := range entry.Tx.MsgTx().TxIn {
		m.spenders[txIn.PreviousOutPoint] = hash
	}
}

// SetSpender marks op as spent by hash.
func (m *MockIndex) SetSpender(op wire.OutPoint, hash chainhash.Hash) {
	m.spenders[op] = hash
}

func (m *MockIndex) HasTransaction(hash chainhash.Hash) bool {
	_, ok := m.entries[hash]
	return ok
}

func (m *MockIndex) Lookup(hash chainhash.Hash) (*TxEntry, bool) {
	e, ok := m.entries[hash]
	return e, ok
}

func (m *MockIndex) SpenderOf(op wire.OutPoint) (chainhash.Hash, bool) {
	h, ok := m.spenders[op]
	return h, ok
}

func (m *MockIndex) Ancestors(hash chainhash.Hash) (*RelativeSet, bool) {
	s, ok := m.ancestors[hash]
	return s, ok
}

func (m *MockIndex) Descendants(hash chainhash.Hash) (*RelativeSet, bool) {
	s, ok := m.descendants[hash]
	return s, ok
}

// Admit injects tx as a standalone entry.
func (m *MockIndex) Admit(tx *btcutil.Tx, fee btcutil.Amount) (*TxEntry, error) {
	if m.AdmitErr != nil {
		return nil, m.AdmitErr
	}
	if m.HasTransaction(*tx.Hash()) {
		return nil, txRuleError(RejectAlreadyInMempool,
			"transaction %v already in mempool", tx.Hash())
	}

	entry := NewTxEntry(tx, fee, time.Now())
	m.Inject(entry, nil, nil)
	m.Admitted = append(m.Admitted, tx)
	return entry, nil
}

func (m *MockIndex) Remove(hash chainhash.Hash, _ RemovalReason) error {
	e, ok := m.entries[hash]
	if !ok {
		return ErrNotInMempool
	}
	for _, txIn := range e.Tx.MsgTx().TxIn {
		if m.spenders[txIn.PreviousOutPoint] == hash {
			delete(m.spenders, txIn.PreviousOutPoint)
		}
	}
	delete(m.entries, hash)
	delete(m.ancestors, hash)
	delete(m.descendants, hash)
	m.order = slices.DeleteFunc(m.order, func(h chainhash.Hash) bool {
		return h == hash
	})
	m.Removed = append(m.Removed, hash)
	return nil
}

func (m *MockIndex) Count() int {
	return len(m.entries)
}

func (m *MockIndex) Entries() []*TxEntry {
	entries := make([]*TxEntry, 0, len(m.order))
	for _, h := range m.order {
		entries = append(entries, m.entries[h])
	}
	return entries
}

// MockUtxoSource is a mock implementation of the UtxoSource interface.
type MockUtxoSource struct {
	mock.Mock
}

// Ensure the MockUtxoSource implements the UtxoSource interface.
var _ UtxoSource = (*MockUtxoSource)(nil)

// FetchOutput returns the output at op.
func (m *MockUtxoSource) FetchOutput(op wire.OutPoint) (*wire.TxOut, bool) {
	args := m.Called(op)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*wire.TxOut), args.Bool(1)
}

// MockChecker is a mock implementation of the ContextFreeChecker interface.
type MockChecker struct {
	mock.Mock
}

// Ensure the MockChecker implements the ContextFreeChecker interface.
var _ ContextFreeChecker = (*MockChecker)(nil)

// CheckTransaction runs the mocked context-free checks.
func (m *MockChecker) CheckTransaction(tx *btcutil.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}
