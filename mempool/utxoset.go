// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// UtxoSet is an in-memory UtxoSource.
type UtxoSet struct {
	mu    sync.RWMutex
	utxos map[wire.OutPoint]*wire.TxOut
}

// Ensure UtxoSet implements the UtxoSource interface.
var _ UtxoSource = (*UtxoSet)(nil)

// NewUtxoSet returns an empty set.
func NewUtxoSet() *UtxoSet {
	return &UtxoSet{utxos: make(map[wire.OutPoint]*wire.TxOut)}
}

// AddUtxo records op as confirmed and unspent.
func (s *UtxoSet) AddUtxo(op wire.OutPoint, txOut *wire.TxOut) {
	s.mu.Lock()
	s.utxos[op] = txOut
	s.mu.Unlock()
}

// SpendUtxo removes op from the set.
func (s *UtxoSet) SpendUtxo(op wire.OutPoint) {
	s.mu.Lock()
	delete(s.utxos, op)
	s.mu.Unlock()
}

// ConnectTransaction spends the inputs of a confirmed tx and adds its
// outputs.
func (s *UtxoSet) ConnectTransaction(tx *btcutil.Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txIn := range tx.MsgTx().TxIn {
		delete(s.utxos, txIn.PreviousOutPoint)
	}
	for i, txOut := range tx.MsgTx().TxOut {
		s.utxos[outPoint(tx, uint32(i))] = txOut
	}
}

// FetchOutput returns the unspent output at op.
func (s *UtxoSet) FetchOutput(op wire.OutPoint) (*wire.TxOut, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txOut, ok := s.utxos[op]
	return txOut, ok
}

// Len returns the number of unspent outputs.
func (s *UtxoSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.utxos)
}
