// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// UtxoSource resolves confirmed, unspent outputs.
type UtxoSource interface {
	// FetchOutput returns the output at op if it is confirmed and
	// unspent.
	FetchOutput(op wire.OutPoint) (*wire.TxOut, bool)
}

// ContextFreeChecker validates a transaction without looking at the chain or
// the mempool. Failures are returned as TxRuleError values.
type ContextFreeChecker interface {
	CheckTransaction(tx *btcutil.Tx) error
}

// StandardChecker is the default ContextFreeChecker. It rejects malformed
// transactions and transactions above a size bound.
type StandardChecker struct {
	// MaxTxSize is the largest accepted serialized size. Zero selects
	// MaxStandardTxSize.
	MaxTxSize int
}

// Ensure StandardChecker implements the ContextFreeChecker interface.
var _ ContextFreeChecker = (*StandardChecker)(nil)

// CheckTransaction performs the context-free checks.
func (c *StandardChecker) CheckTransaction(tx *btcutil.Tx) error {
	msgTx := tx.MsgTx()
	if len(msgTx.TxIn) == 0 {
		return txRuleError(RejectNoInputs, "transaction %v has no inputs",
			tx.Hash())
	}
	if len(msgTx.TxOut) == 0 {
		return txRuleError(RejectNoOutputs, "transaction %v has no "+
			"outputs", tx.Hash())
	}

	maxSize := c.MaxTxSize
	if maxSize == 0 {
		maxSize = MaxStandardTxSize
	}
	if size := msgTx.SerializeSize(); size > maxSize {
		return txRuleError(RejectTxSize, "transaction %v size of %d "+
			"bytes is larger than max allowed size of %d",
			tx.Hash(), size, maxSize)
	}

	var totalOut int64
	for i, txOut := range msgTx.TxOut {
		value := txOut.Value
		if value < 0 {
			return txRuleError(RejectNegativeOutput, "output %d has "+
				"negative value %d", i, value)
		}
		if value > btcutil.MaxSatoshi {
			return txRuleError(RejectOutputTooLarge, "output %d value "+
				"of %d is higher than max allowed value of %d", i,
				value, int64(btcutil.MaxSatoshi))
		}

		totalOut += value
		if totalOut > btcutil.MaxSatoshi {
			return txRuleError(RejectOutputTotalLarge, "total value "+
				"of all outputs exceeds max allowed value of %d",
				int64(btcutil.MaxSatoshi))
		}
	}

	seen := make(map[wire.OutPoint]struct{}, len(msgTx.TxIn))
	for _, txIn := range msgTx.TxIn {
		if _, ok := seen[txIn.PreviousOutPoint]; ok {
			return txRuleError(RejectDuplicateInputs, "transaction "+
				"%v contains duplicate input %v", tx.Hash(),
				txIn.PreviousOutPoint)
		}
		seen[txIn.PreviousOutPoint] = struct{}{}
	}

	return nil
}
