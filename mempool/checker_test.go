// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// TestStandardChecker checks each context-free rule.
func TestStandardChecker(t *testing.T) {
	t.Parallel()

	op := wire.OutPoint{Index: 7}
	build := func(mutate func(tx *wire.MsgTx)) *btcutil.Tx {
		tx := wire.NewMsgTx(wire.TxVersion)
		tx.AddTxIn(wire.NewTxIn(&op, nil, nil))
		tx.AddTxOut(wire.NewTxOut(1000, uniqueScript()))
		if mutate != nil {
			mutate(tx)
		}
		return btcutil.NewTx(tx)
	}

	tests := []struct {
		name   string
		tx     *btcutil.Tx
		maxTx  int
		expect RejectKind
	}{{
		name: "ok",
		tx:   build(nil),
	}, {
		name: "no inputs",
		tx: build(func(tx *wire.MsgTx) {
			tx.TxIn = nil
		}),
		expect: RejectNoInputs,
	}, {
		name: "no outputs",
		tx: build(func(tx *wire.MsgTx) {
			tx.TxOut = nil
		}),
		expect: RejectNoOutputs,
	}, {
		name: "negative output",
		tx: build(func(tx *wire.MsgTx) {
			tx.TxOut[0].Value = -1
		}),
		expect: RejectNegativeOutput,
	}, {
		name: "output above max money",
		tx: build(func(tx *wire.MsgTx) {
			tx.TxOut[0].Value = btcutil.MaxSatoshi + 1
		}),
		expect: RejectOutputTooLarge,
	}, {
		name: "outputs sum above max money",
		tx: build(func(tx *wire.MsgTx) {
			tx.TxOut[0].Value = btcutil.MaxSatoshi
			tx.AddTxOut(wire.NewTxOut(1, nil))
		}),
		expect: RejectOutputTotalLarge,
	}, {
		name: "duplicate inputs",
		tx: build(func(tx *wire.MsgTx) {
			tx.AddTxIn(wire.NewTxIn(&op, nil, nil))
		}),
		expect: RejectDuplicateInputs,
	}, {
		name:   "oversized",
		tx:     build(nil),
		maxTx:  50,
		expect: RejectTxSize,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			c := &StandardChecker{MaxTxSize: test.maxTx}
			err := c.CheckTransaction(test.tx)
			if test.expect == "" {
				require.NoError(t, err)
				return
			}

			kind, _, ok := extractRejectKind(err)
			require.True(t, ok, "want TxRuleError, got %v", err)
			require.Equal(t, test.expect, kind)
		})
	}
}

// TestRejectKindClassification checks the kind helpers.
func TestRejectKindClassification(t *testing.T) {
	t.Parallel()

	require.True(t, RejectPackageLimits.IsPackageWide())
	require.True(t, RejectConflictInPackage.IsPackageWide())
	require.True(t, RejectNotChildWithParents.IsPackageWide())
	require.True(t, RejectNotChildWithUnconfirmedParents.IsPackageWide())
	require.False(t, RejectMissingInputs.IsPackageWide())
	require.True(t, RejectAlreadyKnown.IsInformational())
	require.False(t, RejectMempoolConflict.IsInformational())

	require.Equal(t, wire.RejectDuplicate, RejectAlreadyInMempool.RejectCode())
	require.Equal(t, wire.RejectInsufficientFee, RejectMinRelayFee.RejectCode())
	require.Equal(t, wire.RejectInvalid, RejectMissingInputs.RejectCode())
	require.Equal(t, wire.RejectNonstandard,
		RejectNotChildWithParents.RejectCode())

	err := TxRuleError{Kind: RejectMissingInputs, Description: "gone"}
	require.EqualError(t, err, "missing-inputs: gone")
	require.EqualError(t, TxRuleError{Kind: RejectTxSize}, "tx-size")
}
