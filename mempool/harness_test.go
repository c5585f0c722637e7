// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

const (
	// testCoinValue is the value of every confirmed coin handed out by
	// the harness.
	testCoinValue = 50 * btcutil.SatoshiPerBitcoin

	// testFee is the fee paid by ordinary test transactions. It clears
	// the default minimum relay fee for any small transaction.
	testFee = 1000
)

// scriptCounter makes every generated output script unique so parallel tests
// never produce colliding txids.
var scriptCounter uint64

// uniqueScript returns an 8 byte script carrying a fresh counter value.
func uniqueScript() []byte {
	script := make([]byte, 8)
	binary.BigEndian.PutUint64(script, atomic.AddUint64(&scriptCounter, 1))
	return script
}

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

// testHarness owns a mempool over an in-memory UTXO set and tracks the
// value of every output it has created.
type testHarness struct {
	t      testingT
	utxos  *UtxoSet
	values map[wire.OutPoint]int64
	mp     *Mempool
	pool   *TxPool
}

// newTestHarness returns a harness for policy.
func newTestHarness(t testingT, policy Policy) *testHarness {
	t.Helper()

	utxos := NewUtxoSet()
	pool := NewTxPool()
	mp, err := New(&Config{
		Policy:     policy,
		UtxoSource: utxos,
		Index:      pool,
	})
	require.NoError(t, err, "failed to create mempool")

	return &testHarness{
		t:      t,
		utxos:  utxos,
		values: make(map[wire.OutPoint]int64),
		mp:     mp,
		pool:   pool,
	}
}

// coin returns a fresh confirmed outpoint worth testCoinValue.
func (h *testHarness) coin() wire.OutPoint {
	var hash chainhash.Hash
	binary.BigEndian.PutUint64(hash[:], atomic.AddUint64(&scriptCounter, 1))
	hash[31] = 0xc0
	op := wire.OutPoint{Hash: hash}

	h.utxos.AddUtxo(op, wire.NewTxOut(testCoinValue, uniqueScript()))
	h.values[op] = testCoinValue
	return op
}

// spend builds a transaction spending inputs into numOutputs equal outputs
// and paying fee.
func (h *testHarness) spend(inputs []wire.OutPoint, numOutputs int,
	fee int64) *btcutil.Tx {

	return h.spendPadded(inputs, numOutputs, fee, 0)
}

// spendPadded is spend with an extra zero value output that grows the
// serialized size to roughly padTo bytes.
func (h *testHarness) spendPadded(inputs []wire.OutPoint, numOutputs int,
	fee int64, padTo int) *btcutil.Tx {

	h.t.Helper()

	tx := wire.NewMsgTx(wire.TxVersion)
	var total int64
	for _, input := range inputs {
		value, ok := h.values[input]
		require.True(h.t, ok, "unknown input %v", input)
		total += value
		tx.AddTxIn(wire.NewTxIn(&input, nil, nil))
	}

	each := (total - fee) / int64(numOutputs)
	for i := 0; i < numOutputs; i++ {
		tx.AddTxOut(wire.NewTxOut(each, uniqueScript()))
	}
	// Rounding leftovers go back into the first output so the fee is
	// exact.
	tx.TxOut[0].Value += total - fee - each*int64(numOutputs)

	if pad := padTo - tx.SerializeSize() - 11; pad > 0 {
		tx.AddTxOut(wire.NewTxOut(0, make([]byte, pad)))
	}

	btx := btcutil.NewTx(tx)
	for i, txOut := range tx.TxOut {
		h.values[outPoint(btx, uint32(i))] = txOut.Value
	}
	return btx
}

// chain builds n transactions each spending output 0 of the previous one.
func (h *testHarness) chain(from wire.OutPoint, n int) []*btcutil.Tx {
	txs := make([]*btcutil.Tx, 0, n)
	prev := from
	for i := 0; i < n; i++ {
		tx := h.spend([]wire.OutPoint{prev}, 1, testFee)
		txs = append(txs, tx)
		prev = outPoint(tx, 0)
	}
	return txs
}

// submit admits each transaction on its own and fails the test if any is
// not accepted.
func (h *testHarness) submit(txs ...*btcutil.Tx) {
	h.t.Helper()

	for _, tx := range txs {
		res, err := h.mp.SubmitPackage([]*btcutil.Tx{tx}, nil)
		require.NoError(h.t, err)
		require.True(h.t, res.Accepted(), "tx %v not accepted: %v",
			tx.Hash(), res.TxResults[0].Err())
	}
}

// mine confirms every mempool entry: their outputs move to the UTXO set and
// the mempool is emptied.
func (h *testHarness) mine() {
	h.t.Helper()

	var block []*btcutil.Tx
	for _, entry := range h.mp.Entries() {
		h.utxos.ConnectTransaction(entry.Tx)
		block = append(block, entry.Tx)
	}
	h.mp.ConnectBlock(block)
	require.Zero(h.t, h.mp.Count(), "mempool not empty after mining")
}

// testAccept validates pkg and returns the result.
func (h *testHarness) testAccept(pkg []*btcutil.Tx) *PackageResult {
	h.t.Helper()

	res, err := h.mp.TestAccept(pkg, nil)
	require.NoError(h.t, err)
	require.Len(h.t, res.TxResults, len(pkg))
	for i, txRes := range res.TxResults {
		require.Equal(h.t, *pkg[i].Hash(), txRes.TxHash,
			"results out of input order")
	}
	return res
}

// requirePackageRejected asserts that every member carries kind.
func requirePackageRejected(t testingT, res *PackageResult, kind RejectKind) {
	t.Helper()

	require.Equal(t, StateRejected, res.State)
	require.Equal(t, kind, res.PackageKind)
	for _, txRes := range res.TxResults {
		require.Equal(t, TxStatusInvalid, txRes.Status)
		require.Equal(t, kind, txRes.Kind, "tx %v", txRes.TxHash)
	}
}

// requireAllValid asserts that every member is admissible.
func requireAllValid(t testingT, res *PackageResult) {
	t.Helper()

	require.Equal(t, StateAccepted, res.State, "package error: %v",
		res.Err())
	for _, txRes := range res.TxResults {
		require.Equal(t, TxStatusValid, txRes.Status, "tx %v: %v",
			txRes.TxHash, txRes.Err())
	}
}
