// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/pkgrelay/mempool"
	"github.com/btcsuite/pkgrelay/store"
	"github.com/stretchr/testify/require"
)

// spendHex returns a transaction spending op into a single output of value
// and its hex encoding.
func spendHex(t *testing.T, op wire.OutPoint, value int64) (*wire.MsgTx,
	string) {

	t.Helper()

	msgTx := wire.NewMsgTx(wire.TxVersion)
	msgTx.AddTxIn(wire.NewTxIn(&op, nil, nil))
	msgTx.AddTxOut(wire.NewTxOut(value, []byte{0x51}))

	var buf bytes.Buffer
	require.NoError(t, msgTx.Serialize(&buf))
	return msgTx, hex.EncodeToString(buf.Bytes())
}

// runJSON runs a command and decodes its output into v.
func runJSON(t *testing.T, r *relay, v interface{}, args ...string) {
	t.Helper()

	var out bytes.Buffer
	r.out = &out
	require.NoError(t, r.run(args))
	require.NoError(t, json.Unmarshal(out.Bytes(), v), out.String())
}

func TestRelayCommands(t *testing.T) {
	st, err := store.Open(store.TypeLevelDB,
		filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer st.Close()

	r, err := newRelay(st, mempool.DefaultPolicy(), nil, nil)
	require.NoError(t, err)

	coin := chainhash.Hash{0xaa}
	require.NoError(t, r.run([]string{"addutxo", coin.String() + ":0",
		"1", "51"}))

	parent, parentHex := spendHex(t, wire.OutPoint{Hash: coin}, 99990000)
	_, childHex := spendHex(t, wire.OutPoint{Hash: parent.TxHash()},
		99980000)

	var res packageResultJSON
	runJSON(t, r, &res, "testaccept", parentHex, childHex)
	require.Equal(t, "accepted", res.State)
	require.Len(t, res.Transactions, 2)
	require.Equal(t, "valid", res.Transactions[0].Status)
	require.Equal(t, 0.0001, res.Transactions[0].Fee)

	// Out of order packages are rejected as a whole.
	res = packageResultJSON{}
	runJSON(t, r, &res, "testaccept", childHex, parentHex)
	require.Equal(t, "rejected", res.State)
	require.Contains(t, res.PackageError, "package-not-sorted")

	res = packageResultJSON{}
	runJSON(t, r, &res, "submit", parentHex, childHex)
	require.Equal(t, "accepted", res.State)
	require.True(t, res.Transactions[1].Committed)

	var info struct {
		Size    int         `json:"size"`
		Entries []entryJSON `json:"entries"`
	}
	runJSON(t, r, &info, "info")
	require.Equal(t, 2, info.Size)
	require.Equal(t, 2, info.Entries[1].AncestorCount)

	// A new relay over the same store reloads the saved mempool.
	r, err = newRelay(st, mempool.DefaultPolicy(), nil, nil)
	require.NoError(t, err)
	runJSON(t, r, &info, "info")
	require.Equal(t, 2, info.Size)

	var removed map[string]int
	runJSON(t, r, &removed, "connectblock", parentHex)
	require.Equal(t, 1, removed["removed"])

	runJSON(t, r, &info, "info")
	require.Equal(t, 1, info.Size)
	require.Equal(t, 1, info.Entries[0].AncestorCount)

	// The confirmed parent is remembered across reloads.
	r, err = newRelay(st, mempool.DefaultPolicy(), nil, nil)
	require.NoError(t, err)
	res = packageResultJSON{}
	runJSON(t, r, &res, "testaccept", parentHex)
	require.Equal(t, "known", res.Transactions[0].Status)
}

// TestRelayReload checks saved entries keep their admission time and that
// recently confirmed ones are not loaded again.
func TestRelayReload(t *testing.T) {
	st, err := store.Open(store.TypePebble,
		filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer st.Close()

	coinA, coinB := chainhash.Hash{0xa1}, chainhash.Hash{0xb2}
	for _, h := range []chainhash.Hash{coinA, coinB} {
		require.NoError(t, st.PutUtxo(wire.OutPoint{Hash: h},
			wire.NewTxOut(100000000, []byte{0x51})))
	}
	kept, _ := spendHex(t, wire.OutPoint{Hash: coinA}, 99990000)
	mined, _ := spendHex(t, wire.OutPoint{Hash: coinB}, 99990000)
	keptTx, minedTx := btcutil.NewTx(kept), btcutil.NewTx(mined)

	added := time.Unix(1600000000, 0)
	require.NoError(t, st.SaveMempool([]*mempool.TxEntry{
		mempool.NewTxEntry(keptTx, 10000, added),
		mempool.NewTxEntry(minedTx, 10000, added),
	}))
	require.NoError(t, st.PutKnown(*minedTx.Hash()))

	r, err := newRelay(st, mempool.DefaultPolicy(), nil, nil)
	require.NoError(t, err)

	var info struct {
		Size    int         `json:"size"`
		Entries []entryJSON `json:"entries"`
	}
	runJSON(t, r, &info, "info")
	require.Equal(t, 1, info.Size)
	require.Equal(t, keptTx.Hash().String(), info.Entries[0].TxID)
	require.Equal(t, added.Unix(), info.Entries[0].Time)
	require.Equal(t, 0.0001, info.Entries[0].Fee)
}

func TestRelayUsage(t *testing.T) {
	st, err := store.Open(store.TypePebble,
		filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer st.Close()

	r, err := newRelay(st, mempool.DefaultPolicy(), nil, nil)
	require.NoError(t, err)

	tests := [][]string{
		nil,
		{"frobnicate"},
		{"testaccept"},
		{"addutxo", "nothex:0"},
		{"info", "extra"},
	}
	for _, args := range tests {
		require.ErrorIs(t, r.run(args), errUsage, "args %v", args)
	}

	require.Error(t, r.run([]string{"submit", "zz"}))
	require.Error(t, r.run([]string{"addutxo", "bad", "1", "51"}))
}
