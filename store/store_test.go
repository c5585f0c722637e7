// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/pkgrelay/mempool"
	"github.com/stretchr/testify/require"
)

// forEachType runs fn against a fresh store of every supported type.
func forEachType(t *testing.T, fn func(t *testing.T, s *Store)) {
	for _, dbType := range SupportedTypes {
		dbType := dbType
		t.Run(dbType, func(t *testing.T) {
			t.Parallel()

			s, err := Open(dbType, filepath.Join(t.TempDir(), dbType))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })

			fn(t, s)
		})
	}
}

// spendTx returns a transaction spending op into one output of value.
func spendTx(op wire.OutPoint, value int64) *btcutil.Tx {
	msgTx := wire.NewMsgTx(wire.TxVersion)
	msgTx.AddTxIn(wire.NewTxIn(&op, nil, nil))
	msgTx.AddTxOut(wire.NewTxOut(value, []byte{0x51}))
	return btcutil.NewTx(msgTx)
}

func TestOpenUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Open("bolt", filepath.Join(t.TempDir(), "db"))
	require.ErrorIs(t, err, ErrUnknownType)
}

// TestMempoolRoundTrip checks a saved mempool reloads in order and that a
// second save replaces the first.
func TestMempoolRoundTrip(t *testing.T) {
	t.Parallel()

	forEachType(t, func(t *testing.T, s *Store) {
		empty, err := s.LoadMempool()
		require.NoError(t, err)
		require.Empty(t, empty)

		added := time.Unix(1700000000, 0)
		parent := spendTx(wire.OutPoint{Hash: chainhash.Hash{1}}, 9000)
		child := spendTx(wire.OutPoint{Hash: *parent.Hash()}, 8000)
		other := spendTx(wire.OutPoint{Hash: chainhash.Hash{2}}, 500)

		entries := []*mempool.TxEntry{
			mempool.NewTxEntry(parent, 1000, added),
			mempool.NewTxEntry(child, 1000, added.Add(time.Second)),
			mempool.NewTxEntry(other, 0, added),
		}
		require.NoError(t, s.SaveMempool(entries))

		loaded, err := s.LoadMempool()
		require.NoError(t, err)
		require.Len(t, loaded, 3)
		for i, got := range loaded {
			require.Equal(t, *entries[i].Hash(), *got.Tx.Hash())
			require.True(t, entries[i].Added.Equal(got.Added))
		}

		require.NoError(t, s.SaveMempool(entries[2:]))
		loaded, err = s.LoadMempool()
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		require.Equal(t, *other.Hash(), *loaded[0].Tx.Hash())
	})
}

// TestUtxoSet checks the store behaves as a UTXO source.
func TestUtxoSet(t *testing.T) {
	t.Parallel()

	forEachType(t, func(t *testing.T, s *Store) {
		op := wire.OutPoint{Hash: chainhash.Hash{7}, Index: 3}
		_, ok := s.FetchOutput(op)
		require.False(t, ok)

		require.NoError(t, s.PutUtxo(op, wire.NewTxOut(5000,
			[]byte{0x76, 0xa9})))
		txOut, ok := s.FetchOutput(op)
		require.True(t, ok)
		require.Equal(t, int64(5000), txOut.Value)
		require.Equal(t, []byte{0x76, 0xa9}, txOut.PkScript)

		tx := spendTx(op, 4000)
		require.NoError(t, s.ConnectTransaction(tx))

		_, ok = s.FetchOutput(op)
		require.False(t, ok, "spent output still present")

		utxos, err := s.Utxos()
		require.NoError(t, err)
		require.Len(t, utxos, 1)
		created := wire.OutPoint{Hash: *tx.Hash()}
		require.Equal(t, int64(4000), utxos[created].Value)

		require.NoError(t, s.DeleteUtxo(created))
		utxos, err = s.Utxos()
		require.NoError(t, err)
		require.Empty(t, utxos)
	})
}

// TestKnown checks recently confirmed markers persist.
func TestKnown(t *testing.T) {
	t.Parallel()

	forEachType(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.PutKnown(chainhash.Hash{2}, chainhash.Hash{1}))
		require.NoError(t, s.PutKnown(chainhash.Hash{1}))

		known, err := s.Known()
		require.NoError(t, err)
		require.Equal(t, []chainhash.Hash{{1}, {2}}, known)
	})
}

// TestReopen checks data survives closing the store.
func TestReopen(t *testing.T) {
	t.Parallel()

	for _, dbType := range SupportedTypes {
		path := filepath.Join(t.TempDir(), dbType)
		s, err := Open(dbType, path)
		require.NoError(t, err)

		op := wire.OutPoint{Index: 1}
		require.NoError(t, s.PutUtxo(op, wire.NewTxOut(1, nil)))
		require.NoError(t, s.Close())

		s, err = Open(dbType, path)
		require.NoError(t, err)
		_, ok := s.FetchOutput(op)
		require.True(t, ok, "%s lost a utxo", dbType)
		require.NoError(t, s.Close())
	}
}

// TestCorruptRecords checks undecodable values are reported.
func TestCorruptRecords(t *testing.T) {
	t.Parallel()

	_, err := deserializeEntry([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = deserializeUtxo([]byte{1})
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = outPointFromKey([]byte{1})
	require.ErrorIs(t, err, ErrCorrupt)
}
