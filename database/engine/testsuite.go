// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// collect drains the pairs of r from a fresh snapshot of db.
func collect(t *testing.T, db Engine, r *Range) [][2]string {
	t.Helper()

	snapshot, err := db.Snapshot()
	require.NoError(t, err, "failed to create snapshot")
	defer snapshot.Release()

	iter := snapshot.NewIterator(r)
	defer iter.Release()

	var kvs [][2]string
	for ok := iter.First(); ok; ok = iter.Next() {
		kvs = append(kvs, [2]string{string(iter.Key()), string(iter.Value())})
	}
	require.NoError(t, iter.Error(), "iteration failed")
	return kvs
}

// TestSuiteEngine runs the behavioural contract every backend must satisfy.
// Backend packages call it from their own tests with a constructor that
// opens a fresh database.
func TestSuiteEngine(t *testing.T, open func() Engine) {
	t.Run("CommitVisibility", func(t *testing.T) {
		db := open()
		defer db.Close()

		tx, err := db.Transaction()
		require.NoError(t, err, "failed to create transaction")
		require.NoError(t, tx.Put([]byte("u1"), []byte("coin")))

		// Uncommitted writes are invisible.
		snapshot, err := db.Snapshot()
		require.NoError(t, err)
		has, err := snapshot.Has([]byte("u1"))
		require.NoError(t, err)
		require.False(t, has, "uncommitted key visible")
		_, err = snapshot.Get([]byte("u1"))
		require.True(t, errors.Is(err, ErrNotFound), "want ErrNotFound, got %v", err)
		snapshot.Release()

		require.NoError(t, tx.Commit(), "failed to commit")

		snapshot, err = db.Snapshot()
		require.NoError(t, err)
		got, err := snapshot.Get([]byte("u1"))
		require.NoError(t, err)
		require.Equal(t, []byte("coin"), got)
		snapshot.Release()
	})

	t.Run("DeleteAndRewrite", func(t *testing.T) {
		db := open()
		defer db.Close()

		tx, err := db.Transaction()
		require.NoError(t, err)
		for _, k := range []string{"m1", "m2", "m3"} {
			require.NoError(t, tx.Put([]byte(k), []byte("v"+k)))
		}
		require.NoError(t, tx.Commit())

		// A single batch that clears a prefix and writes a new
		// generation must apply atomically.
		tx, err = db.Transaction()
		require.NoError(t, err)
		for _, kv := range collect(t, db, BytesPrefix([]byte("m"))) {
			require.NoError(t, tx.Delete([]byte(kv[0])))
		}
		require.NoError(t, tx.Put([]byte("m1"), []byte("fresh")))
		require.NoError(t, tx.Commit())

		require.Equal(t, [][2]string{{"m1", "fresh"}},
			collect(t, db, BytesPrefix([]byte("m"))))
	})

	t.Run("PrefixIteration", func(t *testing.T) {
		tests := []struct {
			name string
			kvs  map[string]string
			r    *Range
			want [][2]string
		}{{
			name: "empty range below keys",
			kvs:  map[string]string{"k1": "a", "k2": "b"},
			r:    &Range{Start: []byte("k0"), Limit: []byte("k1")},
			want: nil,
		}, {
			name: "half open",
			kvs:  map[string]string{"k1": "a", "k2": "b", "k3": "c"},
			r:    &Range{Start: []byte("k1"), Limit: []byte("k3")},
			want: [][2]string{{"k1", "a"}, {"k2", "b"}},
		}, {
			name: "prefix isolates tables",
			kvs: map[string]string{
				"m\x00\x01": "tx1", "m\x00\x02": "tx2",
				"u\x00": "coin", "k\x00": "known",
			},
			r:    BytesPrefix([]byte("m")),
			want: [][2]string{{"m\x00\x01", "tx1"}, {"m\x00\x02", "tx2"}},
		}}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				db := open()
				defer db.Close()

				tx, err := db.Transaction()
				require.NoError(t, err)
				for k, v := range test.kvs {
					require.NoError(t, tx.Put([]byte(k), []byte(v)))
				}
				require.NoError(t, tx.Commit())

				require.Equal(t, test.want, collect(t, db, test.r))
			})
		}
	})

	t.Run("Close", func(t *testing.T) {
		db := open()

		tx, err := db.Transaction()
		require.NoError(t, err)
		tx.Discard()
		tx.Discard()
		require.Error(t, tx.Commit(), "commit after discard must fail")

		snapshot, err := db.Snapshot()
		require.NoError(t, err)
		iter := snapshot.NewIterator(&Range{})
		require.NoError(t, iter.Error())
		iter.Release()
		iter.Release()
		snapshot.Release()
		snapshot.Release()
		_, err = snapshot.Get([]byte("k"))
		require.Error(t, err, "get on released snapshot must fail")

		require.NoError(t, db.Close())
		require.Error(t, db.Close(), "double close must fail")
		_, err = db.Transaction()
		require.Error(t, err)
		_, err = db.Snapshot()
		require.Error(t, err)
	})
}
