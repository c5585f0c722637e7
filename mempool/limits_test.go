// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/pkgrelay/mempool/txgraph"
	"github.com/stretchr/testify/require"
)

// injectStub places a standalone transaction in idx with the given mempool
// aggregates. The relative sets carry only counts and sizes, which is all
// the calculator reads from mempool entries deeper than one hop.
func injectStub(h *testHarness, idx *MockIndex, ancCount, descCount int,
	ancSize, descSize int64) *btcutil.Tx {

	tx := h.spend([]wire.OutPoint{h.coin()}, 2, testFee)
	entry := NewTxEntry(tx, testFee, time.Now())
	idx.Inject(entry,
		&RelativeSet{Entries: map[chainhash.Hash]*TxEntry{},
			Count: ancCount, Size: ancSize},
		&RelativeSet{Entries: map[chainhash.Hash]*TxEntry{},
			Count: descCount, Size: descSize})
	return tx
}

// TestLimitsDescendantOfMempoolEntry checks that package members count
// toward the descendant limit of their mempool ancestor.
func TestLimitsDescendantOfMempoolEntry(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, DefaultPolicy())
	idx := NewMockIndex()

	// M already has 48 descendants counting itself. Two package
	// descendants push it to 50, a third to 51.
	m := injectStub(h, idx, 1, 48, 100, 4800)
	p1 := h.spend([]wire.OutPoint{outPoint(m, 0)}, 1, testFee)
	p2 := h.spend([]wire.OutPoint{outPoint(p1, 0)}, 1, testFee)
	p3 := h.spend([]wire.OutPoint{outPoint(m, 1)}, 1, testFee)

	calc := NewLimitsCalculator(DefaultLimits())

	pkg := []*btcutil.Tx{p1, p2}
	report := calc.Calculate(txgraph.New(pkg, idx), idx, []int{0, 1})
	require.NoError(t, report.Violation)
	require.Equal(t, 50, report.Mempool[*m.Hash()].DescendantCount)
	require.Equal(t, 2, report.Members[0].DescendantCount)
	require.Equal(t, 3, report.Members[1].AncestorCount)

	pkg = []*btcutil.Tx{p1, p2, p3}
	report = calc.Calculate(txgraph.New(pkg, idx), idx, []int{0, 1, 2})
	require.Error(t, report.Violation)
	kind, _, _ := extractRejectKind(report.Violation)
	require.Equal(t, RejectPackageLimits, kind)
	require.Equal(t, 51, report.Mempool[*m.Hash()].DescendantCount)
}

// TestLimitsSharedAncestorsCountedOnce checks set semantics when two
// mempool parents share their whole ancestry.
func TestLimitsSharedAncestorsCountedOnce(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, DefaultPolicy())
	idx := NewMockIndex()

	// root -> a, root -> b, all in the mempool with real sets.
	root := h.spend([]wire.OutPoint{h.coin()}, 2, testFee)
	a := h.spend([]wire.OutPoint{outPoint(root, 0)}, 1, testFee)
	b := h.spend([]wire.OutPoint{outPoint(root, 1)}, 1, testFee)

	rootEntry := NewTxEntry(root, testFee, time.Now())
	aEntry := NewTxEntry(a, testFee, time.Now())
	bEntry := NewTxEntry(b, testFee, time.Now())
	idx.Inject(rootEntry, nil, &RelativeSet{
		Entries: map[chainhash.Hash]*TxEntry{
			*a.Hash(): aEntry, *b.Hash(): bEntry,
		},
		Count: 3,
		Size:  rootEntry.Size + aEntry.Size + bEntry.Size,
	})
	for _, e := range []*TxEntry{aEntry, bEntry} {
		idx.Inject(e, &RelativeSet{
			Entries: map[chainhash.Hash]*TxEntry{*root.Hash(): rootEntry},
			Count:   2,
			Size:    rootEntry.Size + e.Size,
		}, nil)
	}

	child := h.spend([]wire.OutPoint{outPoint(a, 0), outPoint(b, 0)}, 1,
		testFee)
	pkg := []*btcutil.Tx{child}
	report := NewLimitsCalculator(DefaultLimits()).Calculate(
		txgraph.New(pkg, idx), idx, []int{0})
	require.NoError(t, report.Violation)

	stats := report.Members[0]
	require.Equal(t, 4, stats.AncestorCount, "root counted twice")
	require.Equal(t, rootEntry.Size+aEntry.Size+bEntry.Size+
		int64(child.MsgTx().SerializeSize()), stats.AncestorSize)

	// Root gains exactly one descendant.
	require.Equal(t, 4, report.Mempool[*root.Hash()].DescendantCount)
}

// TestLimitsIndependentChecks checks that each of the four limits trips on
// its own.
func TestLimitsIndependentChecks(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, DefaultPolicy())
	idx := NewMockIndex()
	m := injectStub(h, idx, 1, 1, 0, 0)
	mEntry, _ := idx.Lookup(*m.Hash())
	idx.Inject(mEntry, nil, nil)

	p1 := h.spend([]wire.OutPoint{outPoint(m, 0)}, 1, testFee)
	p2 := h.spend([]wire.OutPoint{outPoint(p1, 0)}, 1, testFee)
	pkg := []*btcutil.Tx{p1, p2}
	pSize := int64(p1.MsgTx().SerializeSize())
	mSize := int64(m.MsgTx().SerializeSize())

	// p2 has 3 ancestors counting itself and m has 3 descendants.
	tests := []struct {
		name   string
		limits Limits
		fails  bool
	}{{
		name:   "all fit",
		limits: Limits{3, 2*pSize + mSize, 3, 2*pSize + mSize},
	}, {
		name:   "ancestor count",
		limits: Limits{2, 1 << 20, 50, 1 << 20},
		fails:  true,
	}, {
		name:   "ancestor size",
		limits: Limits{50, 2*pSize + mSize - 1, 50, 1 << 20},
		fails:  true,
	}, {
		name:   "descendant count",
		limits: Limits{50, 1 << 20, 2, 1 << 20},
		fails:  true,
	}, {
		name:   "descendant size",
		limits: Limits{50, 1 << 20, 50, 2*pSize + mSize - 1},
		fails:  true,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			report := NewLimitsCalculator(test.limits).Calculate(
				txgraph.New(pkg, idx), idx, []int{0, 1})
			if !test.fails {
				require.NoError(t, report.Violation)
				return
			}
			require.Error(t, report.Violation)
		})
	}
}

// TestLimitsSkipsNonMembers checks that a package member already in the
// mempool is reached through the index rather than the package.
func TestLimitsSkipsNonMembers(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, DefaultPolicy())
	idx := NewMockIndex()
	parent := injectStub(h, idx, 10, 1, 1000, 100)
	child := h.spend([]wire.OutPoint{outPoint(parent, 0)}, 1, testFee)

	pkg := []*btcutil.Tx{parent, child}
	report := NewLimitsCalculator(DefaultLimits()).Calculate(
		txgraph.New(pkg, idx), idx, []int{1})
	require.NoError(t, report.Violation)
	require.NotContains(t, report.Members, 0)
	require.Equal(t, 2, report.Members[1].AncestorCount)
	require.Equal(t, 2, report.Mempool[*parent.Hash()].DescendantCount)
}
