// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txgraph

import (
	"iter"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MempoolView is the read-only slice of the mempool the graph consults to
// classify parents and children that live outside the package.
type MempoolView interface {
	// HasTransaction reports whether the mempool holds the transaction.
	HasTransaction(hash chainhash.Hash) bool

	// SpenderOf returns the mempool transaction spending op, if any.
	SpenderOf(op wire.OutPoint) (chainhash.Hash, bool)
}

// Scope selects which side of the combined graph a relative query covers.
type Scope uint8

const (
	// ScopePackage limits a query to package members.
	ScopePackage Scope = 1 << iota

	// ScopeMempool limits a query to mempool transactions.
	ScopeMempool

	// ScopeBoth covers package members and mempool transactions.
	ScopeBoth = ScopePackage | ScopeMempool
)

// Relatives is the answer to a parent or child query. Package relatives are
// member indexes in ascending order, mempool relatives are txids in the
// order their outpoints were encountered.
type Relatives struct {
	Package []int
	Mempool []chainhash.Hash
}

// Len returns the total number of relatives.
func (r Relatives) Len() int {
	return len(r.Package) + len(r.Mempool)
}

// OrderViolation records a member that spends an output of a member placed
// after it.
type OrderViolation struct {
	// Child is the index of the spending member.
	Child int

	// Parent is the index of the later member whose output is spent.
	Parent int
}

// Conflict records an outpoint spent by more than one package member.
type Conflict struct {
	OutPoint wire.OutPoint

	// Spenders are the member indexes spending OutPoint, ascending.
	Spenders []int
}

// Graph is the dependency index of one package.
type Graph struct {
	txs  []*btcutil.Tx
	view MempoolView

	// first maps each txid to the index of its first occurrence.
	first map[chainhash.Hash]int

	// spends maps each outpoint to the members spending it.
	spends map[wire.OutPoint][]int

	parents  [][]int
	children [][]int

	ancestors   [][]int
	descendants [][]int
}

// New indexes txs. A nil view treats the mempool as empty.
func New(txs []*btcutil.Tx, view MempoolView) *Graph {
	n := len(txs)
	g := &Graph{
		txs:         txs,
		view:        view,
		first:       make(map[chainhash.Hash]int, n),
		spends:      make(map[wire.OutPoint][]int),
		parents:     make([][]int, n),
		children:    make([][]int, n),
		ancestors:   make([][]int, n),
		descendants: make([][]int, n),
	}

	for i, tx := range txs {
		if _, ok := g.first[*tx.Hash()]; !ok {
			g.first[*tx.Hash()] = i
		}
	}

	for i, tx := range txs {
		for _, txIn := range tx.MsgTx().TxIn {
			op := txIn.PreviousOutPoint

			// A member listing the same outpoint twice is a
			// malformed transaction, not a package conflict.
			spenders := g.spends[op]
			if len(spenders) == 0 || spenders[len(spenders)-1] != i {
				g.spends[op] = append(spenders, i)
			}

			p, ok := g.first[op.Hash]
			if !ok || p == i || slices.Contains(g.parents[i], p) {
				continue
			}
			g.parents[i] = append(g.parents[i], p)
			g.children[p] = append(g.children[p], i)
		}
		slices.Sort(g.parents[i])
	}
	for p := range g.children {
		slices.Sort(g.children[p])
	}

	log.Tracef("Indexed package of %d transactions (%d spent outpoints)",
		n, len(g.spends))

	return g
}

// Len returns the number of package members.
func (g *Graph) Len() int {
	return len(g.txs)
}

// Tx returns the member at index i.
func (g *Graph) Tx(i int) *btcutil.Tx {
	return g.txs[i]
}

// IndexOf returns the index of the first member with the given txid.
func (g *Graph) IndexOf(hash chainhash.Hash) (int, bool) {
	i, ok := g.first[hash]
	return i, ok
}

// Members yields every member with its index in package order.
func (g *Graph) Members() iter.Seq2[int, *btcutil.Tx] {
	return func(yield func(int, *btcutil.Tx) bool) {
		for i, tx := range g.txs {
			if !yield(i, tx) {
				return
			}
		}
	}
}

// ParentsOf returns the direct parents of member i. A parent present in the
// package is reported as a package parent even if the mempool also holds
// it.
func (g *Graph) ParentsOf(i int, scope Scope) Relatives {
	var rel Relatives
	if scope&ScopePackage != 0 {
		rel.Package = g.parents[i]
	}
	if scope&ScopeMempool == 0 || g.view == nil {
		return rel
	}

	for _, txIn := range g.txs[i].MsgTx().TxIn {
		hash := txIn.PreviousOutPoint.Hash
		if _, ok := g.first[hash]; ok {
			continue
		}
		if slices.Contains(rel.Mempool, hash) {
			continue
		}
		if g.view.HasTransaction(hash) {
			rel.Mempool = append(rel.Mempool, hash)
		}
	}
	return rel
}

// ChildrenOf returns the direct children of member i. Mempool children only
// exist when member i is itself already in the mempool.
func (g *Graph) ChildrenOf(i int, scope Scope) Relatives {
	var rel Relatives
	if scope&ScopePackage != 0 {
		rel.Package = g.children[i]
	}
	if scope&ScopeMempool == 0 || g.view == nil {
		return rel
	}

	tx := g.txs[i]
	for idx := range tx.MsgTx().TxOut {
		op := wire.OutPoint{Hash: *tx.Hash(), Index: uint32(idx)}
		spender, ok := g.view.SpenderOf(op)
		if !ok || slices.Contains(rel.Mempool, spender) {
			continue
		}
		if _, inPkg := g.first[spender]; inPkg {
			continue
		}
		rel.Mempool = append(rel.Mempool, spender)
	}
	return rel
}

// PackageAncestors returns the indexes of every package member that member i
// depends on, ascending and excluding i.
func (g *Graph) PackageAncestors(i int) []int {
	if g.ancestors[i] != nil {
		return g.ancestors[i]
	}

	seen := map[int]struct{}{i: {}}
	stack := NewStack[int](len(g.parents[i]))
	for _, p := range g.parents[i] {
		stack.Push(p)
	}
	set := make([]int, 0, len(g.parents[i]))
	for !stack.IsEmpty() {
		p, _ := stack.Pop()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		set = append(set, p)
		for _, pp := range g.parents[p] {
			stack.Push(pp)
		}
	}
	slices.Sort(set)

	g.ancestors[i] = set
	return set
}

// PackageDescendants returns the indexes of every package member that
// depends on member i, ascending and excluding i.
func (g *Graph) PackageDescendants(i int) []int {
	if g.descendants[i] != nil {
		return g.descendants[i]
	}

	seen := map[int]struct{}{i: {}}
	queue := NewQueue[int](len(g.children[i]))
	for _, c := range g.children[i] {
		queue.Enqueue(c)
	}
	set := make([]int, 0, len(g.children[i]))
	for !queue.IsEmpty() {
		c, _ := queue.Dequeue()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		set = append(set, c)
		for _, cc := range g.children[c] {
			queue.Enqueue(cc)
		}
	}
	slices.Sort(set)

	g.descendants[i] = set
	return set
}

// CheckTopologicalOrder returns every (child, parent) pair where the parent
// is placed after the child. The result is empty for a sorted package.
func (g *Graph) CheckTopologicalOrder() []OrderViolation {
	var violations []OrderViolation
	for i, parents := range g.parents {
		for _, p := range parents {
			if p > i {
				violations = append(violations, OrderViolation{
					Child:  i,
					Parent: p,
				})
			}
		}
	}
	return violations
}

// IsChildWithParents reports whether the package is one child, placed
// last, preceded only by its direct parents. Parents may also spend each
// other. A single transaction is a child without package parents.
func (g *Graph) IsChildWithParents() bool {
	n := len(g.txs)
	if n == 0 {
		return false
	}
	parents := g.parents[n-1]
	for i := 0; i < n-1; i++ {
		if !slices.Contains(parents, i) {
			return false
		}
	}
	return true
}

// FindDuplicates returns the indexes of members whose txid already appeared
// at an earlier position.
func (g *Graph) FindDuplicates() []int {
	var dups []int
	for i, tx := range g.txs {
		if g.first[*tx.Hash()] != i {
			dups = append(dups, i)
		}
	}
	return dups
}

// FindConflicts returns every outpoint spent by two or more members, ordered
// by first spender and then input position.
func (g *Graph) FindConflicts() []Conflict {
	var conflicts []Conflict
	reported := make(map[wire.OutPoint]struct{})
	for _, tx := range g.txs {
		for _, txIn := range tx.MsgTx().TxIn {
			op := txIn.PreviousOutPoint
			spenders := g.spends[op]
			if len(spenders) < 2 {
				continue
			}
			if _, ok := reported[op]; ok {
				continue
			}
			reported[op] = struct{}{}
			conflicts = append(conflicts, Conflict{
				OutPoint: op,
				Spenders: spenders,
			})
		}
	}
	return conflicts
}
