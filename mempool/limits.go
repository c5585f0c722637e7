// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/pkgrelay/mempool/txgraph"
)

// LimitStats are the aggregates of one transaction over the union of the
// mempool and the package. Each count and size includes the transaction
// itself and counts every related transaction once.
type LimitStats struct {
	AncestorCount   int
	AncestorSize    int64
	DescendantCount int
	DescendantSize  int64
}

// LimitReport is the outcome of one Calculate call.
type LimitReport struct {
	// Members holds the stats of every evaluated package member, keyed
	// by package index.
	Members map[int]*LimitStats

	// Mempool holds the combined descendant stats of every mempool entry
	// that is an ancestor of an evaluated member. Ancestor fields are
	// left zero since a new child never changes them.
	Mempool map[chainhash.Hash]*LimitStats

	// Violation is the first limit found exceeded, or nil. It is a
	// TxRuleError of kind package-mempool-limits.
	Violation error
}

// combinedAncestors is the ancestor set of one member across both graphs.
type combinedAncestors struct {
	pkg     map[int]struct{}
	mempool map[chainhash.Hash]int64
}

// LimitsCalculator computes combined ancestor and descendant aggregates for
// package members and checks them against Limits.
type LimitsCalculator struct {
	limits Limits
}

// NewLimitsCalculator returns a calculator enforcing limits.
func NewLimitsCalculator(limits Limits) *LimitsCalculator {
	return &LimitsCalculator{limits: limits}
}

// Calculate evaluates the members at the given package indexes, which must
// be in ascending order. Members of the package not listed are taken to be
// either already in the mempool or not admissible, so their outputs only
// count through idx.
func (c *LimitsCalculator) Calculate(g *txgraph.Graph, idx Index,
	members []int) *LimitReport {

	isMember := make(map[int]struct{}, len(members))
	for _, i := range members {
		isMember[i] = struct{}{}
	}
	sizeOf := func(i int) int64 {
		return int64(g.Tx(i).MsgTx().SerializeSize())
	}

	// Parents precede children, so every package parent of a member is
	// memoized before the member itself is visited.
	memo := make(map[int]*combinedAncestors, len(members))
	for _, i := range members {
		memo[i] = c.ancestorsOf(g, idx, i, isMember, memo)
	}

	report := &LimitReport{
		Members: make(map[int]*LimitStats, len(members)),
		Mempool: make(map[chainhash.Hash]*LimitStats),
	}
	for _, i := range members {
		anc := memo[i]
		stats := &LimitStats{
			AncestorCount:   1 + len(anc.pkg) + len(anc.mempool),
			AncestorSize:    sizeOf(i),
			DescendantCount: 1,
			DescendantSize:  sizeOf(i),
		}
		for p := range anc.pkg {
			stats.AncestorSize += sizeOf(p)
		}
		for _, size := range anc.mempool {
			stats.AncestorSize += size
		}
		report.Members[i] = stats
	}

	// Fold every member into the descendant stats of each of its
	// ancestors on either side.
	for _, i := range members {
		size := sizeOf(i)
		for p := range memo[i].pkg {
			report.Members[p].DescendantCount++
			report.Members[p].DescendantSize += size
		}
		for h, hSize := range memo[i].mempool {
			stats, ok := report.Mempool[h]
			if !ok {
				stats = &LimitStats{
					DescendantCount: 1,
					DescendantSize:  hSize,
				}
				if desc, ok := idx.Descendants(h); ok {
					stats.DescendantCount = desc.Count
					stats.DescendantSize = desc.Size
				}
				report.Mempool[h] = stats
			}
			stats.DescendantCount++
			stats.DescendantSize += size
		}
	}

	report.Violation = c.check(g, members, report)
	return report
}

// ancestorsOf returns the combined ancestor set of member i.
func (c *LimitsCalculator) ancestorsOf(g *txgraph.Graph, idx Index, i int,
	isMember map[int]struct{},
	memo map[int]*combinedAncestors) *combinedAncestors {

	if anc, ok := memo[i]; ok {
		return anc
	}

	anc := &combinedAncestors{
		pkg:     make(map[int]struct{}),
		mempool: make(map[chainhash.Hash]int64),
	}
	rel := g.ParentsOf(i, txgraph.ScopeBoth)
	for _, p := range rel.Package {
		if _, ok := isMember[p]; !ok {
			addMempoolAncestor(anc, idx, *g.Tx(p).Hash())
			continue
		}

		anc.pkg[p] = struct{}{}
		parent := c.ancestorsOf(g, idx, p, isMember, memo)
		for pp := range parent.pkg {
			anc.pkg[pp] = struct{}{}
		}
		for h, size := range parent.mempool {
			anc.mempool[h] = size
		}
	}
	for _, h := range rel.Mempool {
		addMempoolAncestor(anc, idx, h)
	}

	memo[i] = anc
	return anc
}

// addMempoolAncestor adds the entry hash and its own ancestor set to anc.
// Ancestor sets are closed, so an entry already present brings nothing new.
func addMempoolAncestor(anc *combinedAncestors, idx Index, hash chainhash.Hash) {
	if _, ok := anc.mempool[hash]; ok {
		return
	}
	entry, ok := idx.Lookup(hash)
	if !ok {
		return
	}
	anc.mempool[hash] = entry.Size

	set, ok := idx.Ancestors(hash)
	if !ok {
		return
	}
	for h, e := range set.Entries {
		anc.mempool[h] = e.Size
	}
}

// check returns the first exceeded limit. Members are checked in package
// order, then mempool entries in txid order.
func (c *LimitsCalculator) check(g *txgraph.Graph, members []int,
	report *LimitReport) error {

	l := c.limits
	for _, i := range members {
		stats := report.Members[i]
		hash := g.Tx(i).Hash()
		switch {
		case stats.AncestorCount > l.MaxAncestorCount:
			return txRuleError(RejectPackageLimits, "too many "+
				"unconfirmed ancestors for tx %v: %d [limit: %d]",
				hash, stats.AncestorCount, l.MaxAncestorCount)

		case stats.AncestorSize > l.MaxAncestorSize:
			return txRuleError(RejectPackageLimits, "exceeds "+
				"ancestor size limit for tx %v: %d [limit: %d]",
				hash, stats.AncestorSize, l.MaxAncestorSize)

		case stats.DescendantCount > l.MaxDescendantCount:
			return txRuleError(RejectPackageLimits, "too many "+
				"descendants for tx %v: %d [limit: %d]", hash,
				stats.DescendantCount, l.MaxDescendantCount)

		case stats.DescendantSize > l.MaxDescendantSize:
			return txRuleError(RejectPackageLimits, "exceeds "+
				"descendant size limit for tx %v: %d [limit: %d]",
				hash, stats.DescendantSize, l.MaxDescendantSize)
		}
	}

	hashes := make([]chainhash.Hash, 0, len(report.Mempool))
	for h := range report.Mempool {
		hashes = append(hashes, h)
	}
	slices.SortFunc(hashes, func(a, b chainhash.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
	for _, h := range hashes {
		stats := report.Mempool[h]
		switch {
		case stats.DescendantCount > l.MaxDescendantCount:
			return txRuleError(RejectPackageLimits, "too many "+
				"descendants for mempool tx %v: %d [limit: %d]", h,
				stats.DescendantCount, l.MaxDescendantCount)

		case stats.DescendantSize > l.MaxDescendantSize:
			return txRuleError(RejectPackageLimits, "exceeds "+
				"descendant size limit for mempool tx %v: %d "+
				"[limit: %d]", h, stats.DescendantSize,
				l.MaxDescendantSize)
		}
	}

	return nil
}
