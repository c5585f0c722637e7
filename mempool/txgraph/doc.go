// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txgraph indexes the dependency structure of a transaction package
against a read-only view of the mempool.

A Graph is built once per validation call. Package members are addressed by
their position in the submitted slice, mempool transactions by txid. Edges
are derived from inputs: a member that spends an output of another member has
it as a package parent, and a member that spends an output of a transaction
the view reports as present has it as a mempool parent.

The graph answers the structural questions package validation asks before any
fee or limit work is done:

  - CheckTopologicalOrder reports every member that spends an output of a
    later member.
  - FindDuplicates reports members whose txid already appeared earlier.
  - FindConflicts reports outpoints spent by more than one member.
  - PackageAncestors and PackageDescendants return the transitive closure of
    a member inside the package. Results are memoized per member.

The graph never mutates the view and is not safe for concurrent use.
*/
package txgraph
