// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// AcceptedFunc is invoked for every transaction the submitter admits.
type AcceptedFunc func(entry *TxEntry, result *TxResult)

// PackageSubmitter commits validated packages to an index.
type PackageSubmitter struct {
	onAccepted AcceptedFunc
}

// NewPackageSubmitter returns a submitter. onAccepted may be nil.
func NewPackageSubmitter(onAccepted AcceptedFunc) *PackageSubmitter {
	return &PackageSubmitter{onAccepted: onAccepted}
}

// Commit admits every valid member of an accepted result in package order.
// Members already in the mempool or recently confirmed are skipped. Commit
// does not roll back: if an admission fails the members admitted before it
// remain and ErrInconsistentState is returned wrapping the cause.
func (s *PackageSubmitter) Commit(idx Index, txs []*btcutil.Tx,
	result *PackageResult) ([]*TxEntry, error) {

	if !result.Accepted() {
		return nil, fmt.Errorf("%w: %v", ErrPackageRejected, result.State)
	}
	if len(txs) != len(result.TxResults) {
		return nil, fmt.Errorf("result covers %d transactions, package "+
			"has %d", len(result.TxResults), len(txs))
	}

	var admitted []*TxEntry
	for i, res := range result.TxResults {
		if res.Status != TxStatusValid {
			continue
		}

		entry, err := idx.Admit(txs[i], res.Fee)
		if err != nil {
			log.Errorf("Admission of validated transaction %v "+
				"failed after %d of the package were admitted: %v",
				res.TxHash, len(admitted), err)
			return admitted, fmt.Errorf("%w: %w", ErrInconsistentState,
				err)
		}
		res.Committed = true
		admitted = append(admitted, entry)

		if s.onAccepted != nil {
			s.onAccepted(entry, res)
		}
	}

	log.Infof("Accepted %d %s into the mempool (package fees %v, "+
		"size %d)", len(admitted),
		pickNoun(len(admitted), "transaction", "transactions"),
		result.TotalFees, result.TotalSize)

	return admitted, nil
}
