// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ValidationState is the stage a package validation has reached.
type ValidationState uint8

const (
	StateReceived ValidationState = iota
	StateStructureChecked
	StateConflictChecked
	StateLimitsChecked
	StateAccepted
	StateRejected
)

var validationStateStrings = map[ValidationState]string{
	StateReceived:         "received",
	StateStructureChecked: "structure-checked",
	StateConflictChecked:  "conflict-checked",
	StateLimitsChecked:    "limits-checked",
	StateAccepted:         "accepted",
	StateRejected:         "rejected",
}

// String returns the ValidationState in human-readable form.
func (s ValidationState) String() string {
	if str, ok := validationStateStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown ValidationState (%d)", uint8(s))
}

// IsFinal reports whether no further transition is possible.
func (s ValidationState) IsFinal() bool {
	return s == StateAccepted || s == StateRejected
}

// TxStatus is the per-transaction outcome of a package validation.
type TxStatus uint8

const (
	// TxStatusPending is held by a transaction not yet evaluated.
	TxStatusPending TxStatus = iota

	// TxStatusValid marks a transaction that may be admitted.
	TxStatusValid

	// TxStatusInvalid marks a rejected transaction. Kind says why.
	TxStatusInvalid

	// TxStatusMempoolEntry marks a transaction already in the mempool.
	TxStatusMempoolEntry

	// TxStatusKnown marks a transaction that was recently confirmed.
	TxStatusKnown
)

var txStatusStrings = map[TxStatus]string{
	TxStatusPending:      "pending",
	TxStatusValid:        "valid",
	TxStatusInvalid:      "invalid",
	TxStatusMempoolEntry: "mempool-entry",
	TxStatusKnown:        "known",
}

// String returns the TxStatus in human-readable form.
func (s TxStatus) String() string {
	if str, ok := txStatusStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown TxStatus (%d)", uint8(s))
}

// TxResult is the outcome for one transaction of a package.
type TxResult struct {
	TxHash chainhash.Hash
	Status TxStatus

	// Kind and Detail describe a rejection or an informational outcome.
	Kind   RejectKind
	Detail string

	// Fee is the base fee. For a mempool entry it is the fee recorded at
	// admission.
	Fee  btcutil.Amount
	Size int64

	// FeeRate is the transaction's own fee rate and EffectiveFeeRate the
	// rate it was judged at, which differs when the package paid for it.
	// Both are in satoshi per 1000 bytes.
	FeeRate          btcutil.Amount
	EffectiveFeeRate btcutil.Amount

	// RelayEligible is set for valid transactions whose effective fee
	// rate meets the minimum relay fee.
	RelayEligible bool

	// Committed is set by the submitter once the transaction is in the
	// mempool.
	Committed bool
}

// Err returns the rejection as a TxRuleError, or nil for valid and
// informational outcomes.
func (r *TxResult) Err() error {
	if r.Status != TxStatusInvalid {
		return nil
	}
	return TxRuleError{Kind: r.Kind, Description: r.Detail}
}

// reject marks the transaction invalid with the kind carried by err.
func (r *TxResult) reject(kind RejectKind, detail string) {
	r.Status = TxStatusInvalid
	r.Kind = kind
	r.Detail = detail
	r.EffectiveFeeRate = 0
	r.RelayEligible = false
}

// PackageResult is the outcome of validating a package. TxResults holds one
// entry per submitted transaction in input order.
type PackageResult struct {
	State ValidationState

	// PackageKind is set when the package failed as a whole. Every
	// TxResult then carries the same kind.
	PackageKind   RejectKind
	PackageDetail string

	TxResults []*TxResult

	// TotalFees and TotalSize cover valid members and members already
	// in the mempool.
	TotalFees btcutil.Amount
	TotalSize int64

	// PackageFeeRate is the combined rate of the largest fee bumped
	// cluster, a member together with the package ancestors it pays for.
	// It is zero when no cluster of two or more members qualified.
	PackageFeeRate btcutil.Amount
}

// newPackageResult returns a pending result for txs.
func newPackageResult(txs []*btcutil.Tx) *PackageResult {
	r := &PackageResult{
		State:     StateReceived,
		TxResults: make([]*TxResult, len(txs)),
	}
	for i, tx := range txs {
		r.TxResults[i] = &TxResult{
			TxHash: *tx.Hash(),
			Size:   int64(tx.MsgTx().SerializeSize()),
		}
	}
	return r
}

// Accepted reports whether every member is valid or already present.
func (r *PackageResult) Accepted() bool {
	return r.State == StateAccepted
}

// Err returns the package-wide rejection, or nil.
func (r *PackageResult) Err() error {
	if r.PackageKind == "" {
		return nil
	}
	return TxRuleError{Kind: r.PackageKind, Description: r.PackageDetail}
}

// Result returns the outcome for hash.
func (r *PackageResult) Result(hash chainhash.Hash) (*TxResult, bool) {
	for _, res := range r.TxResults {
		if res.TxHash == hash {
			return res, true
		}
	}
	return nil, false
}

// Count returns the number of members with the given status.
func (r *PackageResult) Count(status TxStatus) int {
	var n int
	for _, res := range r.TxResults {
		if res.Status == status {
			n++
		}
	}
	return n
}

// advance moves the result to next.
func (r *PackageResult) advance(next ValidationState) {
	log.Tracef("Package state %v -> %v", r.State, next)
	r.State = next
}

// rejectPackage fails every member with the same package-wide kind.
// memberDetail optionally overrides the detail of individual members.
func (r *PackageResult) rejectPackage(kind RejectKind, detail string,
	memberDetail map[int]string) {

	r.PackageKind = kind
	r.PackageDetail = detail
	for i, res := range r.TxResults {
		d, ok := memberDetail[i]
		if !ok {
			d = detail
		}
		res.reject(kind, d)
	}
	r.TotalFees, r.TotalSize, r.PackageFeeRate = 0, 0, 0
	r.advance(StateRejected)
}
