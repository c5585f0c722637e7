// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// RejectKind identifies why a transaction or package was not accepted. The
// string values match the reject reasons relayed by reference nodes.
type RejectKind string

// These constants enumerate the reject kinds produced by package validation.
const (
	// RejectPackageTooMany is a package-wide rejection for a package with
	// more members than the policy allows.
	RejectPackageTooMany RejectKind = "package-too-many-transactions"

	// RejectPackageTooLarge is a package-wide rejection for a package whose
	// total serialized size exceeds the policy bound.
	RejectPackageTooLarge RejectKind = "package-too-large"

	// RejectPackageNotSorted is a package-wide rejection for a package
	// that is not in topological order.
	RejectPackageNotSorted RejectKind = "package-not-sorted"

	// RejectPackageDuplicates is a package-wide rejection for a package
	// listing the same transaction twice.
	RejectPackageDuplicates RejectKind = "package-contains-duplicates"

	// RejectConflictInPackage is a package-wide rejection for two members
	// spending the same outpoint.
	RejectConflictInPackage RejectKind = "conflict-in-package"

	// RejectPackageLimits is a package-wide rejection for a combined
	// ancestor or descendant limit violation.
	RejectPackageLimits RejectKind = "package-mempool-limits"

	// RejectNotChildWithParents is a package-wide rejection for a
	// submitted package that is not one child preceded by its parents.
	RejectNotChildWithParents RejectKind = "package-not-child-with-parents"

	// RejectNotChildWithUnconfirmedParents is a package-wide rejection for
	// a submitted child spending an output that is neither in the
	// package, the mempool nor the confirmed UTXO set.
	RejectNotChildWithUnconfirmedParents RejectKind = "package-not-child-with-unconfirmed-parents"

	RejectMissingInputs    RejectKind = "missing-inputs"
	RejectMempoolConflict  RejectKind = "txn-mempool-conflict"
	RejectAlreadyInMempool RejectKind = "txn-already-in-mempool"
	RejectAlreadyKnown     RejectKind = "txn-already-known"
	RejectInBelowOut       RejectKind = "bad-txns-in-belowout"
	RejectMaxFeeExceeded   RejectKind = "max-fee-exceeded"
	RejectMinRelayFee      RejectKind = "min-relay-fee-not-met"

	// Context-free checks.
	RejectNoInputs         RejectKind = "bad-txns-vin-empty"
	RejectNoOutputs        RejectKind = "bad-txns-vout-empty"
	RejectNegativeOutput   RejectKind = "bad-txns-vout-negative"
	RejectOutputTooLarge   RejectKind = "bad-txns-vout-toolarge"
	RejectOutputTotalLarge RejectKind = "bad-txns-txouttotal-toolarge"
	RejectDuplicateInputs  RejectKind = "bad-txns-inputs-duplicate"
	RejectTxSize           RejectKind = "tx-size"
)

// String returns the kind as relayed on the wire.
func (k RejectKind) String() string {
	return string(k)
}

// IsPackageWide reports whether the kind applies to every member of a
// package at once.
func (k RejectKind) IsPackageWide() bool {
	switch k {
	case RejectPackageTooMany, RejectPackageTooLarge,
		RejectPackageNotSorted, RejectPackageDuplicates,
		RejectConflictInPackage, RejectPackageLimits,
		RejectNotChildWithParents, RejectNotChildWithUnconfirmedParents:
		return true
	}
	return false
}

// IsInformational reports whether the kind describes a transaction that was
// skipped rather than found invalid.
func (k RejectKind) IsInformational() bool {
	return k == RejectAlreadyInMempool || k == RejectAlreadyKnown
}

// RejectCode maps the kind to the closest wire reject code.
func (k RejectKind) RejectCode() wire.RejectCode {
	switch k {
	case RejectAlreadyInMempool, RejectAlreadyKnown:
		return wire.RejectDuplicate
	case RejectMinRelayFee:
		return wire.RejectInsufficientFee
	case RejectTxSize, RejectMaxFeeExceeded, RejectPackageTooMany,
		RejectPackageTooLarge, RejectPackageLimits,
		RejectNotChildWithParents, RejectNotChildWithUnconfirmedParents:
		return wire.RejectNonstandard
	case RejectNoInputs, RejectNoOutputs, RejectNegativeOutput,
		RejectOutputTooLarge, RejectOutputTotalLarge,
		RejectDuplicateInputs:
		return wire.RejectMalformed
	}
	return wire.RejectInvalid
}

// TxRuleError identifies a rule violation by a transaction or package. It is
// a value error: callers recover it with errors.As and inspect Kind.
type TxRuleError struct {
	Kind        RejectKind
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e TxRuleError) Error() string {
	if e.Description == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// txRuleError creates an underlying TxRuleError with the given kind and a
// formatted description.
func txRuleError(kind RejectKind, format string, args ...interface{}) error {
	return TxRuleError{Kind: kind, Description: fmt.Sprintf(format, args...)}
}

// extractRejectKind returns the reject kind carried by err, if any.
func extractRejectKind(err error) (RejectKind, string, bool) {
	var rerr TxRuleError
	if errors.As(err, &rerr) {
		return rerr.Kind, rerr.Description, true
	}
	return "", "", false
}

var (
	// ErrEmptyPackage is returned when validation is asked to evaluate a
	// package with no transactions.
	ErrEmptyPackage = errors.New("package contains no transactions")

	// ErrNilTransaction is returned when a package slot holds nil.
	ErrNilTransaction = errors.New("package contains a nil transaction")

	// ErrPackageRejected is returned by the submitter when handed a result
	// that failed package-wide.
	ErrPackageRejected = errors.New("package was rejected")

	// ErrInconsistentState is returned when an admission fails after
	// validation passed. Members admitted before the failure stay in the
	// index and the caller is expected to re-validate.
	ErrInconsistentState = errors.New("mempool state changed between " +
		"validation and commit")

	// ErrNotInMempool is returned when removing an unknown transaction.
	ErrNotInMempool = errors.New("transaction not in mempool")
)
