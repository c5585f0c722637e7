// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// DefaultMaxAncestorCount is the default maximum number of in-mempool
	// ancestors a transaction may have, counting itself.
	DefaultMaxAncestorCount = 50

	// DefaultMaxAncestorSize is the default maximum total serialized size
	// in bytes of a transaction and its in-mempool ancestors.
	DefaultMaxAncestorSize = 101000

	// DefaultMaxDescendantCount is the default maximum number of
	// in-mempool descendants any transaction may have, counting itself.
	DefaultMaxDescendantCount = 50

	// DefaultMaxDescendantSize is the default maximum total serialized
	// size in bytes of a transaction and its in-mempool descendants.
	DefaultMaxDescendantSize = 101000

	// DefaultMaxPackageCount is the default maximum number of transactions
	// in a submitted package.
	DefaultMaxPackageCount = 50

	// DefaultMaxPackageSize is the default maximum total serialized size
	// of a submitted package.
	DefaultMaxPackageSize = 101000

	// DefaultMinRelayTxFee is the minimum fee rate in satoshi per 1000
	// bytes a transaction or package must pay to be relayed.
	DefaultMinRelayTxFee = btcutil.Amount(1000)

	// MaxStandardTxSize is the largest serialized transaction the standard
	// checker accepts.
	MaxStandardTxSize = 100000

	// DefaultRecentlyConfirmedSize is the number of confirmed txids kept to
	// answer txn-already-known.
	DefaultRecentlyConfirmedSize = 24000
)

// Limits holds the ancestor and descendant bounds. Counts and sizes include
// the transaction being measured.
type Limits struct {
	MaxAncestorCount   int
	MaxAncestorSize    int64
	MaxDescendantCount int
	MaxDescendantSize  int64
}

// DefaultLimits returns the default ancestor and descendant bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxAncestorCount:   DefaultMaxAncestorCount,
		MaxAncestorSize:    DefaultMaxAncestorSize,
		MaxDescendantCount: DefaultMaxDescendantCount,
		MaxDescendantSize:  DefaultMaxDescendantSize,
	}
}

// Validate returns an error when a bound cannot be satisfied by any
// transaction.
func (l Limits) Validate() error {
	switch {
	case l.MaxAncestorCount < 1:
		return fmt.Errorf("max ancestor count must be at least 1, got %d",
			l.MaxAncestorCount)
	case l.MaxDescendantCount < 1:
		return fmt.Errorf("max descendant count must be at least 1, got %d",
			l.MaxDescendantCount)
	case l.MaxAncestorSize < 1:
		return fmt.Errorf("max ancestor size must be positive, got %d",
			l.MaxAncestorSize)
	case l.MaxDescendantSize < 1:
		return fmt.Errorf("max descendant size must be positive, got %d",
			l.MaxDescendantSize)
	}
	return nil
}

// Policy is the full admission policy applied to packages.
type Policy struct {
	Limits

	// MaxPackageCount bounds the number of transactions in a package.
	MaxPackageCount int

	// MaxPackageSize bounds the total serialized size of a package.
	MaxPackageSize int64

	// MinRelayTxFee is the minimum fee rate in satoshi per 1000 bytes.
	// Zero disables fee rate enforcement.
	MinRelayTxFee btcutil.Amount
}

// DefaultPolicy returns the default admission policy.
func DefaultPolicy() Policy {
	return Policy{
		Limits:          DefaultLimits(),
		MaxPackageCount: DefaultMaxPackageCount,
		MaxPackageSize:  DefaultMaxPackageSize,
		MinRelayTxFee:   DefaultMinRelayTxFee,
	}
}

// Validate checks the policy for unusable values.
func (p Policy) Validate() error {
	if err := p.Limits.Validate(); err != nil {
		return err
	}
	if p.MaxPackageCount < 1 {
		return fmt.Errorf("max package count must be at least 1, got %d",
			p.MaxPackageCount)
	}
	if p.MaxPackageSize < 1 {
		return fmt.Errorf("max package size must be positive, got %d",
			p.MaxPackageSize)
	}
	if p.MinRelayTxFee < 0 {
		return fmt.Errorf("min relay fee must not be negative, got %v",
			p.MinRelayTxFee)
	}
	return nil
}

// PackageOptions are per-call validation options.
type PackageOptions struct {
	// MaxFeeRate rejects any transaction whose own fee rate, in satoshi
	// per 1000 bytes, is above it. Zero disables the check.
	MaxFeeRate btcutil.Amount
}

// calcFeePerKB returns the fee rate of fee over size bytes in satoshi per
// 1000 bytes.
func calcFeePerKB(fee btcutil.Amount, size int64) btcutil.Amount {
	if size <= 0 {
		return 0
	}
	return fee * 1000 / btcutil.Amount(size)
}
