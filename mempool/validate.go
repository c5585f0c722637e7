// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/pkgrelay/mempool/txgraph"
)

// ValidatorConfig holds the policy and collaborators of a PackageValidator.
type ValidatorConfig struct {
	Policy Policy

	// Checker runs context-free checks. Nil selects a StandardChecker.
	Checker ContextFreeChecker

	// UtxoSource resolves confirmed outputs. Required.
	UtxoSource UtxoSource

	// IsKnown reports recently confirmed txids. Optional.
	IsKnown func(hash chainhash.Hash) bool
}

// PackageValidator decides whether a package may enter a mempool. It never
// modifies the index it is given.
type PackageValidator struct {
	cfg    ValidatorConfig
	limits *LimitsCalculator
}

// NewPackageValidator returns a validator for cfg.
func NewPackageValidator(cfg ValidatorConfig) (*PackageValidator, error) {
	if cfg.UtxoSource == nil {
		return nil, fmt.Errorf("UtxoSource is required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if cfg.Checker == nil {
		cfg.Checker = &StandardChecker{}
	}
	return &PackageValidator{
		cfg:    cfg,
		limits: NewLimitsCalculator(cfg.Policy.Limits),
	}, nil
}

// Policy returns the policy the validator enforces.
func (v *PackageValidator) Policy() Policy {
	return v.cfg.Policy
}

// validation is the working state of a single Validate call.
type validation struct {
	*PackageValidator

	txs    []*btcutil.Tx
	idx    Index
	opts   PackageOptions
	graph  *txgraph.Graph
	result *PackageResult

	// submit enables the topology rules applied to packages about to be
	// committed.
	submit bool
}

// Validate evaluates txs against idx. Rejections are reported in the
// returned result. An error is returned only for a malformed call or a
// checker failure that is not a rule violation.
//
// Validate accepts any sorted set of transactions. Use ValidateSubmission
// for a package that is about to be committed.
func (v *PackageValidator) Validate(txs []*btcutil.Tx, idx Index,
	opts *PackageOptions) (*PackageResult, error) {

	return v.validate(txs, idx, opts, false)
}

// ValidateSubmission is Validate with the submission topology rules: a
// package of more than one transaction must be a single child, placed last,
// preceded by its parents, and every input of the child must spend a
// package member, a mempool entry or a confirmed output.
func (v *PackageValidator) ValidateSubmission(txs []*btcutil.Tx, idx Index,
	opts *PackageOptions) (*PackageResult, error) {

	return v.validate(txs, idx, opts, true)
}

func (v *PackageValidator) validate(txs []*btcutil.Tx, idx Index,
	opts *PackageOptions, submit bool) (*PackageResult, error) {

	if len(txs) == 0 {
		return nil, ErrEmptyPackage
	}
	for _, tx := range txs {
		if tx == nil {
			return nil, ErrNilTransaction
		}
	}

	val := &validation{
		PackageValidator: v,
		txs:              txs,
		idx:              idx,
		graph:            txgraph.New(txs, idx),
		result:           newPackageResult(txs),
		submit:           submit,
	}
	if opts != nil {
		val.opts = *opts
	}

	log.Debugf("Validating package of %d %s", len(txs),
		pickNoun(len(txs), "transaction", "transactions"))

	err := val.run()
	if err != nil {
		return nil, err
	}

	r := val.result
	log.Debugf("Package of %d %s %v (valid %d, in mempool %d, invalid %d)",
		len(txs), pickNoun(len(txs), "transaction", "transactions"),
		r.State, r.Count(TxStatusValid), r.Count(TxStatusMempoolEntry),
		r.Count(TxStatusInvalid))
	log.Tracef("Package result: %v", spewResult(r))

	return r, nil
}

// run drives the state machine to a final state.
func (val *validation) run() error {
	if !val.checkStructure() {
		return nil
	}
	if !val.checkConflicts() {
		return nil
	}
	if val.submit && !val.checkSubmission() {
		return nil
	}
	if err := val.checkTransactions(); err != nil {
		return err
	}

	var members []int
	for i, res := range val.result.TxResults {
		if res.Status == TxStatusValid {
			members = append(members, i)
		}
	}
	if !val.checkLimits(members) {
		return nil
	}
	val.checkFeeRates(members)
	val.finish()

	return nil
}

// checkStructure enforces the package bounds and topological order.
func (val *validation) checkStructure() bool {
	policy := val.cfg.Policy
	r := val.result

	if len(val.txs) > policy.MaxPackageCount {
		r.rejectPackage(RejectPackageTooMany, fmt.Sprintf("package "+
			"has %d transactions [limit: %d]", len(val.txs),
			policy.MaxPackageCount), nil)
		return false
	}

	var totalSize int64
	for _, res := range r.TxResults {
		totalSize += res.Size
	}
	if totalSize > policy.MaxPackageSize {
		r.rejectPackage(RejectPackageTooLarge, fmt.Sprintf("package "+
			"size of %d bytes exceeds limit of %d", totalSize,
			policy.MaxPackageSize), nil)
		return false
	}

	if violations := val.graph.CheckTopologicalOrder(); len(violations) > 0 {
		details := make(map[int]string, len(violations))
		for _, v := range violations {
			if _, ok := details[v.Child]; ok {
				continue
			}
			details[v.Child] = fmt.Sprintf("spends an output of %v "+
				"at later position %d", val.txs[v.Parent].Hash(),
				v.Parent)
		}
		r.rejectPackage(RejectPackageNotSorted, "package is not "+
			"topologically sorted", details)
		return false
	}

	r.advance(StateStructureChecked)
	return true
}

// checkConflicts rejects duplicates and in-package double spends.
func (val *validation) checkConflicts() bool {
	r := val.result

	if dups := val.graph.FindDuplicates(); len(dups) > 0 {
		r.rejectPackage(RejectPackageDuplicates, fmt.Sprintf("transaction "+
			"%v appears more than once", val.txs[dups[0]].Hash()), nil)
		return false
	}

	if conflicts := val.graph.FindConflicts(); len(conflicts) > 0 {
		c := conflicts[0]
		r.rejectPackage(RejectConflictInPackage, fmt.Sprintf("outpoint "+
			"%v is spent by package transactions at positions %v",
			c.OutPoint, c.Spenders), nil)
		return false
	}

	r.advance(StateConflictChecked)
	return true
}

// checkSubmission enforces the child with parents topology of a submitted
// package.
func (val *validation) checkSubmission() bool {
	n := len(val.txs)
	if n == 1 {
		return true
	}

	r := val.result
	if !val.graph.IsChildWithParents() {
		r.rejectPackage(RejectNotChildWithParents, "package must be "+
			"a child transaction preceded by its parents", nil)
		return false
	}

	child := val.txs[n-1]
	for _, txIn := range child.MsgTx().TxIn {
		op := txIn.PreviousOutPoint
		if _, ok := val.graph.IndexOf(op.Hash); ok {
			continue
		}
		if val.idx.HasTransaction(op.Hash) {
			continue
		}
		if _, ok := val.cfg.UtxoSource.FetchOutput(op); ok {
			continue
		}
		r.rejectPackage(RejectNotChildWithUnconfirmedParents,
			fmt.Sprintf("child %v spends %v which is neither in the "+
				"package, the mempool nor confirmed", child.Hash(),
				op), nil)
		return false
	}
	return true
}

// checkTransactions classifies every member in package order. A member
// spending an output of a rejected member is itself rejected with
// missing-inputs.
func (val *validation) checkTransactions() error {
	for i, tx := range val.txs {
		res := val.result.TxResults[i]
		hash := *tx.Hash()

		if entry, ok := val.idx.Lookup(hash); ok {
			res.Status = TxStatusMempoolEntry
			res.Kind = RejectAlreadyInMempool
			res.Fee = entry.Fee
			res.Size = entry.Size
			res.FeeRate = entry.FeePerKB()
			res.EffectiveFeeRate = res.FeeRate
			continue
		}
		if val.cfg.IsKnown != nil && val.cfg.IsKnown(hash) {
			res.Status = TxStatusKnown
			res.Kind = RejectAlreadyKnown
			continue
		}

		fee, err := val.checkTransaction(tx)
		if err != nil {
			kind, detail, ok := extractRejectKind(err)
			if !ok {
				return fmt.Errorf("unable to check transaction "+
					"%v: %w", hash, err)
			}
			log.Debugf("Rejected package member %v: %v", hash, err)
			res.reject(kind, detail)
			continue
		}

		res.Status = TxStatusValid
		res.Fee = fee
		res.FeeRate = calcFeePerKB(fee, res.Size)
		res.EffectiveFeeRate = res.FeeRate
	}
	return nil
}

// checkTransaction runs the context-free and input checks on tx and returns
// its fee.
func (val *validation) checkTransaction(tx *btcutil.Tx) (btcutil.Amount, error) {
	if err := val.cfg.Checker.CheckTransaction(tx); err != nil {
		return 0, err
	}

	var totalIn int64
	for _, txIn := range tx.MsgTx().TxIn {
		op := txIn.PreviousOutPoint
		if spender, ok := val.idx.SpenderOf(op); ok {
			return 0, txRuleError(RejectMempoolConflict, "output %v "+
				"already spent by transaction %v in the memory pool",
				op, spender)
		}

		txOut, err := val.resolve(op)
		if err != nil {
			return 0, err
		}
		totalIn += txOut.Value
	}

	var totalOut int64
	for _, txOut := range tx.MsgTx().TxOut {
		totalOut += txOut.Value
	}
	if totalIn < totalOut {
		return 0, txRuleError(RejectInBelowOut, "total value of all "+
			"transaction inputs for transaction %v is %v which is "+
			"less than the amount spent of %v", tx.Hash(),
			btcutil.Amount(totalIn), btcutil.Amount(totalOut))
	}

	fee := btcutil.Amount(totalIn - totalOut)
	if maxRate := val.opts.MaxFeeRate; maxRate > 0 {
		size := int64(tx.MsgTx().SerializeSize())
		if rate := calcFeePerKB(fee, size); rate > maxRate {
			return 0, txRuleError(RejectMaxFeeExceeded, "fee rate "+
				"%v/kB of transaction %v exceeds maximum %v/kB",
				rate, tx.Hash(), maxRate)
		}
	}

	return fee, nil
}

// resolve finds the output op refers to in an earlier package member, the
// mempool or the confirmed UTXO set, in that order.
func (val *validation) resolve(op wire.OutPoint) (*wire.TxOut, error) {
	if k, ok := val.graph.IndexOf(op.Hash); ok {
		switch val.result.TxResults[k].Status {
		case TxStatusValid, TxStatusMempoolEntry:
			return outputOf(val.txs[k], op)

		case TxStatusInvalid, TxStatusPending:
			return nil, txRuleError(RejectMissingInputs, "output %v "+
				"belongs to rejected package transaction", op)
		}

		// Recently confirmed parents resolve through the UTXO set.
	} else if entry, ok := val.idx.Lookup(op.Hash); ok {
		return outputOf(entry.Tx, op)
	}

	if txOut, ok := val.cfg.UtxoSource.FetchOutput(op); ok {
		return txOut, nil
	}
	return nil, txRuleError(RejectMissingInputs, "output %v does not "+
		"exist or is already spent", op)
}

// outputOf returns the output of tx at op.Index.
func outputOf(tx *btcutil.Tx, op wire.OutPoint) (*wire.TxOut, error) {
	outs := tx.MsgTx().TxOut
	if int(op.Index) >= len(outs) {
		return nil, txRuleError(RejectMissingInputs, "output %v "+
			"does not exist", op)
	}
	return outs[op.Index], nil
}

// checkLimits enforces the combined ancestor and descendant limits on the
// valid members.
func (val *validation) checkLimits(members []int) bool {
	if len(members) > 0 {
		report := val.limits.Calculate(val.graph, val.idx, members)
		if report.Violation != nil {
			_, detail, _ := extractRejectKind(report.Violation)
			log.Debugf("Package exceeds mempool limits: %v", detail)
			val.result.rejectPackage(RejectPackageLimits, detail, nil)
			return false
		}
	}

	val.result.advance(StateLimitsChecked)
	return true
}

// checkFeeRates applies the minimum relay fee. A member that pays for itself
// and whose package parents also do keeps its own rate. Every other member
// forms a cluster with those of its package ancestors that do not pay for
// themselves either, and is accepted when a cluster it belongs to meets the
// minimum at its combined rate. Unrelated members never share a cluster.
func (val *validation) checkFeeRates(members []int) {
	minFee := val.cfg.Policy.MinRelayTxFee
	results := val.result.TxResults

	alone := make(map[int]struct{}, len(members))
	inRest := make(map[int]struct{})
	var rest []int
	for _, i := range members {
		ok := results[i].FeeRate >= minFee
		for _, p := range val.graph.ParentsOf(i, txgraph.ScopePackage).Package {
			if !ok {
				break
			}
			if results[p].Status != TxStatusValid {
				continue
			}
			_, ok = alone[p]
		}
		if ok {
			alone[i] = struct{}{}
			continue
		}
		rest = append(rest, i)
		inRest[i] = struct{}{}
	}
	if len(rest) == 0 {
		return
	}

	// best holds the highest qualifying cluster rate of each member and
	// own the rate of the cluster rooted at it.
	best := make(map[int]btcutil.Amount, len(rest))
	own := make(map[int]btcutil.Amount, len(rest))
	var pkgRate btcutil.Amount
	var pkgSize int
	for _, i := range rest {
		cluster := []int{i}
		for _, a := range val.graph.PackageAncestors(i) {
			if _, ok := inRest[a]; ok {
				cluster = append(cluster, a)
			}
		}

		var fees btcutil.Amount
		var size int64
		for _, k := range cluster {
			fees += results[k].Fee
			size += results[k].Size
		}
		rate := calcFeePerKB(fees, size)
		own[i] = rate
		if rate < minFee {
			continue
		}

		for _, k := range cluster {
			if r, ok := best[k]; !ok || rate > r {
				best[k] = rate
			}
		}
		if len(cluster) > 1 && len(cluster) >= pkgSize {
			pkgRate, pkgSize = rate, len(cluster)
		}
	}

	for _, i := range rest {
		rate, ok := best[i]
		if !ok {
			results[i].reject(RejectMinRelayFee, fmt.Sprintf("fee "+
				"rate %v/kB is below minimum relay fee %v/kB",
				own[i], minFee))
			continue
		}
		results[i].EffectiveFeeRate = rate
	}
	val.result.PackageFeeRate = pkgRate
}

// finish computes totals and the final state.
func (val *validation) finish() {
	r := val.result
	minFee := val.cfg.Policy.MinRelayTxFee

	next := StateAccepted
	for _, res := range r.TxResults {
		switch res.Status {
		case TxStatusValid:
			res.RelayEligible = res.EffectiveFeeRate >= minFee
			fallthrough
		case TxStatusMempoolEntry:
			r.TotalFees += res.Fee
			r.TotalSize += res.Size
		case TxStatusInvalid:
			next = StateRejected
		}
	}
	r.advance(next)
}
