// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/pkgrelay/mempool"
	"github.com/btcsuite/pkgrelay/store"
)

// errUsage is returned for a malformed command line.
var errUsage = errors.New("usage")

// relay ties a mempool to the store it is persisted in.
type relay struct {
	store *store.Store
	mp    *mempool.Mempool
	opts  *mempool.PackageOptions
	out   io.Writer
}

// newRelay loads the persisted mempool from st. Saved entries are
// revalidated one at a time in saved order and entries that no longer
// validate are dropped.
func newRelay(st *store.Store, policy mempool.Policy,
	opts *mempool.PackageOptions, out io.Writer) (*relay, error) {

	mp, err := mempool.New(&mempool.Config{
		Policy:     policy,
		UtxoSource: st,
		Index:      mempool.NewTxPool(),
	})
	if err != nil {
		return nil, err
	}

	known, err := st.Known()
	if err != nil {
		return nil, err
	}
	mp.MarkConfirmed(known...)

	saved, err := st.LoadMempool()
	if err != nil {
		return nil, err
	}
	var loaded int
	for _, entry := range saved {
		res, err := mp.RestoreTransaction(entry.Tx, entry.Added)
		if err != nil {
			return nil, err
		}
		txRes := res.TxResults[0]
		if txRes.Committed {
			loaded++
			continue
		}
		log.Warnf("Dropping saved transaction %v: %v (%s)",
			entry.Tx.Hash(), txRes.Kind, txRes.Detail)
	}
	log.Infof("Loaded %d of %d saved mempool transactions", loaded,
		len(saved))

	return &relay{store: st, mp: mp, opts: opts, out: out}, nil
}

// command runs a pkgrelay subcommand with its arguments.
type command func(r *relay, args []string) error

var commands = map[string]command{
	"testaccept":   (*relay).testAccept,
	"submit":       (*relay).submit,
	"addutxo":      (*relay).addUtxo,
	"connectblock": (*relay).connectBlock,
	"info":         (*relay).info,
}

// run dispatches args to the named command.
func (r *relay) run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", errUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd(r, args[1:])
}

// decodeTxs parses hex encoded transactions.
func decodeTxs(args []string) ([]*btcutil.Tx, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no transactions given", errUsage)
	}
	txs := make([]*btcutil.Tx, 0, len(args))
	for i, arg := range args {
		serialized, err := hex.DecodeString(arg)
		if err != nil {
			return nil, fmt.Errorf("transaction %d is not hex: %w",
				i, err)
		}
		tx, err := btcutil.NewTxFromBytes(serialized)
		if err != nil {
			return nil, fmt.Errorf("transaction %d does not "+
				"decode: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// txResultJSON is the printed form of a mempool.TxResult.
type txResultJSON struct {
	TxID             string  `json:"txid"`
	Status           string  `json:"status"`
	Error            string  `json:"error,omitempty"`
	Fee              float64 `json:"fee"`
	Size             int64   `json:"size"`
	FeeRate          float64 `json:"feerate"`
	EffectiveFeeRate float64 `json:"effectivefeerate"`
	RelayEligible    bool    `json:"relayeligible"`
	Committed        bool    `json:"committed,omitempty"`
}

// packageResultJSON is the printed form of a mempool.PackageResult.
type packageResultJSON struct {
	State          string         `json:"state"`
	PackageError   string         `json:"package-error,omitempty"`
	TotalFees      float64        `json:"totalfees"`
	TotalSize      int64          `json:"totalsize"`
	PackageFeeRate float64        `json:"packagefeerate,omitempty"`
	Transactions   []txResultJSON `json:"tx-results"`
}

// newPackageResultJSON converts res for printing. Amounts are in BTC and
// fee rates in BTC/kB.
func newPackageResultJSON(res *mempool.PackageResult) *packageResultJSON {
	out := &packageResultJSON{
		State:          res.State.String(),
		TotalFees:      res.TotalFees.ToBTC(),
		TotalSize:      res.TotalSize,
		PackageFeeRate: res.PackageFeeRate.ToBTC(),
		Transactions:   make([]txResultJSON, 0, len(res.TxResults)),
	}
	if err := res.Err(); err != nil {
		out.PackageError = err.Error()
	}
	for _, txRes := range res.TxResults {
		item := txResultJSON{
			TxID:             txRes.TxHash.String(),
			Status:           txRes.Status.String(),
			Fee:              txRes.Fee.ToBTC(),
			Size:             txRes.Size,
			FeeRate:          txRes.FeeRate.ToBTC(),
			EffectiveFeeRate: txRes.EffectiveFeeRate.ToBTC(),
			RelayEligible:    txRes.RelayEligible,
			Committed:        txRes.Committed,
		}
		if txRes.Kind != "" {
			item.Error = txRes.Kind.String()
			if txRes.Detail != "" {
				item.Error += ": " + txRes.Detail
			}
		}
		out.Transactions = append(out.Transactions, item)
	}
	return out
}

// print writes v as indented JSON.
func (r *relay) print(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// testAccept validates a package without changing the mempool.
func (r *relay) testAccept(args []string) error {
	txs, err := decodeTxs(args)
	if err != nil {
		return err
	}
	res, err := r.mp.TestAccept(txs, r.opts)
	if err != nil {
		return err
	}
	return r.print(newPackageResultJSON(res))
}

// submit validates a package, commits it when accepted and saves the
// mempool.
func (r *relay) submit(args []string) error {
	txs, err := decodeTxs(args)
	if err != nil {
		return err
	}
	res, err := r.mp.SubmitPackage(txs, r.opts)
	if err != nil {
		return err
	}
	if res.Accepted() {
		if err := r.store.SaveMempool(r.mp.Entries()); err != nil {
			return err
		}
	}
	return r.print(newPackageResultJSON(res))
}

// parseOutPoint parses an outpoint in txid:vout form.
func parseOutPoint(s string) (wire.OutPoint, error) {
	txid, vout, ok := strings.Cut(s, ":")
	if !ok {
		return wire.OutPoint{}, fmt.Errorf("%w: outpoint %q is not "+
			"txid:vout", errUsage, s)
	}
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return wire.OutPoint{}, err
	}
	index, err := strconv.ParseUint(vout, 10, 32)
	if err != nil {
		return wire.OutPoint{}, err
	}
	return wire.OutPoint{Hash: *hash, Index: uint32(index)}, nil
}

// addUtxo seeds the confirmed UTXO set with one output.
func (r *relay) addUtxo(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: addutxo <txid:vout> <amount> "+
			"<pkscript-hex>", errUsage)
	}
	op, err := parseOutPoint(args[0])
	if err != nil {
		return err
	}
	btc, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return err
	}
	amount, err := btcutil.NewAmount(btc)
	if err != nil {
		return err
	}
	pkScript, err := hex.DecodeString(args[2])
	if err != nil {
		return err
	}

	if err := r.store.PutUtxo(op, wire.NewTxOut(int64(amount),
		pkScript)); err != nil {
		return err
	}
	log.Infof("Added output %v worth %v", op, amount)
	return nil
}

// connectBlock applies confirmed transactions to the UTXO set and the
// mempool.
func (r *relay) connectBlock(args []string) error {
	txs, err := decodeTxs(args)
	if err != nil {
		return err
	}

	hashes := make([]chainhash.Hash, 0, len(txs))
	for _, tx := range txs {
		if err := r.store.ConnectTransaction(tx); err != nil {
			return err
		}
		hashes = append(hashes, *tx.Hash())
	}
	removed := r.mp.ConnectBlock(txs)
	if err := r.store.PutKnown(hashes...); err != nil {
		return err
	}
	if err := r.store.SaveMempool(r.mp.Entries()); err != nil {
		return err
	}
	return r.print(map[string]int{"removed": removed})
}

// entryJSON is the printed form of a mempool entry.
type entryJSON struct {
	TxID            string  `json:"txid"`
	Fee             float64 `json:"fee"`
	Size            int64   `json:"size"`
	Time            int64   `json:"time"`
	AncestorCount   int     `json:"ancestorcount"`
	AncestorSize    int64   `json:"ancestorsize"`
	DescendantCount int     `json:"descendantcount"`
	DescendantSize  int64   `json:"descendantsize"`
}

// info prints the mempool entries with their aggregates.
func (r *relay) info(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: info takes no arguments", errUsage)
	}
	entries := r.mp.Entries()
	out := struct {
		Size    int         `json:"size"`
		Entries []entryJSON `json:"entries"`
	}{Size: len(entries), Entries: make([]entryJSON, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, entryJSON{
			TxID:            e.Hash().String(),
			Fee:             e.Fee.ToBTC(),
			Size:            e.Size,
			Time:            e.Added.Unix(),
			AncestorCount:   e.AncestorCount,
			AncestorSize:    e.AncestorSize,
			DescendantCount: e.DescendantCount,
			DescendantSize:  e.DescendantSize,
		})
	}
	return r.print(out)
}
