// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// pkgrelay is an offline operator tool that validates and admits packages of
// unconfirmed transactions into a persisted mempool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/pkgrelay/database/engine/pebbledb"
	"github.com/btcsuite/pkgrelay/internal/limits"
	pkglog "github.com/btcsuite/pkgrelay/internal/log"
	"github.com/btcsuite/pkgrelay/internal/version"
	"github.com/btcsuite/pkgrelay/store"
)

// storeNamePrefix is the prefix for the mempool database directory.
const storeNamePrefix = "mempool"

var log = pkglog.PkgrLog

// realMain is the real main function for the utility. It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func realMain() error {
	cfg, args, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems",
			pkglog.SupportedSubsystems())
		return nil
	}

	err = pkglog.InitLogRotator(filepath.Join(cfg.LogDir,
		defaultLogFilename))
	if err != nil {
		return err
	}
	defer pkglog.LogRotator.Close()

	if err := pkglog.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	log.Infof("Version %s", version.String())

	policy, err := cfg.policy()
	if err != nil {
		return err
	}
	opts, err := cfg.packageOptions()
	if err != nil {
		return err
	}

	// Up some limits.
	if err := limits.SetLimits(pebbledb.DefaultHandles); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return err
	}
	dbPath := filepath.Join(cfg.DataDir, storeNamePrefix+"_"+cfg.DbType)
	st, err := store.Open(cfg.DbType, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	r, err := newRelay(st, policy, opts, os.Stdout)
	if err != nil {
		return err
	}
	return r.run(args)
}

func main() {
	if err := realMain(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\nCommands: %s\n", err,
				strings.Join([]string{"testaccept", "submit",
					"addutxo", "connectblock", "info"}, ", "))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
