// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/pkgrelay/mempool"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "missing.conf")
	cfg, args, err := loadConfig([]string{"-C", confFile, "info"})
	require.NoError(t, err)
	require.Equal(t, []string{"info"}, args)
	require.Equal(t, defaultDbType, cfg.DbType)

	policy, err := cfg.policy()
	require.NoError(t, err)
	require.Equal(t, mempool.DefaultPolicy(), policy)

	opts, err := cfg.packageOptions()
	require.NoError(t, err)
	require.Zero(t, opts.MaxFeeRate)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	confFile := filepath.Join(dir, "pkgrelay.conf")
	contents := "[Application Options]\ndbtype=pebble\n" +
		"limitancestorcount=25\n" +
		"limitdescendantcount=25\nminrelaytxfee=0.00002\n"
	require.NoError(t, os.WriteFile(confFile, []byte(contents), 0600))

	// Command line options take precedence over the file.
	cfg, _, err := loadConfig([]string{"-C", confFile,
		"--limitdescendantcount=30", "--maxfeerate=0.1",
		"--datadir=" + filepath.Join(dir, "data")})
	require.NoError(t, err)
	require.Equal(t, "pebble", cfg.DbType)
	require.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)

	policy, err := cfg.policy()
	require.NoError(t, err)
	require.Equal(t, 25, policy.MaxAncestorCount)
	require.Equal(t, 30, policy.MaxDescendantCount)
	require.Equal(t, btcutil.Amount(2000), policy.MinRelayTxFee)

	opts, err := cfg.packageOptions()
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(10000000), opts.MaxFeeRate)
}

func TestLoadConfigInvalid(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "missing.conf")

	tests := []struct {
		name string
		args []string
	}{
		{name: "db type", args: []string{"--dbtype=bolt"}},
		{name: "ancestor count", args: []string{"--limitancestorcount=0"}},
		{name: "package size", args: []string{"--maxpackagesize=-1"}},
		{name: "max fee rate", args: []string{"--maxfeerate=-1"}},
		{name: "unknown flag", args: []string{"--nope"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			args := append([]string{"-C", confFile}, test.args...)
			_, _, err := loadConfig(args)
			require.Error(t, err)
		})
	}
}
