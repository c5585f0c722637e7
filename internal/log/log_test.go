// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "all subsystems", level: "debug"},
		{name: "pairs", level: "TXMP=trace,STOR=warn"},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad subsystem", level: "NOPE=info", wantErr: true},
		{name: "bad pair", level: "TXMP=info=debug", wantErr: true},
		{name: "bad pair level", level: "TXMP=loud", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ParseAndSetDebugLevels(test.level)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	require.NoError(t, ParseAndSetDebugLevels("TXMP=trace,STOR=warn"))
	require.Equal(t, btclog.LevelTrace, txmpLog.Level())
	require.Equal(t, btclog.LevelWarn, storLog.Level())
	SetLogLevels("info")
}

func TestSupportedSubsystems(t *testing.T) {
	require.Equal(t, []string{"PKGR", "STOR", "TXGR", "TXMP"},
		SupportedSubsystems())
}

func TestInitLogRotator(t *testing.T) {
	require.NoError(t, InitLogRotator(filepath.Join(t.TempDir(), "logs",
		"pkgrelay.log")))
	PkgrLog.Info("rotator ready")
	require.NoError(t, LogRotator.Close())
	LogRotator = nil
}
