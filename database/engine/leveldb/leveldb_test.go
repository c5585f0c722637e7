// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/pkgrelay/database/engine"
	"github.com/stretchr/testify/require"
)

func TestSuiteLevelDB(t *testing.T) {
	engine.TestSuiteEngine(t, func() engine.Engine {
		db, err := NewDB(filepath.Join(t.TempDir(), "ldb"), true)
		require.NoError(t, err, "failed to create leveldb")
		return db
	})
}
