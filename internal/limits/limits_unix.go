// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build unix

package limits

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// fileLimitSlack is the number of descriptors kept free beyond the database
// handles for log files, standard streams and the database lock.
const fileLimitSlack = 64

// SetLimits raises the soft open file limit to make room for handles
// database files.
func SetLimits(handles int) error {
	want := uint64(handles + fileLimitSlack)
	minLimit := uint64(fileLimitSlack)

	var rLimit unix.Rlimit
	err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return err
	}
	if rLimit.Cur >= want {
		return nil
	}
	if rLimit.Max < minLimit {
		return fmt.Errorf("need at least %v file descriptors", minLimit)
	}
	if rLimit.Max < want {
		rLimit.Cur = rLimit.Max
	} else {
		rLimit.Cur = want
	}
	err = unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		// try min value
		rLimit.Cur = minLimit
		err = unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
		if err != nil {
			return err
		}
	}

	return nil
}
