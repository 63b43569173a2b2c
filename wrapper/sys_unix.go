// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package wrapper

import "golang.org/x/sys/unix"

// raisePriority raises the scheduling priority of the shim, and so of
// the compiler it starts, as far as permitted.
func raisePriority() {
	for i := 20; i >= 1; i-- {
		if unix.Setpriority(unix.PRIO_PROCESS, 0, -i) == nil {
			return
		}
	}
}

// maxRSS returns the peak resident set size of the waited-for
// children of the shim, in kilobytes.
func maxRSS() (int64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &ru); err != nil {
		return 0, err
	}
	return int64(ru.Maxrss), nil
}
