// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import "log"

// Logf is called for progress messages. It defaults to log.Printf.
var Logf = log.Printf

func logf(format string, args ...interface{}) {
	Logf(format, args...)
}

func warnf(format string, args ...interface{}) {
	Logf("warning: "+format, args...)
}
