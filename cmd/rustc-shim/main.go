// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rustc-shim stands in for rustc during benchmark builds.
//
// The collector sets RUSTC to this binary and RUSTC_REAL to the
// compiler under test. Arguments are forwarded to the real compiler,
// which is run under the instrumentation tool named by a
// "--wrap-rustc-with <tool>" argument pair if one is present.
package main

import (
	"errors"
	"log"
	"os"
	"os/exec"

	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/wrapper"
)

func main() {
	log.SetPrefix("rustc-shim: ")
	log.SetFlags(0)

	cfg, err := config.ShimFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	s := &wrapper.Shim{
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := s.Run(os.Args[1:]); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		log.Fatal(err)
	}
}
