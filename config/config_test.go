// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	for _, name := range env {
		t.Setenv(name, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	have, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(Default(), have); d != "" {
		t.Errorf("FromEnv mismatch (-want +have):\n%s", d)
	}
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUSTC_THREAD_COUNT", "4")
	t.Setenv("CARGO_THREAD_COUNT", "2")
	t.Setenv("PATH", "/usr/bin:/bin")
	t.Setenv("RUSTC_PERF_UPLOAD_TO_S3", "1")
	t.Setenv("PERF_UPLOAD_BUCKET", "self-profiles")
	t.Setenv("PERF", "perf-6.1")
	t.Setenv("PERF_COUNTER_MIN_ACTIVE", "95.5")

	have, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.RustcThreadCount = 4
	want.CargoThreadCount = 2
	want.Path = "/usr/bin:/bin"
	want.UploadSelfProfile = true
	want.UploadBucket = "self-profiles"
	want.Perf = "perf-6.1"
	want.MinCounterActive = 95.5
	if d := cmp.Diff(want, have); d != "" {
		t.Errorf("FromEnv mismatch (-want +have):\n%s", d)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	for _, test := range []struct {
		name, value string
	}{
		{"RUSTC_THREAD_COUNT", "-1"},
		{"RUSTC_THREAD_COUNT", "many"},
		{"PERF_STAT_MAX_TRIES", "0"},
		{"PERF_COUNTER_MIN_ACTIVE", "150"},
		{"RUSTC_PERF_UPLOAD_TO_S3", "1"},
	} {
		t.Run(test.name+"="+test.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(test.name, test.value)
			if cfg, err := FromEnv(); err == nil {
				t.Errorf("FromEnv succeeded: %+v", cfg)
			}
		})
	}
}

func TestShimFromEnv(t *testing.T) {
	clearEnv(t)
	if _, err := ShimFromEnv(); err == nil {
		t.Errorf("ShimFromEnv succeeded without RUSTC_REAL")
	}
	t.Setenv("RUSTC_REAL", "/opt/rust/bin/rustc")
	t.Setenv("RUSTC_THREAD_COUNT", "8")
	have, err := ShimFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	want := &Shim{Real: "/opt/rust/bin/rustc", ThreadCount: 8, Binaries: Default().Binaries}
	if d := cmp.Diff(want, have); d != "" {
		t.Errorf("ShimFromEnv mismatch (-want +have):\n%s", d)
	}
}
