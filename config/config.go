// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads the collector's environment configuration
// once at startup.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Binaries names the external profilers. Each may be overridden to
// point at a platform-specific build.
type Binaries struct {
	Perf     string `mapstructure:"perf"`
	Valgrind string `mapstructure:"valgrind"`
	Operf    string `mapstructure:"operf"`
}

// Config is the collector's configuration.
type Config struct {
	// RustcThreadCount and CargoThreadCount override the thread
	// counts of the compiler and of cargo. Zero means unset.
	RustcThreadCount int `mapstructure:"rustc_thread_count"`
	CargoThreadCount int `mapstructure:"cargo_thread_count"`

	// Shell, Path and Home are passed through to child processes.
	// No other inherited variable is.
	Shell string `mapstructure:"shell"`
	Path  string `mapstructure:"path"`
	Home  string `mapstructure:"home"`

	// UploadSelfProfile enables uploading raw self-profile data to
	// UploadBucket.
	UploadSelfProfile bool   `mapstructure:"-"`
	UploadBucket      string `mapstructure:"upload_bucket"`

	Binaries `mapstructure:",squash"`

	// MaxStatTries bounds the attempts at getting perf output from
	// one build.
	MaxStatTries int `mapstructure:"max_stat_tries"`
	// MinCounterActive is the percentage of the process lifetime a
	// hardware counter must have been active for its value to be
	// accepted.
	MinCounterActive float64 `mapstructure:"min_counter_active"`
	// InterpolationWindow is the number of most recent commits
	// whose runs are expected to exist at every commit.
	InterpolationWindow int `mapstructure:"interpolation_window"`

	InfluxURL    string `mapstructure:"influx_url"`
	InfluxToken  string `mapstructure:"influx_token"`
	InfluxOrg    string `mapstructure:"influx_org"`
	InfluxBucket string `mapstructure:"influx_bucket"`
}

var env = map[string]string{
	"rustc_thread_count":   "RUSTC_THREAD_COUNT",
	"cargo_thread_count":   "CARGO_THREAD_COUNT",
	"shell":                "SHELL",
	"path":                 "PATH",
	"home":                 "HOME",
	"upload_to_s3":         "RUSTC_PERF_UPLOAD_TO_S3",
	"upload_bucket":        "PERF_UPLOAD_BUCKET",
	"perf":                 "PERF",
	"valgrind":             "VALGRIND",
	"operf":                "OPERF",
	"max_stat_tries":       "PERF_STAT_MAX_TRIES",
	"min_counter_active":   "PERF_COUNTER_MIN_ACTIVE",
	"interpolation_window": "PERF_INTERPOLATION_WINDOW",
	"influx_url":           "INFLUX_URL",
	"influx_token":         "INFLUX_TOKEN",
	"influx_org":           "INFLUX_ORG",
	"influx_bucket":        "INFLUX_BUCKET",
	"rustc_real":           "RUSTC_REAL",
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, name := range env {
		// BindEnv only fails when given no key.
		_ = v.BindEnv(key, name)
	}
	v.SetDefault("perf", "perf")
	v.SetDefault("valgrind", "valgrind")
	v.SetDefault("operf", "operf")
	v.SetDefault("max_stat_tries", 5)
	v.SetDefault("min_counter_active", 100.0)
	v.SetDefault("interpolation_window", 20)
	return v
}

// FromEnv reads the collector configuration from the environment.
func FromEnv() (*Config, error) {
	v := newViper()
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.UploadSelfProfile = v.GetString("upload_to_s3") != ""
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set in the
// environment.
func Default() *Config {
	return &Config{
		Binaries:            Binaries{Perf: "perf", Valgrind: "valgrind", Operf: "operf"},
		MaxStatTries:        5,
		MinCounterActive:    100,
		InterpolationWindow: 20,
	}
}

func (c *Config) validate() error {
	switch {
	case c.RustcThreadCount < 0:
		return fmt.Errorf("RUSTC_THREAD_COUNT must not be negative, got %d", c.RustcThreadCount)
	case c.CargoThreadCount < 0:
		return fmt.Errorf("CARGO_THREAD_COUNT must not be negative, got %d", c.CargoThreadCount)
	case c.MaxStatTries < 1:
		return fmt.Errorf("PERF_STAT_MAX_TRIES must be positive, got %d", c.MaxStatTries)
	case c.MinCounterActive <= 0 || c.MinCounterActive > 100:
		return fmt.Errorf("PERF_COUNTER_MIN_ACTIVE must be in (0, 100], got %v", c.MinCounterActive)
	case c.InterpolationWindow < 1:
		return fmt.Errorf("PERF_INTERPOLATION_WINDOW must be positive, got %d", c.InterpolationWindow)
	case c.UploadSelfProfile && c.UploadBucket == "":
		return fmt.Errorf("RUSTC_PERF_UPLOAD_TO_S3 is set but PERF_UPLOAD_BUCKET is not")
	}
	return nil
}

// Shim is the configuration of the compiler shim.
type Shim struct {
	// Real is the path of the real compiler.
	Real        string `mapstructure:"rustc_real"`
	ThreadCount int    `mapstructure:"rustc_thread_count"`
	Binaries    `mapstructure:",squash"`
}

// ShimFromEnv reads the shim configuration from the environment.
func ShimFromEnv() (*Shim, error) {
	v := newViper()
	s := new(Shim)
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if s.Real == "" {
		return nil, fmt.Errorf("RUSTC_REAL is not set")
	}
	return s, nil
}
