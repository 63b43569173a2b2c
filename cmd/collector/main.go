// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Collector measures compiler performance on a suite of benchmark
// crates and records the results.
//
// Usage:
//
//	collector [flags] bench_local [flags] <rustc> <cargo> <id>
//	collector [flags] bench_commit [flags] <sha> <date> <rustc> <cargo>
//	collector [flags] bench_published [flags] <version> <rustc> <cargo>
//	collector [flags] profile [flags] <tool> <rustc> <cargo> <id>
//	collector [flags] remove_benchmark <name>
//	collector [flags] remove_errs <sha>
//
// Results are stored in the database named by -db, in the form
// driver:dsn. The sqlite3 and mysql drivers are available; a mysql
// dsn may name a Cloud SQL instance with the cloudsql(...) protocol.
//
// bench_local records results for a local toolchain under the
// name id. bench_commit records results for a compiler commit; its
// date must be in RFC 3339 format. bench_published records results
// for a published release with the benchmarks and scenarios that
// release supports. Each of them skips benchmarks already recorded
// for the artifact, so an interrupted run can be restarted.
//
// profile runs every benchmark once under a profiling tool and
// writes the tool's output files to -out-dir.
//
// remove_benchmark deletes every result of a benchmark.
// remove_errs deletes the errors recorded for a commit so that the
// failed benchmarks are run again.
//
// If INFLUX_URL is set, results are also written to InfluxDB. If
// RUSTC_PERF_UPLOAD_TO_S3 is set, raw self-profile data is uploaded to
// PERF_UPLOAD_BUCKET, a Cloud Storage bucket or a file:// directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/collector"
	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/execute"
	"github.com/compilerperf/perf/influx"
	"github.com/compilerperf/perf/profiler"
	"github.com/compilerperf/perf/storage"
	"github.com/compilerperf/perf/storage/db"
	_ "github.com/compilerperf/perf/storage/db/sqlite3"
	"github.com/compilerperf/perf/storage/fs"
	"github.com/compilerperf/perf/storage/fs/gcs"
	"github.com/compilerperf/perf/storage/fs/local"
	_ "github.com/go-sql-driver/mysql"
)

var (
	flagDB      = flag.String("db", "sqlite3:results.db", "results `database` as driver:dsn")
	flagMetrics = flag.String("metrics", "", "write Prometheus metrics to `file` when done")
	flagVerbose = flag.Bool("v", false, "log every command run")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of collector:
	collector [flags] bench_local [flags] <rustc> <cargo> <id>
	collector [flags] bench_commit [flags] <sha> <date> <rustc> <cargo>
	collector [flags] bench_published [flags] <version> <rustc> <cargo>
	collector [flags] profile [flags] <tool> <rustc> <cargo> <id>
	collector [flags] remove_benchmark <name>
	collector [flags] remove_errs <sha>
`)
	flag.PrintDefaults()
}

func main() {
	log.SetPrefix("collector: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	execute.Verbose = *flagVerbose

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	cmds := map[string]func(ctx context.Context, cfg *config.Config, args []string) error{
		"bench_local":      benchLocal,
		"bench_commit":     benchCommit,
		"bench_published":  benchPublished,
		"profile":          profile,
		"remove_benchmark": removeBenchmark,
		"remove_errs":      removeErrs,
	}
	cmd, ok := cmds[flag.Arg(0)]
	if !ok {
		log.Printf("unknown command %q", flag.Arg(0))
		usage()
		os.Exit(2)
	}
	start := time.Now()
	if err := cmd(context.Background(), cfg, flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
	log.Printf("%s finished in %v", flag.Arg(0), time.Since(start).Round(time.Second))
}

// benchFlags are the flags shared by the commands that build
// benchmarks.
type benchFlags struct {
	fs       *flag.FlagSet
	benchDir string
	include  string
	exclude  string
	builds   string
	runs     string
	shim     string
	triple   string
	nightly  bool
	iters    int
	selfProf bool
}

func newBenchFlags(name string) *benchFlags {
	f := &benchFlags{fs: flag.NewFlagSet(name, flag.ExitOnError)}
	f.fs.StringVar(&f.benchDir, "bench-dir", "collector/benchmarks", "`directory` containing the benchmark crates")
	f.fs.StringVar(&f.include, "include", "", "run only benchmarks whose name contains one of the comma-separated `names`")
	f.fs.StringVar(&f.exclude, "exclude", "", "skip benchmarks whose name contains one of the comma-separated `names`")
	f.fs.StringVar(&f.builds, "builds", "Check,Debug,Opt", "comma-separated build `kinds`, or All")
	f.fs.StringVar(&f.runs, "runs", "All", "comma-separated `scenarios`, or All")
	f.fs.StringVar(&f.shim, "shim", defaultShim(), "`path` of the rustc-shim binary")
	f.fs.StringVar(&f.triple, "target", "x86_64-unknown-linux-gnu", "target `triple` of the compiler")
	f.fs.BoolVar(&f.nightly, "nightly", true, "the compiler accepts nightly-only flags")
	f.fs.IntVar(&f.iters, "iterations", 3, "number of `iterations` of every build")
	f.fs.BoolVar(&f.selfProf, "self-profile", false, "collect self-profile data")
	return f
}

// defaultShim returns the rustc-shim next to this executable.
func defaultShim() string {
	exe, err := os.Executable()
	if err != nil {
		return "rustc-shim"
	}
	return filepath.Join(filepath.Dir(exe), "rustc-shim")
}

// parse parses args and returns the positional arguments, which
// must number n.
func (f *benchFlags) parse(args []string, n int, usage string) []string {
	f.fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: collector %s [flags] %s\n", f.fs.Name(), usage)
		f.fs.PrintDefaults()
	}
	f.fs.Parse(args)
	if f.fs.NArg() != n {
		f.fs.Usage()
		os.Exit(2)
	}
	return f.fs.Args()
}

func (f *benchFlags) benchmarks() ([]*execute.Benchmark, error) {
	bs, err := execute.Discover(f.benchDir, f.include, f.exclude)
	if err != nil {
		return nil, err
	}
	if len(bs) == 0 {
		return nil, fmt.Errorf("no benchmarks in %s match -include=%q -exclude=%q", f.benchDir, f.include, f.exclude)
	}
	return bs, nil
}

func (f *benchFlags) compiler(rustc, cargo string) (execute.Compiler, error) {
	var err error
	if rustc, err = filepath.Abs(rustc); err != nil {
		return execute.Compiler{}, err
	}
	if cargo, err = filepath.Abs(cargo); err != nil {
		return execute.Compiler{}, err
	}
	return execute.Compiler{Rustc: rustc, Cargo: cargo, Triple: f.triple, IsNightly: f.nightly}, nil
}

func (f *benchFlags) request(a storage.Artifact, rustc, cargo string) (*collector.Request, error) {
	kinds, err := benchdata.ParseBuildKinds(f.builds)
	if err != nil {
		return nil, err
	}
	scenarios, err := benchdata.ParseScenarios(f.runs)
	if err != nil {
		return nil, err
	}
	c, err := f.compiler(rustc, cargo)
	if err != nil {
		return nil, err
	}
	bs, err := f.benchmarks()
	if err != nil {
		return nil, err
	}
	return &collector.Request{
		Artifact:    a,
		Compiler:    c,
		Benchmarks:  bs,
		Kinds:       kinds,
		Scenarios:   scenarios,
		Iterations:  f.iters,
		SelfProfile: f.selfProf,
	}, nil
}

func benchLocal(ctx context.Context, cfg *config.Config, args []string) error {
	f := newBenchFlags("bench_local")
	args = f.parse(args, 3, "<rustc> <cargo> <id>")
	req, err := f.request(storage.Release(args[2]), args[0], args[1])
	if err != nil {
		return err
	}
	return bench(ctx, cfg, f.shim, req)
}

func benchCommit(ctx context.Context, cfg *config.Config, args []string) error {
	f := newBenchFlags("bench_commit")
	f.selfProf = true
	args = f.parse(args, 4, "<sha> <date> <rustc> <cargo>")
	date, err := time.Parse(time.RFC3339, args[1])
	if err != nil {
		return fmt.Errorf("commit date: %w", err)
	}
	req, err := f.request(storage.Commit(benchdata.Commit{Sha: args[0], Date: date}), args[2], args[3])
	if err != nil {
		return err
	}
	return bench(ctx, cfg, f.shim, req)
}

func benchPublished(ctx context.Context, cfg *config.Config, args []string) error {
	f := newBenchFlags("bench_published")
	f.nightly = false
	args = f.parse(args, 3, "<version> <rustc> <cargo>")
	c, err := f.compiler(args[1], args[2])
	if err != nil {
		return err
	}
	bs, err := f.benchmarks()
	if err != nil {
		return err
	}
	return bench(ctx, cfg, f.shim, collector.PublishedRequest(args[0], c, bs))
}

func profile(ctx context.Context, cfg *config.Config, args []string) error {
	f := newBenchFlags("profile")
	var outDir string
	f.fs.StringVar(&outDir, "out-dir", "results", "`directory` for the profiler output")
	args = f.parse(args, 4, "<tool> <rustc> <cargo> <id>")
	tool, err := profiler.FromName(args[0])
	if err != nil {
		return err
	}
	kinds, err := benchdata.ParseBuildKinds(f.builds)
	if err != nil {
		return err
	}
	scenarios, err := benchdata.ParseScenarios(f.runs)
	if err != nil {
		return err
	}
	comp, err := f.compiler(args[1], args[2])
	if err != nil {
		return err
	}
	bs, err := f.benchmarks()
	if err != nil {
		return err
	}
	c := collector.New(&execute.Env{Config: cfg, Shim: f.shim}, nil)
	failed, err := c.Profile(&collector.ProfileRequest{
		Tool:       tool,
		OutDir:     outDir,
		ID:         args[3],
		Compiler:   comp,
		Benchmarks: bs,
		Kinds:      kinds,
		Scenarios:  scenarios,
	})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d benchmarks failed", len(failed), len(bs))
	}
	return nil
}

func bench(ctx context.Context, cfg *config.Config, shim string, req *collector.Request) error {
	conn, err := db.Open(*flagDB)
	if err != nil {
		return err
	}
	defer conn.Close()

	c := collector.New(&execute.Env{Config: cfg, Shim: shim}, conn)
	c.Version = collectorVersion()

	ir, err := influx.New(cfg)
	switch {
	case err == nil:
		defer ir.Close()
		c.Mirrors = append(c.Mirrors, ir)
	case !errors.Is(err, influx.ErrNotConfigured):
		return err
	}

	if cfg.UploadSelfProfile {
		up, err := uploadFS(ctx, cfg.UploadBucket)
		if err != nil {
			return err
		}
		c.Uploads = up
	}

	r, err := c.Bench(ctx, req)
	if *flagMetrics != "" {
		if err := c.Metrics.WriteTextfile(*flagMetrics); err != nil {
			log.Printf("warning: writing metrics: %v", err)
		}
	}
	if err != nil {
		return err
	}
	log.Printf("collection %s: %d measured, %d skipped, %d failed", r.Collection, len(r.Measured), len(r.Skipped), len(r.Failed))
	return nil
}

// uploadFS returns the destination for raw self-profile data.
func uploadFS(ctx context.Context, bucket string) (fs.FS, error) {
	if dir, ok := strings.CutPrefix(bucket, "file://"); ok {
		return local.NewFS(dir), nil
	}
	return gcs.NewFS(ctx, strings.TrimPrefix(bucket, "gs://"))
}

// collectorVersion returns the git commit the collector is run from.
func collectorVersion() string {
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func openDB(args []string, n int, usage string) (*db.DB, []string) {
	if len(args) != n {
		log.Fatalf("usage: collector %s", usage)
	}
	conn, err := db.Open(*flagDB)
	if err != nil {
		log.Fatal(err)
	}
	return conn, args
}

func removeBenchmark(ctx context.Context, cfg *config.Config, args []string) error {
	conn, args := openDB(args, 1, "remove_benchmark <name>")
	defer conn.Close()
	return conn.DeleteBenchmark(ctx, benchdata.BenchmarkName(args[0]))
}

func removeErrs(ctx context.Context, cfg *config.Config, args []string) error {
	conn, args := openDB(args, 1, "remove_errs <sha>")
	defer conn.Close()
	return conn.DeleteErrors(ctx, storage.Artifact{Kind: storage.CommitArtifact, Name: args[0]})
}
