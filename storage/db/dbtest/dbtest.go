// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest provides results databases for tests.
package dbtest

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"flag"
	"fmt"
	"testing"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	"github.com/compilerperf/perf/storage/db"
	_ "github.com/compilerperf/perf/storage/db/sqlite3"
)

var cloud = flag.Bool("cloud", false, "connect to Cloud SQL database instead of in-memory SQLite")
var cloudsql = flag.String("cloudsql", "compilerperf:us-central1:results", "name of Cloud SQL instance to run tests on")

// cloudDB creates a scratch database on the -cloudsql instance and
// returns its dsn. drop removes the database again.
func cloudDB(t *testing.T) (dsn string, drop func()) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		t.Fatal(err)
	}
	name := "results-test-" + base64.RawURLEncoding.EncodeToString(buf)
	server := fmt.Sprintf("root:@cloudsql(%s)/", *cloudsql)

	admin, err := sql.Open("mysql", server)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.Exec(fmt.Sprintf("CREATE DATABASE `%s`", name)); err != nil {
		admin.Close()
		t.Fatal(err)
	}
	t.Logf("Using database %q", name)

	return server + name, func() {
		defer admin.Close()
		if _, err := admin.Exec(fmt.Sprintf("DROP DATABASE `%s`", name)); err != nil {
			t.Error(err)
		}
	}
}

// NewDB returns a connection to an empty results database: in-memory
// sqlite3, or a scratch Cloud SQL database with -cloud. The caller
// must call cleanup instead of Close when done.
func NewDB(t *testing.T) (d *db.DB, cleanup func()) {
	driverName, dataSourceName := "sqlite3", ":memory:"
	drop := func() {}
	if *cloud {
		driverName = "mysql"
		dataSourceName, drop = cloudDB(t)
	}
	d, err := db.OpenSQL(driverName, dataSourceName)
	if err != nil {
		drop()
		t.Fatalf("open %s database: %v", driverName, err)
	}
	cleanup = func() {
		d.Close()
		drop()
	}

	// The schema is created fresh, so every table must start empty.
	for _, table := range db.Tables {
		n, err := d.CountRows(table)
		if err != nil {
			cleanup()
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != 0 {
			cleanup()
			t.Fatalf("found %d row(s) in %s, want 0", n, table)
		}
	}
	return d, cleanup
}
