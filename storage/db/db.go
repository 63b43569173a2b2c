// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores benchmark results in a SQL database.
package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"text/template"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/storage"
	"golang.org/x/net/context"
)

// DB is a high-level interface to a database of benchmark results.
// It's safe for concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertArtifact *sql.Stmt
	findArtifact   *sql.Stmt
	insertStat     *sql.Stmt
	insertQuery    *sql.Stmt
	insertRaw      *sql.Stmt
	insertError    *sql.Stmt
}

var _ storage.Connection = (*DB)(nil)

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(driverName); err != nil {
		return nil, err
	}
	return d, nil
}

// Open opens the database named by name, which has the form
// driver:dsn, for example "sqlite3:results.db" or
// "mysql:root:@cloudsql(project:region:instance)/perf".
func Open(name string) (*DB, error) {
	driverName, dataSourceName, ok := strings.Cut(name, ":")
	if !ok || driverName == "" {
		return nil, fmt.Errorf("database %q: want driver:dsn", name)
	}
	return OpenSQL(driverName, dataSourceName)
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Artifacts (
	ArtifactID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Name VARCHAR(255) NOT NULL UNIQUE,
	Date BIGINT NOT NULL,
	Kind VARCHAR(16) NOT NULL
);
CREATE TABLE IF NOT EXISTS Collections (
	CollectionID VARCHAR(36) PRIMARY KEY,
	Version VARCHAR(255) NOT NULL
);
CREATE TABLE IF NOT EXISTS Statistics (
	CollectionID VARCHAR(36),
	ArtifactID BIGINT UNSIGNED,
	Benchmark VARCHAR(100),
	Profile VARCHAR(16),
	Scenario VARCHAR(100),
	Statistic VARCHAR(100),
	Value DOUBLE,
	PRIMARY KEY (ArtifactID, Benchmark, Profile, Scenario, Statistic),
	FOREIGN KEY (ArtifactID) REFERENCES Artifacts(ArtifactID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS SelfProfileQueries (
	CollectionID VARCHAR(36),
	ArtifactID BIGINT UNSIGNED,
	Benchmark VARCHAR(100),
	Profile VARCHAR(16),
	Scenario VARCHAR(100),
	Label VARCHAR(255),
	SelfTime BIGINT,
	BlockedTime BIGINT,
	IncrementalLoadTime BIGINT,
	CacheHits INTEGER,
	InvocationCount INTEGER,
{{if not .sqlite3}}
	Index (ArtifactID, Benchmark),
{{end}}
	FOREIGN KEY (ArtifactID) REFERENCES Artifacts(ArtifactID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS RawSelfProfiles (
	CollectionID VARCHAR(36),
	ArtifactID BIGINT UNSIGNED,
	Benchmark VARCHAR(100),
	Profile VARCHAR(16),
	Scenario VARCHAR(100),
	FOREIGN KEY (ArtifactID) REFERENCES Artifacts(ArtifactID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Errors (
	ArtifactID BIGINT UNSIGNED,
	Benchmark VARCHAR(100),
	Error TEXT,
	PRIMARY KEY (ArtifactID, Benchmark),
	FOREIGN KEY (ArtifactID) REFERENCES Artifacts(ArtifactID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS SelfProfileQueriesArtifactBenchmark ON SelfProfileQueries(ArtifactID, Benchmark);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements(driverName string) error {
	// Results are stored at most once per key; a resumed
	// collection never overwrites what is already recorded.
	ignore := "INSERT IGNORE"
	if driverName == "sqlite3" {
		ignore = "INSERT OR IGNORE"
	}
	for _, s := range []struct {
		stmt **sql.Stmt
		q    string
	}{
		{&db.insertArtifact, "INSERT INTO Artifacts(Name, Date, Kind) VALUES (?, ?, ?)"},
		{&db.findArtifact, "SELECT ArtifactID FROM Artifacts WHERE Name = ?"},
		{&db.insertStat, ignore + " INTO Statistics(CollectionID, ArtifactID, Benchmark, Profile, Scenario, Statistic, Value) VALUES (?, ?, ?, ?, ?, ?, ?)"},
		{&db.insertQuery, "INSERT INTO SelfProfileQueries(CollectionID, ArtifactID, Benchmark, Profile, Scenario, Label, SelfTime, BlockedTime, IncrementalLoadTime, CacheHits, InvocationCount) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"},
		{&db.insertRaw, "INSERT INTO RawSelfProfiles(CollectionID, ArtifactID, Benchmark, Profile, Scenario) VALUES (?, ?, ?, ?, ?)"},
		{&db.insertError, ignore + " INTO Errors(ArtifactID, Benchmark, Error) VALUES (?, ?, ?)"},
	} {
		var err error
		if *s.stmt, err = db.sql.Prepare(s.q); err != nil {
			return fmt.Errorf("prepare %q: %v", s.q, err)
		}
	}
	return nil
}

// StartCollection records the start of a collection session.
func (db *DB) StartCollection(ctx context.Context, collection, version string) error {
	_, err := db.sql.ExecContext(ctx, "INSERT INTO Collections(CollectionID, Version) VALUES (?, ?)", collection, version)
	return err
}

// ArtifactRow returns the ArtifactID of a, inserting a if it is new.
func (db *DB) ArtifactRow(ctx context.Context, a storage.Artifact) (int64, error) {
	var id int64
	err := db.findArtifact.QueryRowContext(ctx, a.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	var date int64
	if !a.Date.IsZero() {
		date = a.Date.Unix()
	}
	res, err := db.insertArtifact.ExecContext(ctx, a.Name, date, string(a.Kind))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// lookupArtifact returns the ArtifactID of a, or ok == false if a
// has never been recorded.
func (db *DB) lookupArtifact(ctx context.Context, a storage.Artifact) (id int64, ok bool, err error) {
	err = db.findArtifact.QueryRowContext(ctx, a.Name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	return id, err == nil, err
}

// RecordRun stores the statistics and self-profile queries of run.
func (db *DB) RecordRun(ctx context.Context, a storage.Artifact, collection string, bench benchdata.BenchmarkName, run *benchdata.Run) (err error) {
	aid, err := db.ArtifactRow(ctx, a)
	if err != nil {
		return err
	}
	id := run.ID()
	profile, scenario := id.BuildKind().Profile(), id.State.ID()

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	stat := tx.StmtContext(ctx, db.insertStat)
	for _, p := range run.Stats.Pairs() {
		if _, err := stat.ExecContext(ctx, collection, aid, string(bench), profile, scenario, p.Name, p.Value); err != nil {
			return err
		}
	}
	if run.SelfProfile == nil {
		return nil
	}
	query := tx.StmtContext(ctx, db.insertQuery)
	for _, q := range run.SelfProfile.QueryData {
		if _, err := query.ExecContext(ctx, collection, aid, string(bench), profile, scenario,
			q.Label, int64(q.SelfTime), int64(q.BlockedTime), int64(q.IncrementalLoadTime),
			q.NumberOfCacheHits, q.InvocationCount); err != nil {
			return err
		}
	}
	return nil
}

// RecordRawSelfProfile notes an uploaded raw self-profile.
func (db *DB) RecordRawSelfProfile(ctx context.Context, a storage.Artifact, collection string, bench benchdata.BenchmarkName, id benchdata.RunID) error {
	aid, err := db.ArtifactRow(ctx, a)
	if err != nil {
		return err
	}
	_, err = db.insertRaw.ExecContext(ctx, collection, aid, string(bench), id.BuildKind().Profile(), id.State.ID())
	return err
}

// RecordError stores the failure of bench at a.
func (db *DB) RecordError(ctx context.Context, a storage.Artifact, bench benchdata.BenchmarkName, msg string) error {
	aid, err := db.ArtifactRow(ctx, a)
	if err != nil {
		return err
	}
	_, err = db.insertError.ExecContext(ctx, aid, string(bench), msg)
	return err
}

// DeleteBenchmark removes every result for bench.
func (db *DB) DeleteBenchmark(ctx context.Context, bench benchdata.BenchmarkName) (err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, table := range []string{"Statistics", "SelfProfileQueries", "RawSelfProfiles", "Errors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE Benchmark = ?", string(bench)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteErrors removes the errors recorded for a.
func (db *DB) DeleteErrors(ctx context.Context, a storage.Artifact) error {
	aid, ok, err := db.lookupArtifact(ctx, a)
	if err != nil || !ok {
		return err
	}
	_, err = db.sql.ExecContext(ctx, "DELETE FROM Errors WHERE ArtifactID = ?", aid)
	return err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertArtifact, db.findArtifact, db.insertStat, db.insertQuery, db.insertRaw, db.insertError} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
