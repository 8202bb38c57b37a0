// Copyright (c) 2025 Fraunhofer AISEC
// Fraunhofer-Gesellschaft zur Foerderung der angewandten Forschung e.V.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("service", "store")

const (
	DefaultTable   = "results"
	DefaultMaxRows = 1000
)

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Db stores serialized verification results in a sqlite database
type Db struct {
	db    *sql.DB
	table string
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// ResultEnvelope describes a stored verification result. Result is only
// set if the full result was queried.
type ResultEnvelope struct {
	Type    string                 `json:"type"`
	Id      string                 `json:"id"`
	Source  string                 `json:"source"`
	Created string                 `json:"created"`
	Status  Status                 `json:"status"`
	Result  *ar.VerificationResult `json:"result,omitempty"`
}

// NewDb opens or creates the database at path. At most maxRows results are
// kept, older results are deleted on insertion.
func NewDb(path string, table string, maxRows int) (*Db, error) {

	if !validTable.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if maxRows <= 0 {
		return nil, fmt.Errorf("invalid maximum number of rows %v", maxRows)
	}

	log.Tracef("Opening database %v", path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 DB: %w", err)
	}

	ok, err := tableExists(db, table)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check tables: %w", err)
	}
	if !ok {
		err = createTable(db, table, maxRows)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	return &Db{db: db, table: table}, nil
}

func (db *Db) Close() {
	db.db.Close()
}

// InsertResult stores the result and returns its ID, the SHA256 of its
// JSON serialization
func (db *Db) InsertResult(result *ar.VerificationResult) (string, error) {

	if result == nil {
		return "", errors.New("cannot insert into database: result is nil")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	digest := sha256.Sum256(data)
	id := hex.EncodeToString(digest[:])

	log.Tracef("Inserting result %v into %v", id, db.table)

	insert := fmt.Sprintf(`INSERT INTO %v
		(id, source, created, status, result)
		VALUES
		(?, ?, ?, ?, json(?))`, db.table)

	tx, err := db.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(id, result.ReportedSource, result.Created, statusOf(result), string(data))
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("failed to execute statement: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

// GetAllStatistics returns the envelopes of all stored results without the
// results themselves, oldest first
func (db *Db) GetAllStatistics() ([]*ResultEnvelope, error) {

	log.Trace("Querying all result statistics")

	stmt := fmt.Sprintf("SELECT id, source, created, status FROM %v ORDER BY serial;", db.table)

	rows, err := db.db.Query(stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to exec sqlite3 statement: %w", err)
	}
	defer rows.Close()

	results := make([]*ResultEnvelope, 0)
	for rows.Next() {
		e := &ResultEnvelope{Type: ar.VerificationResultType}
		err = rows.Scan(&e.Id, &e.Source, &e.Created, &e.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	log.Tracef("Returning all result statistics with %v results", len(results))

	return results, nil
}

// GetAllResults returns all stored results, oldest first
func (db *Db) GetAllResults() ([]*ResultEnvelope, error) {
	log.Trace("Querying all results")
	return db.queryResults(fmt.Sprintf(
		"SELECT id, source, created, status, result FROM %v ORDER BY serial;", db.table))
}

// GetLatestResult returns the most recently inserted result, if any
func (db *Db) GetLatestResult() ([]*ResultEnvelope, error) {
	log.Trace("Querying latest result")
	return db.queryResults(fmt.Sprintf(
		"SELECT id, source, created, status, result FROM %v ORDER BY serial DESC LIMIT 1;", db.table))
}

// GetResultById returns the results with the given ID
func (db *Db) GetResultById(id string) ([]*ResultEnvelope, error) {
	log.Tracef("Querying result %v", id)
	return db.queryResults(fmt.Sprintf(
		"SELECT id, source, created, status, result FROM %v WHERE id=?;", db.table), id)
}

func (db *Db) queryResults(stmt string, args ...any) ([]*ResultEnvelope, error) {

	rows, err := db.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to exec sqlite3 statement: %w", err)
	}
	defer rows.Close()

	results := make([]*ResultEnvelope, 0)
	for rows.Next() {
		var data string
		e := &ResultEnvelope{Type: ar.VerificationResultType}
		err = rows.Scan(&e.Id, &e.Source, &e.Created, &e.Status, &data)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		e.Result = new(ar.VerificationResult)
		err := json.Unmarshal([]byte(data), e.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal verification result: %w", err)
		}

		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	log.Tracef("Returning %v results", len(results))

	return results, nil
}

func statusOf(r *ar.VerificationResult) Status {
	if r.Success {
		return StatusSuccess
	}
	return StatusFail
}

func tableExists(db *sql.DB, table string) (bool, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name=?;", table)
	if err != nil {
		return false, fmt.Errorf("failed to exec sqlite3 statement: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		log.Tracef("Table %v exists", table)
		return true, nil
	}

	log.Tracef("Table %v does not exist", table)
	return false, nil
}

func createTable(db *sql.DB, table string, maxRows int) error {

	log.Tracef("Creating table %v", table)

	sqlStmt := fmt.Sprintf(`
CREATE TABLE %v (
    serial INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL,
    source TEXT,
    created TEXT,
    status TEXT,
    result TEXT
);`, table)
	_, err := db.Exec(sqlStmt)
	if err != nil {
		return fmt.Errorf("failed to exec sqlite3 create statement: %w", err)
	}

	sqlStmt = fmt.Sprintf(`
CREATE TRIGGER %v_limit_size AFTER INSERT ON %v
BEGIN
    DELETE FROM %v
    WHERE serial IN (
        SELECT serial
        FROM %v
        ORDER BY serial DESC
        LIMIT -1 OFFSET %v
    );
END;`, table, table, table, table, maxRows)

	_, err = db.Exec(sqlStmt)
	if err != nil {
		return fmt.Errorf("failed to exec sqlite3 trigger statement: %w", err)
	}

	log.Tracef("Created table %v with a limit of %v rows", table, maxRows)
	return nil
}
