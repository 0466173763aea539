// Package manifest keeps a queryable registry of generated jobs alongside
// the JSON manifest. Downstream tooling (status polling, resubmission) reads
// job state from here without parsing the full tree; the JSON manifest stays
// the authoritative record of the configuration.
package manifest

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/vk/scangridgo/internal/tree"
)

// StateToTrack marks a freshly generated job that has not been submitted.
const StateToTrack = "to_track"

// JobRecord is one row of the job registry.
type JobRecord struct {
	Study string
	ID    string
	Path  string
	Split int
	Bunch int
	State string
}

// Store is the SQLite-backed job registry of one study tree.
type Store struct {
	db *sql.DB
}

// Open creates or opens the registry at path and ensures its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS studies (
			name      TEXT PRIMARY KEY,
			job_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			study TEXT NOT NULL,
			id    TEXT NOT NULL,
			path  TEXT NOT NULL,
			split INTEGER NOT NULL,
			bunch INTEGER NOT NULL,
			state TEXT NOT NULL,
			PRIMARY KEY (study, id)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordStudy registers the study and its jobs in one transaction. Re-running
// a generation for the same study replaces its rows.
func (s *Store) RecordStudy(ctx context.Context, study string, jobs []tree.Job, jobPaths map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO studies (name, job_count) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET job_count = excluded.job_count`,
		study, len(jobs)); err != nil {
		return fmt.Errorf("record study: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE study = ?`, study); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO jobs (study, id, path, split, bunch, state) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, job := range jobs {
		if _, err := stmt.ExecContext(ctx,
			study, job.ID, jobPaths[job.ID], job.Split, job.Bunch, StateToTrack); err != nil {
			return fmt.Errorf("record job %s: %w", job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Jobs returns the registered jobs of a study in identifier order.
func (s *Store) Jobs(ctx context.Context, study string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT study, id, path, split, bunch, state FROM jobs WHERE study = ? ORDER BY id`, study)
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []JobRecord
	for rows.Next() {
		var r JobRecord
		if err := rows.Scan(&r.Study, &r.ID, &r.Path, &r.Split, &r.Bunch, &r.State); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
