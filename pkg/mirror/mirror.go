// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package mirror projects every TinfoilHat document referenced by a
// session into a SQL table for downstream reporting tools, behind a small
// interface rather than scattering query strings across callers.
package mirror

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// execer is the narrow slice of pgx.Tx that fullProject/deltaProject need,
// kept as its own interface so tests can exercise the projection logic
// without a live database.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Mode selects how Project reconciles a session's rows against the table.
type Mode string

const (
	// Full deletes all rows for the session, then inserts every row.
	Full Mode = "full"
	// Delta inserts only rows whose (session, fname) doesn't already
	// exist.
	Delta Mode = "delta"
)

// Row is one projected TinfoilHat artifact: fname is the Pool-relative
// path it was read from, data is its raw JSON document.
type Row struct {
	Session string
	FName   string
	Data    []byte // raw JSON, stored as jsonb
}

// Writer projects session rows into a SQL-backed store. Implementations
// must honor the uniqueness constraint on (session, fname) and run each
// Project call inside a single transaction.
type Writer interface {
	Project(ctx context.Context, session string, mode Mode, rows []Row) error
}

// Schema is the DDL a fresh table needs; callers run it once via a
// migration tool, not from Project.
const Schema = `
CREATE TABLE IF NOT EXISTS a4f_mirror (
	session text NOT NULL,
	fname   text NOT NULL,
	data    jsonb NOT NULL,
	PRIMARY KEY (session, fname)
);
`

// PgxWriter is a Writer backed by a pgx connection pool.
type PgxWriter struct {
	Pool *pgxpool.Pool
}

// NewPgxWriter connects to dsn and returns a ready PgxWriter.
func NewPgxWriter(ctx context.Context, dsn string) (*PgxWriter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "mirror: connecting to database")
	}
	return &PgxWriter{Pool: pool}, nil
}

// Close releases the underlying connection pool.
func (w *PgxWriter) Close() {
	w.Pool.Close()
}

var _ Writer = &PgxWriter{}

// Project projects rows for session into the mirror table within a single
// transaction, per mode.
func (w *PgxWriter) Project(ctx context.Context, session string, mode Mode, rows []Row) error {
	tx, err := w.Pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "mirror: starting transaction")
	}
	defer tx.Rollback(ctx)

	switch mode {
	case Full:
		if err := fullProject(ctx, tx, session, rows); err != nil {
			return err
		}
	case Delta:
		if err := deltaProject(ctx, tx, session, rows); err != nil {
			return err
		}
	default:
		return errors.Errorf("mirror: unknown mode %q", mode)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "mirror: committing transaction")
	}
	return nil
}

func fullProject(ctx context.Context, tx execer, session string, rows []Row) error {
	if _, err := tx.Exec(ctx, `DELETE FROM a4f_mirror WHERE session = $1`, session); err != nil {
		return errors.Wrap(err, "mirror: clearing session rows")
	}
	for _, r := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO a4f_mirror (session, fname, data) VALUES ($1, $2, $3)`,
			r.Session, r.FName, r.Data,
		); err != nil {
			return errors.Wrapf(err, "mirror: inserting %s", r.FName)
		}
	}
	return nil
}

func deltaProject(ctx context.Context, tx execer, session string, rows []Row) error {
	for _, r := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO a4f_mirror (session, fname, data) VALUES ($1, $2, $3)
			 ON CONFLICT (session, fname) DO NOTHING`,
			r.Session, r.FName, r.Data,
		); err != nil {
			return errors.Wrapf(err, "mirror: inserting %s", r.FName)
		}
	}
	return nil
}
