// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordedExec struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []recordedExec
	err   error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, recordedExec{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.CommandTag{}, nil
}

func TestFullProjectDeletesThenInserts(t *testing.T) {
	fe := &fakeExecer{}
	rows := []Row{
		{Session: "s1", FName: "a.tinfoilhat.json", Data: []byte(`{}`)},
		{Session: "s1", FName: "b.tinfoilhat.json", Data: []byte(`{}`)},
	}
	if err := fullProject(context.Background(), fe, "s1", rows); err != nil {
		t.Fatalf("fullProject: %v", err)
	}
	if len(fe.calls) != 3 {
		t.Fatalf("len(calls) = %d, want 3 (1 delete + 2 inserts)", len(fe.calls))
	}
	if !strings.Contains(fe.calls[0].sql, "DELETE") {
		t.Errorf("first call = %q, want DELETE", fe.calls[0].sql)
	}
	for _, c := range fe.calls[1:] {
		if !strings.Contains(c.sql, "INSERT") {
			t.Errorf("call = %q, want INSERT", c.sql)
		}
	}
}

func TestDeltaProjectOnlyInserts(t *testing.T) {
	fe := &fakeExecer{}
	rows := []Row{{Session: "s1", FName: "a.tinfoilhat.json", Data: []byte(`{}`)}}
	if err := deltaProject(context.Background(), fe, "s1", rows); err != nil {
		t.Fatalf("deltaProject: %v", err)
	}
	if len(fe.calls) != 1 {
		t.Fatalf("len(calls) = %d, want 1", len(fe.calls))
	}
	if !strings.Contains(fe.calls[0].sql, "ON CONFLICT") {
		t.Errorf("call = %q, want ON CONFLICT upsert guard", fe.calls[0].sql)
	}
}

func TestFullProjectPropagatesExecError(t *testing.T) {
	fe := &fakeExecer{err: context.DeadlineExceeded}
	err := fullProject(context.Background(), fe, "s1", []Row{{Session: "s1", FName: "a"}})
	if err == nil {
		t.Fatal("expected error when Exec fails")
	}
}
