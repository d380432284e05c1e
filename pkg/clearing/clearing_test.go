// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package clearing

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aliens4friends/a4f/internal/httpx/httpxtest"
)

func resp(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: httpxtest.Body(body)}
}

func TestUploadReusesExistingByHash(t *testing.T) {
	mock := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: resp(200, `[{"id":42,"hash":{"sha256":"deadbeef"}}]`)},
		},
	}
	c := &Client{HTTP: mock, Server: "https://fossy.example.org"}
	id, reused, err := c.Upload(context.Background(), "zlib", "1.2.11", nil, "deadbeef", "")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !reused || id != 42 {
		t.Fatalf("Upload = (%d, %v), want (42, true)", id, reused)
	}
}

func TestUploadCreatesNewWhenNotFound(t *testing.T) {
	mock := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: resp(200, `[]`)},
			{Response: resp(200, `{"message":7}`)},
		},
	}
	c := &Client{HTTP: mock, Server: "https://fossy.example.org"}
	id, reused, err := c.Upload(context.Background(), "zlib", "1.2.11", []byte("tarxz"), "", "desc")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if reused || id != 7 {
		t.Fatalf("Upload = (%d, %v), want (7, false)", id, reused)
	}
}

func TestReportPollsUntilCompleted(t *testing.T) {
	mock := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: resp(200, `[{"status":"running"}]`)},
			{Response: resp(200, `[{"status":"completed"}]`)},
			{Response: resp(200, `{"upload_id":0,"main_license":"MIT","total_licenses":1}`)},
		},
	}
	c := &Client{HTTP: mock, Server: "https://fossy.example.org", PollInterval: time.Millisecond, PollCap: 5 * time.Millisecond}
	report, err := c.Report(context.Background(), 42)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.UploadID != 42 {
		t.Errorf("UploadID = %d, want 42", report.UploadID)
	}
	if report.MainLicense != "MIT" {
		t.Errorf("MainLicense = %q, want MIT", report.MainLicense)
	}
}

func TestReportFailsOnJobFailure(t *testing.T) {
	mock := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: resp(200, `[{"status":"failed"}]`)},
		},
	}
	c := &Client{HTTP: mock, Server: "https://fossy.example.org", PollInterval: time.Millisecond}
	if _, err := c.Report(context.Background(), 42); err == nil {
		t.Fatal("expected error when clearing job fails")
	}
}

func TestJobStatusEmptyIsQueued(t *testing.T) {
	c := &Client{Server: "https://fossy.example.org"}
	mock := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{{Response: resp(200, `[]`)}},
	}
	c.HTTP = mock
	status, err := c.jobStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("jobStatus: %v", err)
	}
	if status != JobQueued {
		t.Errorf("status = %v, want queued", status)
	}
}
