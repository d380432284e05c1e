// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package cvecheck

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"

	"github.com/aliens4friends/a4f/internal/httpx/httpxtest"
)

const sampleFeed = `{"vulnerabilities":[{"cve":{"id":"CVE-2020-0001"},"configurations":[{"nodes":[{"operator":"OR","cpeMatch":[{"criteria":"cpe:2.3:a:zlib:zlib:1.2.11:*:*:*:*:*:*:*"}]}]}]}]}`

func resp(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: httpxtest.Body(body)}
}

func TestRefreshFetchesWhenAbsent(t *testing.T) {
	fs := memfs.New()
	mock := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{{Response: resp(200, sampleFeed)}},
	}
	m := &Mirror{FS: fs, HTTP: mock}
	if err := m.Refresh(context.Background(), 2020); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if mock.Served() != 1 {
		t.Fatalf("Served = %d, want 1", mock.Served())
	}
}

func TestRefreshSkipsWhenFresh(t *testing.T) {
	fs := memfs.New()
	mock := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{{Response: resp(200, sampleFeed)}},
	}
	m := &Mirror{FS: fs, HTTP: mock}
	if err := m.Refresh(context.Background(), 2020); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if err := m.Refresh(context.Background(), 2020); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if mock.Served() != 1 {
		t.Fatalf("Served = %d, want 1 (second refresh should be a cache hit)", mock.Served())
	}
}

func TestLoadYearFlattensConfigurations(t *testing.T) {
	fs := memfs.New()
	mock := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{{Response: resp(200, sampleFeed)}},
	}
	m := &Mirror{FS: fs, HTTP: mock}
	if err := m.Refresh(context.Background(), 2020); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	cves, err := m.LoadYear(2020)
	if err != nil {
		t.Fatalf("LoadYear: %v", err)
	}
	if len(cves) != 1 || cves[0].ID != "CVE-2020-0001" {
		t.Fatalf("cves = %+v, want one CVE-2020-0001", cves)
	}
	if len(cves[0].Nodes) != 1 {
		t.Fatalf("len(Nodes) = %d, want 1", len(cves[0].Nodes))
	}
}
