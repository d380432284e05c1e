// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package httpx

import (
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aliens4friends/a4f/internal/cache"
	"github.com/aliens4friends/a4f/internal/httpx/httpxtest"
)

func get(t *testing.T, c BasicClient, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do(%s): %v", url, err)
	}
	return resp
}

func bodyOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestCachedClientServesRepeatFromCache(t *testing.T) {
	base := &httpxtest.ScriptedClient{
		T: t,
		Exchanges: []httpxtest.Exchange{
			{Method: "GET", URL: "http://archive.example.org/Sources.gz", Response: httpxtest.Status(200, "index")},
		},
	}
	cached := NewCachedClient(base, &cache.Memory{})
	for i := 0; i < 2; i++ {
		resp := get(t, cached, "http://archive.example.org/Sources.gz")
		if resp.StatusCode != 200 {
			t.Fatalf("call %d: status = %d, want 200", i, resp.StatusCode)
		}
		if diff := cmp.Diff("index", bodyOf(t, resp)); diff != "" {
			t.Fatalf("call %d body mismatch (-want +got):\n%s", i, diff)
		}
	}
	if base.Served() != 1 {
		t.Fatalf("base client served %d requests, want 1", base.Served())
	}
}

func TestCachedClientCachesNotFound(t *testing.T) {
	base := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: httpxtest.Status(404, "")},
		},
	}
	cached := NewCachedClient(base, &cache.Memory{})
	for i := 0; i < 2; i++ {
		resp := get(t, cached, "http://archive.example.org/missing")
		if resp.StatusCode != 404 {
			t.Fatalf("call %d: status = %d, want 404", i, resp.StatusCode)
		}
		resp.Body.Close()
	}
	if base.Served() != 1 {
		t.Fatalf("base client served %d requests, want 1 (404 should be cached)", base.Served())
	}
}

func TestCachedClientDoesNotCacheServerErrors(t *testing.T) {
	base := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: httpxtest.Status(500, "")},
			{Response: httpxtest.Status(200, "recovered")},
		},
	}
	cached := NewCachedClient(base, &cache.Memory{})
	req, _ := http.NewRequest(http.MethodGet, "http://archive.example.org/flaky", nil)
	if _, err := cached.Do(req); err == nil {
		t.Fatal("Do on 500 = nil error, want error")
	}
	resp := get(t, cached, "http://archive.example.org/flaky")
	if got := bodyOf(t, resp); got != "recovered" {
		t.Fatalf("retry body = %q, want %q", got, "recovered")
	}
	if base.Served() != 2 {
		t.Fatalf("base client served %d requests, want 2 (500 must not be cached)", base.Served())
	}
}

func TestCachedClientPassesThroughNonGet(t *testing.T) {
	base := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: httpxtest.Status(201, "")},
			{Response: httpxtest.Status(201, "")},
		},
	}
	cached := NewCachedClient(base, &cache.Memory{})
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodPost, "http://fossy.example.org/uploads", nil)
		resp, err := cached.Do(req)
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
		resp.Body.Close()
	}
	if base.Served() != 2 {
		t.Fatalf("base client served %d requests, want 2 (POST is never cached)", base.Served())
	}
}

func TestWithUserAgentStampsHeader(t *testing.T) {
	var seen string
	probe := clientFunc(func(req *http.Request) (*http.Response, error) {
		seen = req.Header.Get("User-Agent")
		return httpxtest.Status(200, ""), nil
	})
	c := &WithUserAgent{BasicClient: probe, UserAgent: "a4f/1.0"}
	resp := get(t, c, "http://archive.example.org/")
	resp.Body.Close()
	if seen != "a4f/1.0" {
		t.Fatalf("User-Agent = %q, want %q", seen, "a4f/1.0")
	}
}

type clientFunc func(*http.Request) (*http.Response, error)

func (f clientFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestRetryingClientRetriesServerErrors(t *testing.T) {
	base := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: httpxtest.Status(503, "")},
			{Response: httpxtest.Status(200, "ok")},
		},
	}
	c := &RetryingClient{BasicClient: base, MaxAttempts: 3, BaseDelay: 1}
	resp := get(t, c, "http://fossy.example.org/jobs")
	if got := bodyOf(t, resp); got != "ok" {
		t.Fatalf("body = %q, want %q", got, "ok")
	}
	if base.Served() != 2 {
		t.Fatalf("base client served %d requests, want 2", base.Served())
	}
}

func TestRetryingClientDoesNotRetryClientErrors(t *testing.T) {
	base := &httpxtest.ScriptedClient{
		Exchanges: []httpxtest.Exchange{
			{Response: httpxtest.Status(403, "")},
		},
	}
	c := &RetryingClient{BasicClient: base, MaxAttempts: 3, BaseDelay: 1}
	resp := get(t, c, "http://fossy.example.org/jobs")
	defer resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if base.Served() != 1 {
		t.Fatalf("base client served %d requests, want 1 (4xx is not retried)", base.Served())
	}
}
