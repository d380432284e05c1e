// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpxtest provides a scripted httpx.BasicClient for tests that
// exercise registry and clearing-server clients without real network access.
package httpxtest

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Exchange is one scripted request/response pair. Method and URL, when set,
// are asserted against the incoming request.
type Exchange struct {
	Method   string
	URL      string
	Response *http.Response
	Err      error
}

// Request builds the http.Request a test would issue for this exchange.
func (e Exchange) Request() *http.Request {
	method := e.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequest(method, e.URL, nil)
	if err != nil {
		panic(fmt.Sprintf("building request for %s %s: %v", method, e.URL, err))
	}
	return req
}

// ScriptedClient replays a fixed sequence of Exchanges. A request beyond the
// script panics; when T is set, each request's method and URL must match the
// exchange's. With T nil the script is positional only, for tests that build
// URLs elsewhere.
type ScriptedClient struct {
	T         *testing.T
	Exchanges []Exchange
	served    int
}

func (c *ScriptedClient) Do(req *http.Request) (*http.Response, error) {
	if c.served >= len(c.Exchanges) {
		panic(fmt.Sprintf("unscripted request: %s %s", req.Method, req.URL))
	}
	ex := c.Exchanges[c.served]
	c.served++
	if c.T != nil && ex.URL != "" {
		c.T.Helper()
		want, got := ex.URL, req.URL.String()
		if ex.Method != "" {
			want = ex.Method + " " + ex.URL
			got = req.Method + " " + req.URL.String()
		}
		if diff := cmp.Diff(want, got); diff != "" {
			c.T.Fatalf("request mismatch (-want +got):\n%s", diff)
		}
	}
	return ex.Response, ex.Err
}

// Served reports how many exchanges have been consumed.
func (c *ScriptedClient) Served() int {
	return c.served
}
