// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpx provides a simpler http.Client abstraction and the derived
// clients the matchers and the clearing orchestrator compose: user-agent
// stamping, response caching, rate limiting, and bounded retry.
package httpx

import (
	"bufio"
	"bytes"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/aliens4friends/a4f/internal/cache"
)

// BasicClient is a simpler http.Client that only requires a Do method.
type BasicClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ BasicClient = http.DefaultClient

// WithUserAgent is a basic HTTP client that adds a User-Agent header.
type WithUserAgent struct {
	BasicClient
	UserAgent string
}

var _ BasicClient = &WithUserAgent{}

// Do adds the User-Agent header and sends the request.
func (c *WithUserAgent) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.UserAgent)
	return c.BasicClient.Do(req)
}

// CachedClient serves repeated GET/HEAD requests for the same URL from an
// in-process cache, coalescing concurrent fetches. 5xx responses are not
// retained, so a flaky index fetch is retried on the next call; other
// statuses, 4xx included, are cached like successes.
type CachedClient struct {
	BasicClient
	responses cache.Cache
}

// NewCachedClient returns a CachedClient over client backed by c.
func NewCachedClient(client BasicClient, c cache.Cache) *CachedClient {
	return &CachedClient{client, c}
}

// Do serves from cache when possible, otherwise fulfills the request with
// the underlying client and stores the serialized response.
func (cc *CachedClient) Do(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return cc.BasicClient.Do(req)
	}
	raw, err := cc.responses.GetOrSet(req.URL.String(), func() (any, error) {
		resp, err := cc.BasicClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return nil, errors.New(resp.Status)
		}
		var buf bytes.Buffer
		if err := resp.Write(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(raw.([]byte))), req)
}

var _ BasicClient = &CachedClient{}

type RateLimitedClient struct {
	BasicClient
	Ticker *time.Ticker
}

func (c *RateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	<-c.Ticker.C // Wait for next tick
	return c.BasicClient.Do(req)
}

var _ BasicClient = &RateLimitedClient{}

// Retryable is satisfied by errors that the retry policy (3 attempts,
// exponential backoff with jitter) should retry. 4xx server responses are
// never retried, including the clearing server's job-status errors.
type Retryable interface {
	Retryable() bool
}

// RetryingClient retries failed requests up to MaxAttempts times with
// exponential backoff and jitter. Responses with 4xx status codes are
// returned immediately (not retried); 5xx and transport errors are retried.
type RetryingClient struct {
	BasicClient
	MaxAttempts int           // total attempts including the first; defaults to 3
	BaseDelay   time.Duration // defaults to 200ms
}

func (c *RetryingClient) Do(req *http.Request) (*http.Response, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	base := c.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := base * time.Duration(1<<uint(attempt-1))
			delay += time.Duration(rand.Int63n(int64(base)))
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(delay):
			}
		}
		resp, err := c.BasicClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Non-retryable: the server rejected the request.
			return resp, nil
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = errors.New(resp.Status)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

var _ BasicClient = &RetryingClient{}
