// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the in-process request cache httpx.CachedClient
// composes over: a coalescing in-memory map keyed by URL, so repeated
// lookups through one CachedClient hit the network once even when callers
// fan out.
package cache

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrMiss is returned by Get when the key has no usable entry.
var ErrMiss = errors.New("cache miss")

// Cache is the lookup contract httpx.CachedClient composes over.
type Cache interface {
	Get(key string) (any, error)
	GetOrSet(key string, produce func() (any, error)) (any, error)
	Del(key string)
}

// entry carries one produced value; ready is closed once val/err are set.
type entry struct {
	ready chan struct{}
	val   any
	err   error
}

// Memory is a coalescing in-memory Cache. Concurrent GetOrSet calls for the
// same key run produce once and share its result; a failed produce is not
// retained, so the next caller retries.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// GetOrSet returns the cached value for key, producing and storing it first
// if absent. Callers racing on the same key block until the single in-flight
// produce resolves.
func (m *Memory) GetOrSet(key string, produce func() (any, error)) (any, error) {
	m.mu.Lock()
	if m.entries == nil {
		m.entries = map[string]*entry{}
	}
	e, ok := m.entries[key]
	if ok {
		m.mu.Unlock()
		<-e.ready
		return e.val, e.err
	}
	e = &entry{ready: make(chan struct{})}
	m.entries[key] = e
	m.mu.Unlock()

	e.val, e.err = produce()
	close(e.ready)
	if e.err != nil {
		m.mu.Lock()
		if m.entries[key] == e {
			delete(m.entries, key)
		}
		m.mu.Unlock()
	}
	return e.val, e.err
}

// Get returns the value for key, or ErrMiss when absent or when the stored
// produce failed.
func (m *Memory) Get(key string) (any, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return nil, ErrMiss
	}
	<-e.ready
	if e.err != nil {
		return nil, ErrMiss
	}
	return e.val, nil
}

// Del removes the entry for key.
func (m *Memory) Del(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

var _ Cache = &Memory{}
