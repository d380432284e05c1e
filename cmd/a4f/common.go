// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/pkg/debianmatch"
)

// openPool constructs the Pool for the current settings, applying the
// command-scoped --ignore-cache override and, when A4F_POOL_MIRROR names a
// gs:// URI, a write-through GCS mirror.
func openPool() *pool.Pool {
	p := pool.New(app.settings.PoolPath, app.settings.Cache)
	if app.settings.PoolMirror != "" {
		m, err := pool.NewGCSMirror(context.Background(), app.settings.PoolMirror)
		if err != nil {
			statusWarn("pool mirror disabled: %v", err)
		} else {
			p = p.WithGCSMirror(m)
		}
	}
	return p.WithIgnoreCache(flagIgnoreCache)
}

// requireSession loads the session named by --session, a required flag for
// every per-package subcommand.
func requireSession(p *pool.Pool) (*session.Session, error) {
	if flagSession == "" {
		return nil, errors.Wrap(a4ferr.ErrConfig, "--session is required")
	}
	return session.Load(p, flagSession)
}

// requireSessionForUpdate loads the session named by --session and verifies
// the configured lock key (A4F_LOCK_KEY) against the session's lock, for
// commands that mutate per-package state and save the session back.
// Non-holders of a locked session fail here with a lock conflict before any
// mutation happens.
func requireSessionForUpdate(p *pool.Pool) (*session.Session, error) {
	s, err := requireSession(p)
	if err != nil {
		return nil, err
	}
	if err := s.CheckLock(app.settings.LockKey); err != nil {
		return nil, err
	}
	return s, nil
}

// saveSession persists s unless --dryrun was given.
func saveSession(p *pool.Pool, s *session.Session) error {
	if flagDryRun {
		return nil
	}
	return s.Save(p)
}

// loadMatchResult reads the (snap)match pool artifact recorded for ref,
// preferring a SnapMatcher result over a CurrentMatcher one when both exist,
// since the snapshot match is the more precise of the two.
func loadMatchResult(p *pool.Pool, ref *session.PackageRef) (*debianmatch.MatchResult, error) {
	for _, ext := range []pool.FileType{pool.SNAPMATCH, pool.ALIENMATCHER} {
		path, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, ext)
		if err != nil {
			return nil, err
		}
		if !p.Exists(path) {
			continue
		}
		raw, err := p.Read(path)
		if err != nil {
			return nil, err
		}
		var result debianmatch.MatchResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "parsing %s: %v", path, err)
		}
		return &result, nil
	}
	return nil, errors.Wrapf(a4ferr.ErrNotFound, "no match result for %s@%s", ref.Identity.Name, ref.Identity.Version)
}

func statusOK(format string, args ...any) {
	color.New(color.FgGreen).Printf(format+"\n", args...)
}

func statusWarn(format string, args ...any) {
	color.New(color.FgYellow).Printf(format+"\n", args...)
}

func statusErr(format string, args ...any) {
	color.New(color.FgRed).Printf(format+"\n", args...)
}
