// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline drives a step function across every package in a
// session, sequentially and in the session's stored order: state mutation
// (Pool writes, step flags, session saves) stays single-threaded, so Pool
// and Session need no in-process locking. Parallelism belongs inside a
// step's own bounded I/O fan-outs, not across packages.
package pipeline

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/session"
)

// Limits bounds a Run: RequestsPerSecond caps how many packages per second
// Run starts, taking one limiter token before each package's step (zero
// disables throttling). Requests made inside a step are not throttled.
type Limits struct {
	RequestsPerSecond float64
}

// StepFunc processes one package reference, mutating it in place
// (recording score, step completion, upload state). A returned error marks
// that package's run as failed without aborting siblings, unless it is a
// fatal error class (config, lock conflict, integrity violation), in which
// case Run aborts the remaining work.
type StepFunc func(ctx context.Context, ref *session.PackageRef) error

// Result is one item's outcome.
type Result struct {
	Identity session.Identity
	Err      error
}

// Run applies fn to every package in s.Packages, one at a time, then
// persists s via save. A canceled ctx (SIGINT) stops the loop after the
// in-flight package completes, so partial Pool writes never interleave.
func Run(ctx context.Context, s *session.Session, limits Limits, save func() error, fn StepFunc) ([]Result, error) {
	var limiter *rate.Limiter
	if limits.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), 1)
	}

	results := make([]Result, len(s.Packages))
	var runErr error
	for i := range s.Packages {
		ref := &s.Packages[i]
		results[i] = Result{Identity: ref.Identity}
		if runErr != nil {
			results[i].Err = runErr
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			runErr = err
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				results[i].Err = err
				runErr = err
				continue
			}
		}
		if err := fn(ctx, ref); err != nil {
			results[i].Err = err
			if (!a4ferr.Retryable(err) && a4ferr.ExitCode(err) >= 2) || errors.Is(err, a4ferr.ErrIntegrityViolation) {
				runErr = err
			}
		}
	}

	if save != nil {
		if err := save(); err != nil && runErr == nil {
			runErr = err
		}
	}
	return results, runErr
}

// Failures filters results to only those that errored.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
