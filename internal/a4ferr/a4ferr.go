// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package a4ferr defines the error taxonomy shared across a4f commands.
//
// Commands drive their packages through pipeline.Run, which keeps each
// package's non-fatal error in that package's Result (commands print them
// as warnings) and continues to the next package; these errors are not
// written into the step's output artifact. Fatal errors abort the command
// with the exit code documented alongside each sentinel.
package a4ferr

import "github.com/pkg/errors"

// Sentinel errors. Use errors.Is against these after unwrapping with
// errors.Cause or stderrors.Is (pkg/errors preserves compatibility with
// errors.Is via its Unwrap/Cause chain).
var (
	// ErrConfig: missing or invalid environment/config. Fatal, exit 2.
	ErrConfig = errors.New("configuration error")
	// ErrLockConflict: session lock key mismatch. Fatal for the command, exit 3.
	ErrLockConflict = errors.New("lock conflict")
	// ErrNotFound: no candidate found (no Debian match, no artifact to
	// consume). Non-fatal at package scope.
	ErrNotFound = errors.New("not found")
	// ErrCorruptInput: aliensrc manifest schema violation, sha1 mismatch,
	// unparseable DEP-5. Non-fatal at package scope.
	ErrCorruptInput = errors.New("corrupt input")
	// ErrNetwork: transient network failure. Retryable.
	ErrNetwork = errors.New("network error")
	// ErrServiceUnavailable: external service unavailable. Retryable.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrSubprocessFailure: non-zero exit from an external tool. Not retried.
	ErrSubprocessFailure = errors.New("subprocess failure")
	// ErrIntegrityViolation: cache file present but does not match the
	// prerequisite identity. Fatal unless --ignore-cache is set.
	ErrIntegrityViolation = errors.New("integrity violation")
	// ErrDuplicatePackage: add() found an existing identically-named
	// .aliensrc and --force was not given.
	ErrDuplicatePackage = errors.New("duplicate package")
)

// ExitCode maps a taxonomy error to its process exit code.
// Returns 1 (recoverable error surfaced to user) for anything not in the
// taxonomy or explicitly non-fatal.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfig):
		return 2
	case errors.Is(err, ErrLockConflict):
		return 3
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrNetwork):
		return 4
	default:
		return 1
	}
}

// Retryable reports whether err is subject to the bounded retry policy
// (3 attempts, exponential backoff with jitter).
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServiceUnavailable)
}

// StepError is the JSON shape of one step failure: step name, when it
// happened, and the message. No command writes StepError values into an
// artifact.
type StepError struct {
	Step    string `json:"step"`
	Time    string `json:"time"`
	Message string `json:"message"`
}
