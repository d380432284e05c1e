// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package subproc runs the external tool contracts this core treats as
// opaque collaborators: the file scanner (ScanCode) and the SPDX
// Tag-Value/RDF-XML converter (the spdx-tools jar). Both run through a
// Runner with the caller's context, and a non-zero exit is
// a4ferr.ErrSubprocessFailure, never retried. Only Scanner checks its
// executable with exec.LookPath before running it.
package subproc

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
)

// Runner executes an external command and reports its outcome. Tests
// substitute a fake; production code uses ExecRunner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run invokes name with args, returning captured stdout/stderr. A non-zero
// exit becomes a4ferr.ErrSubprocessFailure wrapping the command's stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), stderr.Bytes(), errors.Wrapf(a4ferr.ErrSubprocessFailure, "%s: %v: %s", name, err, stderr.String())
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

var _ Runner = ExecRunner{}

// Scanner invokes the external file-level license/copyright scanner
// (ScanCode): given an input directory, it must produce a JSON findings
// file and its SPDX Tag-Value twin. A4F_SCANCODE selects between
// the scanner's native CLI and a thin wrapper script.
type Scanner struct {
	Runner  Runner
	Command string // A4F_SCANCODE native binary or wrapper script path
}

// Scan runs the scanner against inputDir, producing jsonOut and spdxOut.
func (s Scanner) Scan(ctx context.Context, inputDir, jsonOut, spdxOut string) error {
	if s.Command == "" {
		return errors.Wrap(a4ferr.ErrConfig, "scanner command not configured (A4F_SCANCODE)")
	}
	if _, err := exec.LookPath(s.Command); err != nil {
		return errors.Wrapf(a4ferr.ErrConfig, "scanner command %q not found on PATH", s.Command)
	}
	_, _, err := s.Runner.Run(ctx, s.Command,
		"--json-pp", jsonOut,
		"--spdx-tv", spdxOut,
		inputDir,
	)
	return err
}

// SpdxTool converts between SPDX Tag-Value and RDF/XML using the external
// spdx-tools jar. SPDX_TOOLS_CMD is run as a single executable name, such
// as a wrapper script around the jar; the value is not split into
// arguments.
type SpdxTool struct {
	Runner  Runner
	Command string // SPDX_TOOLS_CMD
}

// TagValueToRDF converts in (Tag-Value) to out (RDF/XML), using the
// spdx-tools jar's "<in> <out>" invocation contract.
func (t SpdxTool) TagValueToRDF(ctx context.Context, in, out string) error {
	return t.convert(ctx, "TagToRDF", in, out)
}

// RDFToTagValue converts in (RDF/XML) to out (Tag-Value).
func (t SpdxTool) RDFToTagValue(ctx context.Context, in, out string) error {
	return t.convert(ctx, "RDFToTag", in, out)
}

func (t SpdxTool) convert(ctx context.Context, subcommand, in, out string) error {
	if t.Command == "" {
		return errors.Wrap(a4ferr.ErrConfig, "SPDX_TOOLS_CMD not configured")
	}
	_, _, err := t.Runner.Run(ctx, t.Command, subcommand, in, out)
	return err
}
