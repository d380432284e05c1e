// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package subproc

import (
	"context"
	"strings"
	"testing"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/pkg/errors"
)

type fakeRunner struct {
	stdout, stderr []byte
	err            error
	gotName        string
	gotArgs        []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.gotName = name
	f.gotArgs = args
	return f.stdout, f.stderr, f.err
}

func TestScannerRequiresCommand(t *testing.T) {
	s := Scanner{Runner: &fakeRunner{}}
	err := s.Scan(context.Background(), "/tmp/in", "/tmp/out.json", "/tmp/out.spdx")
	if !errors.Is(err, a4ferr.ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestSpdxToolConvert(t *testing.T) {
	fr := &fakeRunner{}
	tool := SpdxTool{Runner: fr, Command: "spdx-tools"}
	if err := tool.TagValueToRDF(context.Background(), "in.spdx", "out.rdf"); err != nil {
		t.Fatalf("TagValueToRDF: %v", err)
	}
	if fr.gotName != "spdx-tools" {
		t.Fatalf("want spdx-tools invoked, got %q", fr.gotName)
	}
	if !strings.Contains(strings.Join(fr.gotArgs, " "), "in.spdx out.rdf") {
		t.Fatalf("unexpected args: %v", fr.gotArgs)
	}
}

func TestSpdxToolPropagatesSubprocessFailure(t *testing.T) {
	fr := &fakeRunner{err: errors.Wrap(a4ferr.ErrSubprocessFailure, "boom")}
	tool := SpdxTool{Runner: fr, Command: "spdx-tools"}
	err := tool.RDFToTagValue(context.Background(), "in.rdf", "out.spdx")
	if !errors.Is(err, a4ferr.ErrSubprocessFailure) {
		t.Fatalf("want ErrSubprocessFailure, got %v", err)
	}
}
