// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/config"
	"github.com/aliens4friends/a4f/internal/pipeline"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/internal/subproc"
	"github.com/aliens4friends/a4f/pkg/alienpkg"
	"github.com/aliens4friends/a4f/pkg/deltacode"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the external file-level scanner over each package's files/ tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		scanner := subproc.Scanner{Runner: subproc.ExecRunner{}, Command: scannerCommand(app.settings.Scancode)}
		limits := pipeline.Limits{}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) }, scanStep(p, scanner))
		for _, r := range pipeline.Failures(results) {
			statusWarn("%s: %v", r.Identity, r.Err)
		}
		statusOK("scanned %d/%d packages", len(results)-len(pipeline.Failures(results)), len(results))
		return err
	},
}

// scannerCommand maps A4F_SCANCODE's native|wrapper mode to the executable
// invoked for each package.
func scannerCommand(mode config.ScancodeMode) string {
	if mode == config.ScancodeWrapper {
		return "scancode-wrapper"
	}
	return "scancode"
}

// rawScanCodeFile is one entry of the external scanner's native JSON output
// (the ScanCode Toolkit "files" array shape) before normalization to
// deltacode.ScanReport.
type rawScanCodeFile struct {
	Path     string `json:"path"`
	Sha1     string `json:"sha1"`
	Licenses []struct {
		SpdxLicenseKey string `json:"spdx_license_key"`
	} `json:"licenses"`
	Copyrights []struct {
		Value string `json:"value"`
	} `json:"copyrights"`
}

type rawScanCodeOutput struct {
	Files []rawScanCodeFile `json:"files"`
}

// normalizeScanCode converts the scanner's native JSON into the per-file
// map of {path -> {licenses[], copyrights[]}} the pool artifact stores.
func normalizeScanCode(raw []byte) (deltacode.ScanReport, error) {
	var out rawScanCodeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(a4ferr.ErrCorruptInput, "parsing scanner output: %v", err)
	}
	report := deltacode.ScanReport{}
	for _, f := range out.Files {
		rec := deltacode.FileRecord{Path: f.Path, Sha1: f.Sha1}
		for _, l := range f.Licenses {
			if l.SpdxLicenseKey != "" {
				rec.Licenses = append(rec.Licenses, l.SpdxLicenseKey)
			}
		}
		for _, c := range f.Copyrights {
			if c.Value != "" {
				rec.Copyrights = append(rec.Copyrights, c.Value)
			}
		}
		report[f.Path] = rec
	}
	return report, nil
}

// materializeFiles writes an AlienPackage's files/ tree out to dir so the
// external scanner subprocess can walk it as a plain directory.
func materializeFiles(ap *alienpkg.AlienPackage, dir string) error {
	for name, content := range ap.RawFiles {
		dest := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// scanStep materializes a package's files/ tree to a temp directory, runs
// the external scanner against it, and stores the normalized result as the
// SCANCODE_JSON pool artifact.
func scanStep(p *pool.Pool, scanner subproc.Scanner) pipeline.StepFunc {
	return func(ctx context.Context, ref *session.PackageRef) error {
		ap, _, err := alienpkg.Open(p, ref.Identity.Name, ref.Identity.Version)
		if err != nil {
			return err
		}
		jsonPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.SCANCODE_JSON)
		if err != nil {
			return err
		}
		if cached, ok := p.CachedRead(jsonPath); ok {
			_ = cached
			ref.MarkDone(session.StepScan)
			return nil
		}
		dir, err := os.MkdirTemp("", "a4f-scan-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		if err := materializeFiles(ap, dir); err != nil {
			return err
		}
		rawJSON := filepath.Join(dir, "scancode.json")
		rawSPDX := filepath.Join(dir, "scancode.spdx")
		if err := scanner.Scan(ctx, dir, rawJSON, rawSPDX); err != nil {
			return err
		}
		raw, err := os.ReadFile(rawJSON)
		if err != nil {
			return errors.Wrap(err, "reading scanner JSON output")
		}
		report, err := normalizeScanCode(raw)
		if err != nil {
			return err
		}
		normalized, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if err := p.Write(jsonPath, normalized, pool.Overwrite); err != nil {
			return err
		}
		if spdxBytes, err := os.ReadFile(rawSPDX); err == nil {
			spdxPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.SCANCODE_SPDX)
			if err != nil {
				return err
			}
			if err := p.Write(spdxPath, spdxBytes, pool.Overwrite); err != nil {
				return err
			}
		}
		ref.MarkDone(session.StepScan)
		return nil
	}
}
