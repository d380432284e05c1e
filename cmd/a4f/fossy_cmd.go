// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"

	spdx22 "github.com/spdx/tools-golang/spdx/v2/v2_2"
	"github.com/spdx/tools-golang/tagvalue"
	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/pipeline"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/pkg/alienpkg"
	"github.com/aliens4friends/a4f/pkg/clearing"
)

var fossyCmd = &cobra.Command{
	Use:   "fossy",
	Short: "Poll the clearing server and reattach its conclusions",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		client, err := newClearingClient(cmd.Context())
		if err != nil {
			return err
		}
		limits := pipeline.Limits{}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) }, fossyStep(p, client))
		for _, r := range pipeline.Failures(results) {
			statusWarn("%s: %v", r.Identity, r.Err)
		}
		statusOK("cleared %d/%d packages", len(results)-len(pipeline.Failures(results)), len(results))
		return err
	},
}

// fossyStep re-identifies the package's upload (by its deterministic name
// and content hash, dedup'd server-side by clearing.Client.Upload), polls
// its clearing job to completion, and reattaches the resulting main license
// onto the alien SPDX document as the FINAL_SPDX artifact.
func fossyStep(p *pool.Pool, client *clearing.Client) pipeline.StepFunc {
	return func(ctx context.Context, ref *session.PackageRef) error {
		finalPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.FINAL_SPDX)
		if err != nil {
			return err
		}
		if _, ok := p.CachedRead(finalPath); ok {
			ref.MarkDone(session.StepFossy)
			return nil
		}

		ap, _, err := alienpkg.Open(p, ref.Identity.Name, ref.Identity.Version)
		if err != nil {
			return err
		}
		archive, sha256Hex, err := packFilesArchive(ap)
		if err != nil {
			return err
		}
		uploadID, _, err := client.Upload(ctx, ref.Identity.Name, ref.Identity.Version, archive, sha256Hex, "")
		if err != nil {
			return err
		}
		report, err := client.Report(ctx, uploadID)
		if err != nil {
			return err
		}

		fossyPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.FOSSY_JSON)
		if err != nil {
			return err
		}
		fossyData, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if err := p.Write(fossyPath, fossyData, pool.Overwrite); err != nil {
			return err
		}

		alienSpdxPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.ALIEN_SPDX)
		if err != nil {
			return err
		}
		alienSpdx, err := p.Read(alienSpdxPath)
		if err != nil {
			return err
		}
		final, err := reattachClearingConclusions(alienSpdx, report)
		if err != nil {
			return err
		}
		if err := p.Write(finalPath, final, pool.Overwrite); err != nil {
			return err
		}
		ref.MarkDone(session.StepFossy)
		return nil
	}
}

// reattachClearingConclusions overlays the clearing server's reported main
// license onto the synthesized alien document's package-level concluded
// license, producing the final, human-reviewed SPDX document.
func reattachClearingConclusions(alienSpdx []byte, report *clearing.Report) ([]byte, error) {
	var doc spdx22.Document
	if err := tagvalue.ReadInto(bytes.NewReader(alienSpdx), &doc); err != nil {
		return nil, err
	}
	if report.MainLicense != "" {
		for _, pkg := range doc.Packages {
			pkg.PackageLicenseConcluded = report.MainLicense
		}
	}
	var out bytes.Buffer
	if err := tagvalue.Write(&doc, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
