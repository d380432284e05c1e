// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/httpx"
	"github.com/aliens4friends/a4f/internal/pipeline"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/pkg/debian2spdx"
	"github.com/aliens4friends/a4f/pkg/debianmatch"
	"github.com/aliens4friends/a4f/pkg/deltacode"
)

var flagDeltaRegistryURL string

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Reconcile the alien scan against the matched Debian source",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		client := &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: "a4f/1"}
		fetcher := &debianmatch.HTTPFetcher{Client: client, RegistryURL: flagDeltaRegistryURL}
		limits := pipeline.Limits{}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) }, deltaStep(p, fetcher))
		for _, r := range pipeline.Failures(results) {
			statusWarn("%s: %v", r.Identity, r.Err)
		}
		statusOK("reconciled %d/%d packages", len(results)-len(pipeline.Failures(results)), len(results))
		return err
	},
}

func init() {
	deltaCmd.Flags().StringVar(&flagDeltaRegistryURL, "registry-url", "https://deb.debian.org/debian", "Debian archive or snapshot mirror root the match was resolved against")
}

// deltaStep loads the package's own scancode findings and the matched
// Debian source's derived findings, reconciles them, and writes the result
// as the DELTACODE pool artifact. The Debian source is
// fetched independently of spdxdebian's own fetch (a deliberate, documented
// redundancy: Pool has no slot for the raw source tree itself).
func deltaStep(p *pool.Pool, fetcher debianmatch.SourceFetcher) pipeline.StepFunc {
	return func(ctx context.Context, ref *session.PackageRef) error {
		deltaPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.DELTACODE)
		if err != nil {
			return err
		}
		if _, ok := p.CachedRead(deltaPath); ok {
			ref.MarkDone(session.StepDelta)
			return nil
		}
		scanPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.SCANCODE_JSON)
		if err != nil {
			return err
		}
		rawScan, err := p.Read(scanPath)
		if err != nil {
			return err
		}
		var newReport deltacode.ScanReport
		if err := json.Unmarshal(rawScan, &newReport); err != nil {
			return err
		}

		match, err := loadMatchResult(p, ref)
		if err != nil {
			return err
		}
		tree, err := debian2spdx.FetchTree(ctx, fetcher, "main", match.DebianName, match.DebianVersion, match.DscFormat)
		if err != nil {
			return err
		}
		cp, err := debian2spdx.ExtractCopyright(tree)
		if err != nil {
			return err
		}
		oldReport := debian2spdx.ToScanReport(tree, cp)

		report := deltacode.Reconcile(oldReport, newReport)
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if err := p.Write(deltaPath, data, pool.Overwrite); err != nil {
			return err
		}
		if app.settings.PrintResult {
			fmt.Println(string(data))
		}
		ref.MarkDone(session.StepDelta)
		return nil
	}
}
