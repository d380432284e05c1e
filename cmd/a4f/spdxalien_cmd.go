// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/httpx"
	"github.com/aliens4friends/a4f/internal/pipeline"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/pkg/alienspdx"
	"github.com/aliens4friends/a4f/pkg/debian2spdx"
	"github.com/aliens4friends/a4f/pkg/debianmatch"
	"github.com/aliens4friends/a4f/pkg/deltacode"
)

var (
	flagSpdxAlienRegistryURL     string
	flagSpdxAlienApplyDebianFull bool
)

var spdxAlienCmd = &cobra.Command{
	Use:   "spdxalien",
	Short: "Synthesize the alien package's SPDX document",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		client := &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: "a4f/1"}
		fetcher := &debianmatch.HTTPFetcher{Client: client, RegistryURL: flagSpdxAlienRegistryURL}
		limits := pipeline.Limits{}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) }, spdxAlienStep(p, fetcher))
		for _, r := range pipeline.Failures(results) {
			statusWarn("%s: %v", r.Identity, r.Err)
		}
		statusOK("synthesized %d/%d alien SPDX documents", len(results)-len(pipeline.Failures(results)), len(results))
		return err
	},
}

func init() {
	spdxAlienCmd.Flags().StringVar(&flagSpdxAlienRegistryURL, "registry-url", "https://deb.debian.org/debian", "Debian archive or snapshot mirror root the match was resolved against")
	spdxAlienCmd.Flags().BoolVar(&flagSpdxAlienApplyDebianFull, "apply-debian-full", false, "force the full tier regardless of computed similarity")
}

// spdxAlienStep weaves the package's own scancode findings with its
// deltacode classification and Debian-derived document into the synthesized
// alien SPDX document. Packages with no Debian match degrade
// gracefully to a scancode-only document, per Synthesize's documented
// fallback.
func spdxAlienStep(p *pool.Pool, fetcher debianmatch.SourceFetcher) pipeline.StepFunc {
	return func(ctx context.Context, ref *session.PackageRef) error {
		alienSpdxPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.ALIEN_SPDX)
		if err != nil {
			return err
		}
		if _, ok := p.CachedRead(alienSpdxPath); ok {
			ref.MarkDone(session.StepSpdxAlien)
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
		var scancode deltacode.ScanReport
		if err := json.Unmarshal(rawScan, &scancode); err != nil {
			return err
		}

		deltaPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.DELTACODE)
		if err != nil {
			return err
		}
		var delta *deltacode.DeltaReport
		var debianDoc *debian2spdx.Document
		if p.Exists(deltaPath) {
			rawDelta, err := p.Read(deltaPath)
			if err != nil {
				return err
			}
			delta = &deltacode.DeltaReport{}
			if err := json.Unmarshal(rawDelta, delta); err != nil {
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
			debianDoc = debian2spdx.Build(match.DebianName, match.DebianVersion, cp, tree.TreePaths())
		}

		doc := alienspdx.Synthesize(scancode, delta, debianDoc, flagSpdxAlienApplyDebianFull)
		doc.Disclaimer = app.settings.SpdxDisclaimer
		var buf bytes.Buffer
		if err := doc.Serialize(&buf, ref.Identity.Name, ref.Identity.Version); err != nil {
			return err
		}
		if err := p.Write(alienSpdxPath, buf.Bytes(), pool.Overwrite); err != nil {
			return err
		}
		ref.MarkDone(session.StepSpdxAlien)
		return nil
	}
}
