// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/httpx"
	"github.com/aliens4friends/a4f/internal/pipeline"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/pkg/debian2spdx"
	"github.com/aliens4friends/a4f/pkg/debianmatch"
)

var flagSpdxDebianRegistryURL string

var spdxDebianCmd = &cobra.Command{
	Use:   "spdxdebian",
	Short: "Build the Debian-derived SPDX document from debian/copyright",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		client := &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: "a4f/1"}
		fetcher := &debianmatch.HTTPFetcher{Client: client, RegistryURL: flagSpdxDebianRegistryURL}
		limits := pipeline.Limits{}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) }, spdxDebianStep(p, fetcher))
		for _, r := range pipeline.Failures(results) {
			statusWarn("%s: %v", r.Identity, r.Err)
		}
		statusOK("built %d/%d Debian SPDX documents", len(results)-len(pipeline.Failures(results)), len(results))
		return err
	},
}

func init() {
	spdxDebianCmd.Flags().StringVar(&flagSpdxDebianRegistryURL, "registry-url", "https://deb.debian.org/debian", "Debian archive or snapshot mirror root the match was resolved against")
}

// spdxDebianStep fetches the matched Debian source, parses debian/copyright,
// and writes the resulting SPDX document as the DEBIAN_SPDX pool artifact,
// sidecaring the raw copyright file as DEBIAN_COPYRIGHT_RAW to satisfy
// DEBIAN_SPDX's prerequisite.
func spdxDebianStep(p *pool.Pool, fetcher debianmatch.SourceFetcher) pipeline.StepFunc {
	return func(ctx context.Context, ref *session.PackageRef) error {
		match, err := loadMatchResult(p, ref)
		if err != nil {
			return err
		}
		spdxPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.DEBIAN_SPDX)
		if err != nil {
			return err
		}
		if _, ok := p.CachedRead(spdxPath); ok {
			ref.MarkDone(session.StepSpdxDebian)
			return nil
		}
		tree, err := debian2spdx.FetchTree(ctx, fetcher, "main", match.DebianName, match.DebianVersion, match.DscFormat)
		if err != nil {
			return err
		}
		rawCopyright, hasCopyright := tree["debian/copyright"]
		copyrightPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.DEBIAN_COPYRIGHT_RAW)
		if err != nil {
			return err
		}
		if !hasCopyright {
			return errors.Wrap(a4ferr.ErrCorruptInput, "CopyrightNotMachineParseable: debian/copyright not found in source tree")
		}
		if err := p.Write(copyrightPath, rawCopyright, pool.Overwrite); err != nil {
			return err
		}
		cp, err := debian2spdx.ExtractCopyright(tree)
		if err != nil {
			return err
		}
		doc := debian2spdx.Build(match.DebianName, match.DebianVersion, cp, tree.TreePaths())
		var buf bytes.Buffer
		if err := doc.Serialize(&buf); err != nil {
			return err
		}
		if err := p.Write(spdxPath, buf.Bytes(), pool.Overwrite); err != nil {
			return err
		}
		ref.MarkDone(session.StepSpdxDebian)
		return nil
	}
}
