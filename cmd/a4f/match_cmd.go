// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aliens4friends/a4f/internal/httpx"
	"github.com/aliens4friends/a4f/internal/pipeline"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/pkg/alienpkg"
	"github.com/aliens4friends/a4f/pkg/debian2spdx"
	"github.com/aliens4friends/a4f/pkg/debianmatch"
)

var (
	flagMatchRegistryURL string
	flagMatchSuite       string
	flagMatchComponent   string
	flagMatchRate        float64
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the session's packages against the current Debian archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		client := &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: "a4f/1"}
		fetcher := &debianmatch.HTTPFetcher{Client: client, RegistryURL: flagMatchRegistryURL}
		matcher := &debianmatch.CurrentMatcher{
			Index: &debianmatch.SourcesIndex{
				Client:      client,
				RegistryURL: flagMatchRegistryURL,
				Suite:       flagMatchSuite,
				Component:   flagMatchComponent,
			},
			Fetcher: fetcher,
		}
		limits := pipeline.Limits{RequestsPerSecond: flagMatchRate}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) },
			matchStep(p, s, matcher, fetcher, session.StepMatch, pool.ALIENMATCHER))
		reportMatchResults(cmd, results)
		return err
	},
}

var snapMatchCmd = &cobra.Command{
	Use:   "snapmatch",
	Short: "Match the session's packages against Debian snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		client := &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: "a4f/1"}
		index := &debianmatch.SnapshotHTTPIndex{SourcesIndex: debianmatch.SourcesIndex{
			Client:      client,
			RegistryURL: flagMatchRegistryURL,
			Suite:       flagMatchSuite,
			Component:   flagMatchComponent,
		}}
		fetcher := &debianmatch.HTTPFetcher{Client: client, RegistryURL: flagMatchRegistryURL}
		matcher := &debianmatch.SnapMatcher{
			Index:   index,
			Fetcher: fetcher,
		}
		limits := pipeline.Limits{RequestsPerSecond: flagMatchRate}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) },
			matchStep(p, s, matcher, fetcher, session.StepSnapMatch, pool.SNAPMATCH))
		reportMatchResults(cmd, results)
		return err
	},
}

type matcher interface {
	Match(ctx context.Context, ap *alienpkg.AlienPackage) (*debianmatch.MatchResult, error)
}

// matchStep returns a pipeline.StepFunc that loads each package's archive,
// runs m against it, downloads the matched Debian source artifacts into the
// pool's debian relationship, and records both the JSON result artifact and
// the session bookkeeping (score, step-done flag) the filter predicate and
// later pipeline stages rely on.
func matchStep(p *pool.Pool, s *session.Session, m matcher, fetcher debianmatch.SourceFetcher, step session.Step, ext pool.FileType) pipeline.StepFunc {
	return func(ctx context.Context, ref *session.PackageRef) error {
		ap, _, err := alienpkg.Open(p, ref.Identity.Name, ref.Identity.Version)
		if err != nil {
			return err
		}
		result, err := m.Match(ctx, ap)
		if err != nil {
			return err
		}
		if err := persistDebianSource(ctx, p, fetcher, result); err != nil {
			return err
		}
		path, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, ext)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		if err := p.Write(path, data, pool.Overwrite); err != nil {
			return err
		}
		if app.settings.PrintResult {
			fmt.Println(string(data))
		}
		ref.Score = int(result.Score)
		ref.MarkDone(step)
		return nil
	}
}

// persistDebianSource stores the matched Debian source tarballs under the
// pool's debian/<name>/<version>/ directory and points the result's
// debsrc_orig/debsrc_debian references at those pool paths. Already-present,
// non-empty artifacts are not re-downloaded when the cache policy is
// active. The two downloads run concurrently (a bounded I/O fan-out within
// one package's step); each lands in its own pool path, so the writes
// don't contend.
func persistDebianSource(ctx context.Context, p *pool.Pool, fetcher debianmatch.SourceFetcher, result *debianmatch.MatchResult) error {
	orig, overlay := debian2spdx.ArtifactNames(result.DebianName, result.DebianVersion, result.DscFormat)
	fetched := make([][]byte, 2)
	dests := make([]string, 2)
	eg, egCtx := errgroup.WithContext(ctx)
	for i, artifact := range []string{orig, overlay} {
		if artifact == "" {
			continue
		}
		dest := path.Join(string(pool.Debian), result.DebianName, result.DebianVersion, artifact)
		dests[i] = dest
		if _, ok := p.CachedRead(dest); ok {
			continue
		}
		i, artifact := i, artifact
		eg.Go(func() error {
			b, err := fetcher.FetchArtifact(egCtx, "main", result.DebianName, artifact)
			if err != nil {
				return err
			}
			fetched[i] = b
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for i, b := range fetched {
		if b == nil {
			continue
		}
		if err := p.Write(dests[i], b, pool.Overwrite); err != nil {
			return err
		}
	}
	result.DebsrcOrig = dests[0]
	result.DebsrcDebian = dests[1]
	return nil
}

func reportMatchResults(cmd *cobra.Command, results []pipeline.Result) {
	for _, r := range pipeline.Failures(results) {
		statusWarn("%s: %v", r.Identity, r.Err)
	}
	statusOK("matched %d/%d packages", len(results)-len(pipeline.Failures(results)), len(results))
}

func init() {
	for _, c := range []*cobra.Command{matchCmd, snapMatchCmd} {
		c.Flags().StringVar(&flagMatchRegistryURL, "registry-url", "https://deb.debian.org/debian", "Debian archive or snapshot mirror root")
		c.Flags().StringVar(&flagMatchSuite, "suite", "sid", "archive suite to index")
		c.Flags().StringVar(&flagMatchComponent, "component", "main", "archive component to index")
		c.Flags().Float64Var(&flagMatchRate, "rate", 0, "packages started per second across the whole run (0 = unlimited)")
	}
}
