// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/httpx"
	"github.com/aliens4friends/a4f/internal/pipeline"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/pkg/cvecheck"
)

var flagCveVendor string

var cveCheckCmd = &cobra.Command{
	Use:   "cvecheck",
	Short: "Check the session's packages for applicable CVEs against the NVD feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		client := &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: "a4f/1"}
		mirror := cvecheck.NewMirror(p.Filesystem(), client)
		if err := refreshRelevantYears(cmd.Context(), mirror); err != nil {
			return err
		}
		limits := pipeline.Limits{}
		results, err := pipeline.Run(cmd.Context(), s, limits, func() error { return saveSession(p, s) }, cveCheckStep(p, mirror))
		for _, r := range pipeline.Failures(results) {
			statusWarn("%s: %v", r.Identity, r.Err)
		}
		statusOK("checked %d/%d packages for CVEs", len(results)-len(pipeline.Failures(results)), len(results))
		return err
	},
}

func init() {
	cveCheckCmd.Flags().StringVar(&flagCveVendor, "vendor", "debian", "CPE vendor field to check each package's (name, version) against")
}

// refreshRelevantYears refreshes the current and previous year's NVD feeds,
// the span any actively-maintained package's disclosed CVEs fall in.
func refreshRelevantYears(ctx context.Context, mirror *cvecheck.Mirror) error {
	year := time.Now().Year()
	for _, y := range []int{year - 1, year} {
		if err := mirror.Refresh(ctx, y); err != nil {
			return err
		}
	}
	return nil
}

// cveCheckStep checks a single package's (vendor, name, version) against
// the mirrored NVD feeds and writes the result as the CVE_HARVEST pool
// artifact.
func cveCheckStep(p *pool.Pool, mirror *cvecheck.Mirror) pipeline.StepFunc {
	return func(ctx context.Context, ref *session.PackageRef) error {
		year := time.Now().Year()
		var cves []cvecheck.CVE
		for _, y := range []int{year - 1, year} {
			yearCves, err := mirror.LoadYear(y)
			if err != nil {
				continue
			}
			cves = append(cves, yearCves...)
		}
		target := cvecheck.Target{Vendor: flagCveVendor, Product: ref.Identity.Name, Version: ref.Identity.Version}
		result := cvecheck.Check(cves, target)
		path, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.CVE_HARVEST)
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
		ref.MarkDone(session.StepCveCheck)
		return nil
	}
}
