// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/internal/session"
	"github.com/aliens4friends/a4f/pkg/clearing"
	"github.com/aliens4friends/a4f/pkg/deltacode"
	"github.com/aliens4friends/a4f/pkg/harvest"
)

var (
	flagHarvestFilterSnapshot string
	flagHarvestWithBinaries   []string
	flagHarvestTUI            bool
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Aggregate every prior step's artifacts into a dashboard document",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSessionForUpdate(p)
		if err != nil {
			return err
		}
		var inputs []harvest.Input
		for i := range s.Packages {
			ref := &s.Packages[i]
			in, err := harvestInput(p, ref)
			if err != nil {
				statusWarn("%s: %v", ref.Identity, err)
				continue
			}
			inputs = append(inputs, in)
			ref.MarkDone(session.StepHarvest)
		}
		doc := harvest.Build(inputs, flagHarvestFilterSnapshot, flagHarvestWithBinaries)
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		path, err := p.Resolve(pool.Stats, s.ID, "harvest", "harvest", pool.HARVEST)
		if err != nil {
			return err
		}
		if err := p.Write(path, data, pool.Overwrite); err != nil {
			return err
		}
		if err := saveSession(p, s); err != nil {
			return err
		}
		statusOK("harvested %d packages -> %s", len(inputs), path)
		if flagHarvestTUI {
			return harvest.RunTUI(doc)
		}
		return nil
	},
}

func init() {
	harvestCmd.Flags().StringVar(&flagHarvestFilterSnapshot, "filter-snapshot", "", "keep only tagged releases plus this snapshot tag")
	harvestCmd.Flags().StringSliceVar(&flagHarvestWithBinaries, "with-binaries", nil, "restrict output to these binary package names")
	harvestCmd.Flags().BoolVar(&flagHarvestTUI, "tui", false, "open an interactive table view of the harvested dashboard")
}

// rawTinfoilHat is the subset of a TINFOILHAT pool artifact harvest needs:
// the Yocto build matrix's per-binary attribution and tag path, an opaque
// document otherwise.
type rawTinfoilHat struct {
	Binaries []harvest.BinaryAttribution `json:"binaries"`
	Tags     []string                    `json:"tags"`
}

// harvestInput assembles one harvest.Input from a package's MATCHER,
// DELTACODE, FOSSY_JSON, and TINFOILHAT pool artifacts, each
// read best-effort since an incomplete pipeline shouldn't block harvesting
// what is available.
func harvestInput(p *pool.Pool, ref *session.PackageRef) (harvest.Input, error) {
	in := harvest.Input{Name: ref.Identity.Name, Version: ref.Identity.Version}

	if match, err := loadMatchResult(p, ref); err == nil {
		in.MatchScore = match.Score
	}

	deltaPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.DELTACODE)
	if err != nil {
		return in, err
	}
	if raw, err := p.Read(deltaPath); err == nil {
		var report deltacode.DeltaReport
		if err := json.Unmarshal(raw, &report); err == nil {
			in.Similarity = report.Similarity
		}
	}

	fossyPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.FOSSY_JSON)
	if err != nil {
		return in, err
	}
	if raw, err := p.Read(fossyPath); err == nil {
		var report clearing.Report
		if err := json.Unmarshal(raw, &report); err == nil {
			in.MainLicense = report.MainLicense
		}
	}

	tinfoilPath, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.TINFOILHAT)
	if err != nil {
		return in, err
	}
	if raw, err := p.Read(tinfoilPath); err == nil {
		var tfh rawTinfoilHat
		if err := json.Unmarshal(raw, &tfh); err == nil {
			in.Binaries = tfh.Binaries
			in.Tags = tfh.Tags
		}
	}

	return in, nil
}
