// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/pkg/alienpkg"
)

var (
	flagAddForce      bool
	flagAddTinfoilHat string
)

var addCmd = &cobra.Command{
	Use:   "add <aliensrc-file>",
	Short: "Ingest an .aliensrc tarball into the pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		p := openPool()
		basename := strings.TrimSuffix(filepath.Base(args[0]), "."+string(pool.ALIENSRC))
		ap, path, err := alienpkg.Add(p, raw, basename, flagAddForce)
		if err != nil {
			return err
		}
		if flagAddTinfoilHat != "" {
			tfh, err := os.ReadFile(flagAddTinfoilHat)
			if err != nil {
				return err
			}
			tfhPath, err := p.Resolve(pool.Userland, ap.PrimaryName(), ap.Version(), ap.PrimaryName(), pool.TINFOILHAT)
			if err != nil {
				return err
			}
			if err := p.Write(tfhPath, tfh, pool.Overwrite); err != nil {
				return err
			}
		}
		statusOK("added %s (%s@%s) -> %s", args[0], ap.PrimaryName(), ap.Version(), path)
		return nil
	},
}

func init() {
	addCmd.Flags().BoolVar(&flagAddForce, "force", false, "overwrite an existing identically-named archive")
	addCmd.Flags().StringVar(&flagAddTinfoilHat, "tinfoilhat", "", "accompanying .tinfoilhat.json build-metadata file to ingest alongside")
}
