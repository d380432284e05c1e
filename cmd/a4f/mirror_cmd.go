// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/pool"
	"github.com/aliens4friends/a4f/pkg/mirror"
)

var flagMirrorMode string

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Project the session's TinfoilHat artifacts into the SQL mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSession(p)
		if err != nil {
			return err
		}
		mode := mirror.Mode(flagMirrorMode)
		if mode != mirror.Full && mode != mirror.Delta {
			return errors.Wrapf(a4ferr.ErrConfig, "unknown mirror mode %q", flagMirrorMode)
		}
		var rows []mirror.Row
		for _, ref := range s.Packages {
			path, err := p.Resolve(pool.Userland, ref.Identity.Name, ref.Identity.Version, ref.Identity.Name, pool.TINFOILHAT)
			if err != nil {
				return err
			}
			if !p.Exists(path) {
				continue
			}
			data, err := p.Read(path)
			if err != nil {
				return err
			}
			rows = append(rows, mirror.Row{Session: s.ID, FName: path, Data: data})
		}
		dsn := mirrorDSN()
		writer, err := mirror.NewPgxWriter(cmd.Context(), dsn)
		if err != nil {
			return err
		}
		defer writer.Close()
		if err := writer.Project(cmd.Context(), s.ID, mode, rows); err != nil {
			return err
		}
		statusOK("projected %d TinfoilHat artifacts for session %s (%s)", len(rows), s.ID, mode)
		return nil
	},
}

func init() {
	mirrorCmd.Flags().StringVar(&flagMirrorMode, "mode", string(mirror.Full), "projection mode: full or delta")
}

// mirrorDSN builds a libpq-style connection string from the MIRROR_DB_*
// settings.
func mirrorDSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		app.settings.MirrorDBHost, app.settings.MirrorDBPort, app.settings.MirrorDBName,
		app.settings.MirrorDBUser, app.settings.MirrorDBPass)
}
