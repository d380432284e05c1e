// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/csv"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create and manage sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create [id]",
	Short: "Create a new session, printing its ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		s := session.Create(id)
		p := openPool()
		if err := saveSession(p, s); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.ID)
		return nil
	},
}

var (
	flagPopulateName    string
	flagPopulateVersion string
	flagForce           bool
)

var sessionPopulateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Add every pool-known package matching --name/--version to the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSession(p)
		if err != nil {
			return err
		}
		if err := s.Populate(p, flagPopulateName, flagPopulateVersion, app.settings.LockKey, flagForce); err != nil {
			return err
		}
		return saveSession(p, s)
	},
}

var sessionAddVariantsCmd = &cobra.Command{
	Use:   "add-variants",
	Short: "Expand the session with every variant sharing (name, version) with an existing entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSession(p)
		if err != nil {
			return err
		}
		if err := s.AddVariants(p, app.settings.LockKey, flagForce); err != nil {
			return err
		}
		return saveSession(p, s)
	},
}

var sessionLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the session with A4F_LOCK_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSession(p)
		if err != nil {
			return err
		}
		if err := s.Lock(app.settings.LockKey, flagForce); err != nil {
			return err
		}
		return saveSession(p, s)
	},
}

var sessionUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSession(p)
		if err != nil {
			return err
		}
		if err := s.Unlock(app.settings.LockKey, flagForce); err != nil {
			return err
		}
		return saveSession(p, s)
	},
}

var (
	flagFilterScoreGt      int
	flagFilterScoreGtSet   bool
	flagFilterInclude      []string
	flagFilterExclude      []string
	flagFilterOnlyUploaded bool
)

var sessionFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Apply a filter predicate to the session's package list",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSession(p)
		if err != nil {
			return err
		}
		pred := session.Predicate{
			Include:      flagFilterInclude,
			Exclude:      flagFilterExclude,
			OnlyUploaded: flagFilterOnlyUploaded,
		}
		if flagFilterScoreGtSet {
			pred.ScoreGt = &flagFilterScoreGt
		}
		if err := s.Filter(pred, app.settings.LockKey, flagForce); err != nil {
			return err
		}
		return saveSession(p, s)
	},
}

var sessionReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the session's package list as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := openPool()
		s, err := requireSession(p)
		if err != nil {
			return err
		}
		w := csv.NewWriter(cmd.OutOrStdout())
		defer w.Flush()
		return w.WriteAll(s.ReportCsv())
	},
}

func init() {
	sessionPopulateCmd.Flags().StringVar(&flagPopulateName, "name", "*", "name glob pattern")
	sessionPopulateCmd.Flags().StringVar(&flagPopulateVersion, "version", "*", "version glob pattern")
	sessionPopulateCmd.Flags().BoolVar(&flagForce, "force", false, "bypass the session lock check")

	sessionLockCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing lock")
	sessionUnlockCmd.Flags().BoolVar(&flagForce, "force", false, "clear the lock regardless of key")
	sessionAddVariantsCmd.Flags().BoolVar(&flagForce, "force", false, "bypass the session lock check")
	sessionFilterCmd.Flags().BoolVar(&flagForce, "force", false, "bypass the session lock check")

	sessionFilterCmd.Flags().IntVar(&flagFilterScoreGt, "score-gt", 0, "keep only packages scoring above this value")
	sessionFilterCmd.Flags().StringSliceVar(&flagFilterInclude, "include", nil, "keep only these package names")
	sessionFilterCmd.Flags().StringSliceVar(&flagFilterExclude, "exclude", nil, "drop these package names")
	sessionFilterCmd.Flags().BoolVar(&flagFilterOnlyUploaded, "only-uploaded", false, "keep only already-uploaded packages")
	sessionFilterCmd.PreRun = func(cmd *cobra.Command, args []string) {
		flagFilterScoreGtSet = cmd.Flags().Changed("score-gt")
	}

	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionPopulateCmd)
	sessionCmd.AddCommand(sessionAddVariantsCmd)
	sessionCmd.AddCommand(sessionLockCmd)
	sessionCmd.AddCommand(sessionUnlockCmd)
	sessionCmd.AddCommand(sessionFilterCmd)
	sessionCmd.AddCommand(sessionReportCmd)
}
