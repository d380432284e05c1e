// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Command a4f is the command-line entry point for the whole pipeline:
// session bookkeeping, Debian matching, delta reconciliation, SPDX
// synthesis, clearing-server orchestration, harvesting, and CVE checking,
// each a cobra subcommand composing the internal/ and pkg/ collaborators.
// Flag and subcommand wiring follows a single package-main, one shared
// rootCmd convention.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/config"
	"github.com/aliens4friends/a4f/internal/logging"
)

// appContext bundles the resources every subcommand needs, built once in
// rootCmd's PersistentPreRunE and stored in the package-level app variable
// that subcommands read.
type appContext struct {
	settings *config.Settings
	log      *logging.Logger
}

var (
	flagConfigPath  string
	flagIgnoreCache bool
	flagVerbose     bool
	flagQuiet       bool
	flagSession     string
	flagDryRun      bool

	app *appContext
)

var rootCmd = &cobra.Command{
	Use:   "a4f",
	Short: "Software composition analysis pipeline for Yocto/BitBake builds",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(flagConfigPath)
		if err != nil {
			return err
		}
		level := settings.LogLevel
		switch {
		case flagQuiet:
			level = logging.Quiet
		case flagVerbose:
			level = logging.Debug
		}
		app = &appContext{settings: settings, log: logging.New(level, cmd.ErrOrStderr())}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a TOML config file overlay")
	rootCmd.PersistentFlags().BoolVarP(&flagIgnoreCache, "ignore-cache", "i", false, "recompute artifacts even if already present in the pool")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress info logging")
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", "", "session ID to operate on")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dryrun", false, "report what would be done without writing to the pool")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(snapMatchCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(deltaCmd)
	rootCmd.AddCommand(spdxDebianCmd)
	rootCmd.AddCommand(spdxAlienCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(fossyCmd)
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(cveCheckCmd)
	rootCmd.AddCommand(mirrorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(a4ferr.ExitCode(err))
	}
}
