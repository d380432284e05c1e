// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := app.settings
		fmt.Fprintf(cmd.OutOrStdout(), "pool:          %s\n", s.PoolPath)
		fmt.Fprintf(cmd.OutOrStdout(), "cache:         %v\n", s.Cache)
		fmt.Fprintf(cmd.OutOrStdout(), "scancode:      %s\n", s.Scancode)
		fmt.Fprintf(cmd.OutOrStdout(), "spdx-tools:    %s\n", s.SpdxToolsCmd)
		fmt.Fprintf(cmd.OutOrStdout(), "fossy-server:  %s\n", s.FossyServer)
		fmt.Fprintf(cmd.OutOrStdout(), "mirror-db:     %s:%s/%s\n", s.MirrorDBHost, s.MirrorDBPort, s.MirrorDBName)
		return nil
	},
}
