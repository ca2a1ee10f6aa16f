// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authorization middleware CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authz-middleware",
		Short: "Expression-based HTTP authorization middleware",
		Long: `authz-middleware compiles a boolean expression over request
method, path, host, and headers into a standalone HTTP authorization
gate: validate a configuration document, run its embedded self-tests,
or serve it in front of a reverse-proxy target.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", defaultConfigPath(), "configuration file path (YAML or JSON)")

	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
