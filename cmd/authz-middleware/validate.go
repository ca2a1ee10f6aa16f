// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authzmw/authzmw/internal/config"
	"github.com/authzmw/authzmw/internal/logging"
	"github.com/authzmw/authzmw/internal/middleware"
	"github.com/authzmw/authzmw/pkg/errutil"
)

// validateOptions holds flags specific to the validate subcommand.
type validateOptions struct {
	logFormat   string
	schemaCheck bool
}

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load, compile, and self-test a configuration without serving",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidateWithDeps(cmd, opts, nil)
		},
	}

	cmd.Flags().StringVar(&opts.logFormat, "log-format", "json", "log format (json or text)")
	cmd.Flags().BoolVar(&opts.schemaCheck, "schema-check", false, "validate the document against the JSON Schema before decoding")

	return cmd
}

// validateDeps allows tests to substitute the config-bytes loader.
type validateDeps struct {
	LoadConfigBytes func(path string) ([]byte, error)
}

func runValidateWithDeps(cmd *cobra.Command, opts *validateOptions, deps *validateDeps) error {
	if deps == nil {
		deps = &validateDeps{}
	}
	if deps.LoadConfigBytes == nil {
		deps.LoadConfigBytes = loadConfigBytes
	}

	logger := logging.Setup("authz-middleware", version, opts.logFormat, cmd.ErrOrStderr())

	raw, err := deps.LoadConfigBytes(configFile)
	if err != nil {
		errutil.LogError(logger, "failed to load configuration", err)
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.schemaCheck {
		if err := config.ValidateSchema(raw); err != nil {
			errutil.LogError(logger, "configuration failed schema validation", err)
			return fmt.Errorf("schema validation: %w", err)
		}
	}

	cfg, err := config.Parse(raw)
	if err != nil {
		errutil.LogError(logger, "failed to parse configuration", err)
		return fmt.Errorf("parse configuration: %w", err)
	}

	if _, err := middleware.Build(cfg, middleware.Options{Logger: logger}); err != nil {
		var diag middleware.Diagnostics
		if errors.As(err, &diag) {
			for _, d := range diag {
				logger.Error("validation failed", "test", d.Test, "reason", d.Message)
			}
		}
		return fmt.Errorf("validate configuration: %w", err)
	}

	logger.Info("configuration valid", "self_tests", len(cfg.Tests))
	fmt.Fprintln(cmd.OutOrStdout(), "OK")
	return nil
}
