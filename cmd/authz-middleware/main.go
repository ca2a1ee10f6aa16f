// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package main is the entry point for the authorization middleware CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Masterminds/semver/v3"
)

// Version information set at build time via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if version != "dev" {
		if _, err := semver.StrictNewVersion(version); err != nil {
			fmt.Fprintf(os.Stderr, "invalid build version %q: %v\n", version, err)
			os.Exit(1)
		}
	}

	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		slog.Error("authz-middleware exiting", "error", err)
		os.Exit(1)
	}
}
