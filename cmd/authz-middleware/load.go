// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"

	"github.com/authzmw/authzmw/internal/xdg"
)

// defaultConfigPath returns the default --config location when the flag
// is not supplied: XDG_CONFIG_HOME/authz-middleware/config.yaml (or the
// HOME-relative fallback xdg.ConfigDir documents). Falls back to the
// bare relative filename if the home directory can't be resolved, so a
// broken environment degrades to config.yaml in the working directory
// rather than panicking.
func defaultConfigPath() string {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}

// loadConfigBytes resolves path to JSON bytes ready for config.Parse. The
// on-disk document may be written as YAML or JSON — YAML is a superset of
// JSON, so a single koanf yaml.Parser handles both — and this step
// normalizes either dialect into one in-memory map before re-marshaling
// it to JSON, so the tolerant dual-scalar decode in internal/config
// applies identically regardless of which dialect authored the file.
func loadConfigBytes(path string) ([]byte, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, oops.Code("CONFIG_ERROR").In("cli.load").With("path", path).
			Wrapf(err, "reading configuration file")
	}

	data, err := json.Marshal(k.Raw())
	if err != nil {
		return nil, oops.Code("CONFIG_ERROR").In("cli.load").With("path", path).
			Wrapf(err, "normalizing configuration to JSON")
	}
	return data, nil
}
