// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config decodes, validates, and schema-checks the middleware's
// startup configuration: the authorization expression, the deny response,
// and the self-test suite run against it before the first real request is
// served.
package config

import (
	"encoding/json"

	"github.com/samber/oops"

	"github.com/authzmw/authzmw/internal/reqctx"
)

const (
	defaultDenyStatusCode = 403
	defaultDenyBody       = "Forbidden"
)

// Configuration is the full startup configuration for the middleware.
type Configuration struct {
	Expression     string         `json:"expression" jsonschema:"required,minLength=1"`
	DenyStatusCode tolerantUint16 `json:"denyStatusCode,omitempty"`
	DenyBody       string         `json:"denyBody,omitempty"`
	Tests          []TestCase     `json:"tests,omitempty"`
}

// TestCase is a single embedded self-test: a mock request and the boolean
// the compiled expression must produce against it.
type TestCase struct {
	Name    string      `json:"name" jsonschema:"required,minLength=1"`
	Request TestRequest `json:"request"`
	Expect  tolerantBool `json:"expect"`
}

// TestRequest is the mock request shape a self-test evaluates against.
type TestRequest struct {
	Method  string          `json:"method,omitempty"`
	Path    string          `json:"path,omitempty"`
	Host    string          `json:"host,omitempty"`
	Headers tolerantHeaders `json:"headers,omitempty"`
}

// ToMockRequest converts the decoded self-test request into the
// reqctx.MockRequest shape the evaluator's request-context constructor
// accepts. Each header carries exactly the single value the tolerant
// object<string,string> dialect can express.
func (tr TestRequest) ToMockRequest() reqctx.MockRequest {
	headers := make(map[string][]string, len(tr.Headers))
	for name, value := range tr.Headers {
		headers[name] = []string{value}
	}
	return reqctx.MockRequest{
		Method:  tr.Method,
		Path:    tr.Path,
		Host:    tr.Host,
		Headers: headers,
	}
}

// Parse decodes raw JSON bytes into a Configuration, accepting either the
// native JSON dialect or the string-encoded dialect a host that stringifies
// YAML scalars before forwarding them would produce for denyStatusCode,
// expect, and headers.
func Parse(data []byte) (*Configuration, error) {
	cfg := &Configuration{
		DenyStatusCode: defaultDenyStatusCode,
		DenyBody:       defaultDenyBody,
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, oops.Code("CONFIG_ERROR").In("config.parse").Wrapf(err, "decoding configuration")
	}
	if cfg.Expression == "" {
		return nil, oops.Code("CONFIG_ERROR").In("config.parse").Errorf("expression is required")
	}

	return cfg, nil
}
