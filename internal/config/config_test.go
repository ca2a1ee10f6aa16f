// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authzmw/authzmw/pkg/errutil"
)

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(`{"expression": "method == \"GET\""}`))
	require.NoError(t, err)

	assert.Equal(t, `method == "GET"`, cfg.Expression)
	assert.Equal(t, tolerantUint16(403), cfg.DenyStatusCode)
	assert.Equal(t, "Forbidden", cfg.DenyBody)
	assert.Empty(t, cfg.Tests)
}

func TestParse_Full(t *testing.T) {
	doc := `{
		"expression": "method == \"POST\"",
		"denyStatusCode": 401,
		"denyBody": "Unauthorized",
		"tests": [
			{
				"name": "POST allowed",
				"request": {
					"method": "POST",
					"path": "/api",
					"host": "example.com",
					"headers": {"X-Test": "value"}
				},
				"expect": true
			}
		]
	}`

	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, tolerantUint16(401), cfg.DenyStatusCode)
	assert.Equal(t, "Unauthorized", cfg.DenyBody)
	require.Len(t, cfg.Tests, 1)
	assert.Equal(t, "POST allowed", cfg.Tests[0].Name)
	assert.Equal(t, "POST", cfg.Tests[0].Request.Method)
	assert.Equal(t, "value", cfg.Tests[0].Request.Headers["X-Test"])
	assert.True(t, bool(cfg.Tests[0].Expect))
}

// TestParse_TolerantDialect exercises spec.md §8 scenario S7: a host that
// stringifies every YAML scalar before forwarding configuration.
func TestParse_TolerantDialect(t *testing.T) {
	doc := `{
		"expression": "method == \"GET\"",
		"denyStatusCode": "401",
		"tests": [
			{"name": "t", "request": {"headers": ""}, "expect": "true"}
		]
	}`

	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, tolerantUint16(401), cfg.DenyStatusCode)
	require.Len(t, cfg.Tests, 1)
	assert.Empty(t, cfg.Tests[0].Request.Headers)
	assert.True(t, bool(cfg.Tests[0].Expect))
}

func TestParse_TolerantBoolFalseString(t *testing.T) {
	doc := `{
		"expression": "method == \"GET\"",
		"tests": [
			{"name": "t2", "request": {"headers": {"X-Team": "eng"}}, "expect": "false"}
		]
	}`

	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	require.Len(t, cfg.Tests, 1)
	assert.False(t, bool(cfg.Tests[0].Expect))
	assert.Equal(t, "eng", cfg.Tests[0].Request.Headers["X-Team"])
}

func TestParse_NonEmptyHeaderStringRejected(t *testing.T) {
	doc := `{
		"expression": "method == \"GET\"",
		"tests": [
			{"name": "t", "request": {"headers": "not-empty"}, "expect": true}
		]
	}`

	_, err := Parse([]byte(doc))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_ERROR")
}

func TestParse_OutOfRangeStatusCodeRejected(t *testing.T) {
	doc := `{"expression": "method == \"GET\"", "denyStatusCode": 70000}`

	_, err := Parse([]byte(doc))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_ERROR")
}

func TestParse_InvalidBoolStringRejected(t *testing.T) {
	doc := `{
		"expression": "method == \"GET\"",
		"tests": [{"name": "t", "request": {}, "expect": "maybe"}]
	}`

	_, err := Parse([]byte(doc))
	require.Error(t, err)
}

func TestParse_MissingExpressionRejected(t *testing.T) {
	_, err := Parse([]byte(`{}`))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_ERROR")
}

func TestParse_MalformedJSONRejected(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_ERROR")
}

func TestTestRequest_ToMockRequest(t *testing.T) {
	tr := TestRequest{
		Method:  "GET",
		Path:    "/api",
		Host:    "example.com",
		Headers: tolerantHeaders{"X-Teams": "platform-eng,devops"},
	}

	mock := tr.ToMockRequest()
	assert.Equal(t, "GET", mock.Method)
	assert.Equal(t, []string{"platform-eng,devops"}, mock.Headers["X-Teams"])
}
