// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_ContainsExpectedFields(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	out := string(data)
	for _, want := range []string{"expression", "denyStatusCode", "denyBody", "tests", "required"} {
		assert.Contains(t, out, want)
	}
}

func TestValidateSchema_AcceptsMinimalDocument(t *testing.T) {
	err := ValidateSchema([]byte(`{"expression": "method == \"GET\""}`))
	assert.NoError(t, err)
}

func TestValidateSchema_AcceptsFullDocument(t *testing.T) {
	doc := `{
		"expression": "method == \"GET\" && path starts_with \"/api\"",
		"denyStatusCode": 403,
		"denyBody": "nope",
		"tests": [
			{"name": "ok", "request": {"method": "GET", "path": "/api/x"}, "expect": true}
		]
	}`
	err := ValidateSchema([]byte(doc))
	assert.NoError(t, err)
}

func TestValidateSchema_RejectsMissingExpression(t *testing.T) {
	err := ValidateSchema([]byte(`{"denyBody": "nope"}`))
	assert.Error(t, err)
}

func TestValidateSchema_RejectsWrongType(t *testing.T) {
	err := ValidateSchema([]byte(`{"expression": 5}`))
	assert.Error(t, err)
}

func TestValidateSchema_RejectsMalformedJSON(t *testing.T) {
	err := ValidateSchema([]byte(`not json`))
	assert.Error(t, err)
}

func TestGenerateSchema_IsStableAcrossCalls(t *testing.T) {
	first, err := GenerateSchema()
	require.NoError(t, err)
	second, err := GenerateSchema()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
