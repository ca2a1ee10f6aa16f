// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHeaders is a minimal HeaderSource stand-in for unit-testing the
// evaluator without depending on internal/reqctx.
type fakeHeaders struct {
	method  string
	path    string
	host    string
	headers map[string][]string
}

func (f fakeHeaders) Method() string { return f.method }
func (f fakeHeaders) Path() string   { return f.path }
func (f fakeHeaders) Host() string   { return f.host }

func (f fakeHeaders) Header(name string) string {
	vals := f.headers[name]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (f fakeHeaders) HeaderValues(name string) []string {
	return f.headers[name]
}

func (f fakeHeaders) HeaderList(name string) []string {
	var out []string
	for _, part := range strings.Split(f.Header(name), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mustCompile(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Compile(src)
	require.NoError(t, err, src)
	return prog
}

func TestEvalSimpleComparisonTrue(t *testing.T) {
	prog := mustCompile(t, `method == "GET"`)
	ok, err := prog.Eval(fakeHeaders{method: "GET"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalSimpleComparisonFalse(t *testing.T) {
	prog := mustCompile(t, `method == "GET"`)
	ok, err := prog.Eval(fakeHeaders{method: "POST"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalStartsWithEndsWith(t *testing.T) {
	prog := mustCompile(t, `startsWith(path, "/admin") AND endsWith(path, "/edit")`)
	ok, err := prog.Eval(fakeHeaders{path: "/admin/users/42/edit"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalHeaderFunctions(t *testing.T) {
	ctx := fakeHeaders{headers: map[string][]string{
		"X-Role": {"admin", "support"},
	}}

	prog := mustCompile(t, `header("X-Role") == "admin"`)
	ok, err := prog.Eval(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	prog = mustCompile(t, `contains(headerValues("X-Role"), "support")`)
	ok, err = prog.Eval(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalHeaderListSplitsCommaSeparated(t *testing.T) {
	ctx := fakeHeaders{headers: map[string][]string{
		"X-Scopes": {"read, write , admin"},
	}}
	prog := mustCompile(t, `contains(headerList("X-Scopes"), "write")`)
	ok, err := prog.Eval(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalAnyOfAllOf(t *testing.T) {
	ctx := fakeHeaders{headers: map[string][]string{"X-Role": {"admin"}}}

	prog := mustCompile(t, `anyOf(headerValues("X-Role"), "owner", "admin")`)
	ok, err := prog.Eval(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	prog = mustCompile(t, `allOf(headerValues("X-Role"), "admin", "owner")`)
	ok, err = prog.Eval(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalMatchesUsesPrecompiledRegex(t *testing.T) {
	prog := mustCompile(t, `matches(path, "^/users/[0-9]+$")`)

	ok, err := prog.Eval(fakeHeaders{path: "/users/42"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = prog.Eval(fakeHeaders{path: "/users/abc"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalAndShortCircuitsRightSide(t *testing.T) {
	prog := mustCompile(t, `false AND matches(path, "^/unused$")`)
	ok, err := prog.Eval(fakeHeaders{path: "anything"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalOrShortCircuitsRightSide(t *testing.T) {
	prog := mustCompile(t, `true OR matches(path, "^/unused$")`)
	ok, err := prog.Eval(fakeHeaders{path: "anything"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalNot(t *testing.T) {
	prog := mustCompile(t, `NOT (method == "GET")`)
	ok, err := prog.Eval(fakeHeaders{method: "POST"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalHostIdentifier(t *testing.T) {
	prog := mustCompile(t, `host == "api.internal.example.com"`)
	ok, err := prog.Eval(fakeHeaders{host: "api.internal.example.com"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalComplexExpression(t *testing.T) {
	src := `(method == "GET" OR method == "HEAD") AND NOT startsWith(path, "/internal")`
	prog := mustCompile(t, src)

	ok, err := prog.Eval(fakeHeaders{method: "GET", path: "/public/data"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = prog.Eval(fakeHeaders{method: "GET", path: "/internal/debug"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = prog.Eval(fakeHeaders{method: "POST", path: "/public/data"})
	require.NoError(t, err)
	assert.False(t, ok)
}
