// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package reqctx builds the immutable, case-insensitive request view the
// expression evaluator runs against, from either a live *http.Request or a
// self-test mock request embedded in configuration.
package reqctx

import (
	"net/http"
	"strings"
)

// RequestContext is the per-request record passed to a compiled program's
// Eval. It is built once per request and discarded once the response is
// produced; nothing in it is mutated after construction.
type RequestContext struct {
	method string
	path   string
	host   string

	first map[string]string
	all   map[string][]string
}

// FromHTTPRequest builds a RequestContext from a live request. Host is
// taken from r.Host, which Go's net/http populates from the authority of
// an absolute-form request target when there is one, from the Host
// header otherwise, and from the :authority pseudo-header for HTTP/2 —
// a single, documented source, per the host-name-source choice this
// middleware commits to.
func FromHTTPRequest(r *http.Request) *RequestContext {
	path := r.URL.Path

	rc := &RequestContext{
		method: r.Method,
		path:   path,
		host:   r.Host,
		first:  make(map[string]string, len(r.Header)),
		all:    make(map[string][]string, len(r.Header)),
	}
	for name, values := range r.Header {
		rc.addHeader(name, values)
	}
	return rc
}

// MockRequest is the shape of a self-test's embedded request, decoded
// from configuration. Headers map a header name to its values in order;
// the configuration's headers dialect (an object of strings, or "")
// supplies exactly one value per name.
type MockRequest struct {
	Method  string
	Path    string
	Host    string
	Headers map[string][]string
}

// FromMock builds a RequestContext from a self-test's mock request.
func FromMock(m MockRequest) *RequestContext {
	rc := &RequestContext{
		method: m.Method,
		path:   m.Path,
		host:   m.Host,
		first:  make(map[string]string, len(m.Headers)),
		all:    make(map[string][]string, len(m.Headers)),
	}
	for name, values := range m.Headers {
		rc.addHeader(name, values)
	}
	return rc
}

func (rc *RequestContext) addHeader(name string, values []string) {
	key := strings.ToLower(name)
	if _, exists := rc.first[key]; !exists && len(values) > 0 {
		rc.first[key] = values[0]
	}
	rc.all[key] = append(rc.all[key], values...)
}

func (rc *RequestContext) Method() string { return rc.method }
func (rc *RequestContext) Path() string   { return rc.path }
func (rc *RequestContext) Host() string   { return rc.host }

// Header returns the first recorded value for name, or "" if absent.
func (rc *RequestContext) Header(name string) string {
	return rc.first[strings.ToLower(name)]
}

// HeaderValues returns every recorded value for name, in the order
// observed, or nil if absent.
func (rc *RequestContext) HeaderValues(name string) []string {
	return rc.all[strings.ToLower(name)]
}

// HeaderList takes the first value for name, splits it on commas, trims
// whitespace from each piece, and drops empty pieces. It returns nil if
// the header is absent or its first value is empty.
func (rc *RequestContext) HeaderList(name string) []string {
	first := rc.Header(name)
	if first == "" {
		return nil
	}

	parts := strings.Split(first, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
