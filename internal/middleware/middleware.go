// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package middleware wires the compiled expression core (internal/expr)
// into an http.Handler: given an already loaded configuration, it runs
// the rest of the startup sequence spec.md §4.7 describes (compile the
// expression, run every embedded self-test, hand out the request
// handler) and then, per
// request, builds a request context, evaluates the compiled program, and
// produces the allow/deny/error outcome.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/authzmw/authzmw/internal/config"
	"github.com/authzmw/authzmw/internal/expr"
	"github.com/authzmw/authzmw/internal/observability"
	"github.com/authzmw/authzmw/internal/reqctx"
	"github.com/authzmw/authzmw/pkg/errutil"
)

// RequestIDHeader is the response header carrying the correlation ID
// Handler stamps onto every request, so a denied or errored caller can
// hand it back for log lookup.
const RequestIDHeader = "X-Request-Id"

// newRequestID mints a per-request correlation ID. ulid.Make reads
// crypto/rand-seeded global entropy internally; wrapping it behind a
// package-level var keeps Handler's hot path allocation-free of a
// fresh source per call.
var newRequestID = func() string {
	return ulid.Make().String()
}

// Decision tags the outcome of one request's evaluation, mirroring the
// Ok(true)/Ok(false)/Err funnel spec.md's design notes describe. It exists
// only at this boundary, to give metrics and logging a single value to
// record against.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionDeny
	DecisionError
)

func (d Decision) label() string {
	switch d {
	case DecisionAllow:
		return observability.DecisionAllow
	case DecisionDeny:
		return observability.DecisionDeny
	default:
		return observability.DecisionError
	}
}

// Diagnostic is one human-readable startup failure line: a compile error
// or a single failing self-test.
type Diagnostic struct {
	Test    string // empty for a compile-stage diagnostic
	Message string
}

// Diagnostics is the ordered list of startup failure messages a failed
// Build produces, surfaced by the CLI's validate/serve commands.
type Diagnostics []Diagnostic

func (d Diagnostics) Error() string {
	msg := "startup diagnostics:"
	for _, line := range d {
		if line.Test != "" {
			msg += "\n  self-test " + line.Test + ": " + line.Message
		} else {
			msg += "\n  " + line.Message
		}
	}
	return msg
}

// Middleware is the compiled, self-tested authorization decision point.
// It is immutable after Build returns and safe to share across
// concurrently served requests.
type Middleware struct {
	program        *expr.Program
	denyStatusCode int
	denyBody       string
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// Options configures optional collaborators. A nil Logger or Metrics
// disables the corresponding instrumentation without requiring callers to
// build a no-op implementation.
type Options struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Build runs the C7 startup sequence on an already decoded cfg: compile
// its expression, and run every embedded self-test against a context built
// from that test's mock request. Any compile error or self-test mismatch
// aborts with a Diagnostics error naming every failure found, per
// spec.md's "fail-fast on any error" startup policy.
func Build(cfg *config.Configuration, opts Options) (*Middleware, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	program, err := expr.Compile(cfg.Expression)
	if err != nil {
		errutil.LogError(logger, "expression compilation failed", err)
		return nil, Diagnostics{{Message: err.Error()}}
	}

	var failures Diagnostics
	for _, tc := range cfg.Tests {
		ctx := reqctx.FromMock(tc.Request.ToMockRequest())
		got, evalErr := program.Eval(ctx)
		if opts.Metrics != nil {
			if evalErr != nil || got != bool(tc.Expect) {
				opts.Metrics.SelfTestTotal.WithLabelValues(observability.SelfTestFail).Inc()
			} else {
				opts.Metrics.SelfTestTotal.WithLabelValues(observability.SelfTestPass).Inc()
			}
		}
		if evalErr != nil {
			failures = append(failures, Diagnostic{Test: tc.Name, Message: evalErr.Error()})
			continue
		}
		if got != bool(tc.Expect) {
			failures = append(failures, Diagnostic{
				Test:    tc.Name,
				Message: errMismatch(bool(tc.Expect), got),
			})
		}
	}
	if len(failures) > 0 {
		for _, f := range failures {
			logger.Error("self-test failed", "test", f.Test, "reason", f.Message)
		}
		return nil, failures
	}

	denyStatus := int(cfg.DenyStatusCode)
	logger.Info("authorization middleware compiled",
		"self_tests", len(cfg.Tests),
		"deny_status_code", denyStatus,
	)

	return &Middleware{
		program:        program,
		denyStatusCode: denyStatus,
		denyBody:       cfg.DenyBody,
		logger:         logger,
		metrics:        opts.Metrics,
	}, nil
}

func errMismatch(want, got bool) string {
	if want {
		return "expected true, got false"
	}
	return "expected false, got true"
}

// Handler returns an http.Handler that, per request, builds a
// RequestContext from r, evaluates the compiled program, and either
// passes the request to next (Allow), writes the configured deny
// response (Deny), or writes a 500 Internal Server Error (Error) — this
// repository's single fail-closed funnel.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := newRequestID()
		w.Header().Set(RequestIDHeader, requestID)
		ctx := reqctx.FromHTTPRequest(r)

		allowed, err := m.program.Eval(ctx)
		duration := time.Since(start)

		decision := DecisionAllow
		switch {
		case err != nil:
			decision = DecisionError
		case !allowed:
			decision = DecisionDeny
		}

		if m.metrics != nil {
			m.metrics.EvaluationDuration.Observe(duration.Seconds())
			m.metrics.RequestsTotal.WithLabelValues(decision.label()).Inc()
		}
		m.logger.Debug("authorization decision",
			"request_id", requestID,
			"method", r.Method, "path", r.URL.Path,
			"decision", decision.label(), "duration", duration,
		)

		switch decision {
		case DecisionAllow:
			next.ServeHTTP(w, r)
		case DecisionDeny:
			w.WriteHeader(m.denyStatusCode)
			_, _ = w.Write([]byte(m.denyBody))
		default:
			errutil.LogError(m.logger, "evaluation error", oops.Code("EVAL_ERROR").
				In("middleware.handler").With("request_id", requestID).Wrapf(err, "evaluating request"))
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("Internal Server Error"))
		}
	})
}
