// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/authzmw/authzmw/internal/config"
	"github.com/authzmw/authzmw/internal/logging"
	"github.com/authzmw/authzmw/internal/middleware"
	"github.com/authzmw/authzmw/internal/observability"
	"github.com/authzmw/authzmw/pkg/errutil"
)

// serveOptions holds flags specific to the serve subcommand.
type serveOptions struct {
	listen        string
	upstream      string
	metricsListen string
	logFormat     string
}

const (
	defaultListenAddr        = ":8080"
	defaultMetricsListenAddr = "127.0.0.1:9100"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiled expression as a reverse-proxy-fronting HTTP middleware",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, opts, nil)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", defaultListenAddr, "address the middleware listens on")
	cmd.Flags().StringVar(&opts.upstream, "upstream", "", "upstream URL to reverse-proxy allowed requests to (required)")
	cmd.Flags().StringVar(&opts.metricsListen, "metrics-listen", defaultMetricsListenAddr, "observability server address (empty disables it)")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "json", "log format (json or text)")

	return cmd
}

// serveDeps allows tests to substitute collaborators and avoid binding
// real listeners.
type serveDeps struct {
	LoadConfigBytes func(path string) ([]byte, error)
}

func runServeWithDeps(ctx context.Context, cmd *cobra.Command, opts *serveOptions, deps *serveDeps) error {
	if deps == nil {
		deps = &serveDeps{}
	}
	if deps.LoadConfigBytes == nil {
		deps.LoadConfigBytes = loadConfigBytes
	}
	if opts.upstream == "" {
		return fmt.Errorf("--upstream is required")
	}
	upstreamURL, err := url.Parse(opts.upstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream URL: %w", err)
	}

	logger := logging.Setup("authz-middleware", version, opts.logFormat, cmd.ErrOrStderr())

	raw, err := deps.LoadConfigBytes(configFile)
	if err != nil {
		errutil.LogError(logger, "failed to load configuration", err)
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		errutil.LogError(logger, "failed to parse configuration", err)
		return fmt.Errorf("parse configuration: %w", err)
	}

	var ready atomic.Bool
	var obsServer *observability.Server
	if opts.metricsListen != "" {
		obsServer = observability.NewServer(opts.metricsListen, func() bool { return ready.Load() })
	}

	var metrics *observability.Metrics
	if obsServer != nil {
		metrics = obsServer.Metrics()
	}

	mw, err := middleware.Build(cfg, middleware.Options{Logger: logger, Metrics: metrics})
	if err != nil {
		errutil.LogError(logger, "startup sequence failed", err)
		return fmt.Errorf("build middleware: %w", err)
	}

	if err := probeUpstream(ctx, upstreamURL.String()); err != nil {
		logger.Warn("upstream did not become reachable before startup", "upstream", opts.upstream, "error", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(upstreamURL)
	handler := mw.Handler(proxy)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsErrCh <-chan error
	if obsServer != nil {
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return fmt.Errorf("start observability server: %w", err)
		}
		go monitorServeErrors(ctx, cancel, obsErrCh, "observability")
	}

	httpServer := &http.Server{
		Addr:              opts.listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		defer close(serveErrCh)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			serveErrCh <- serveErr
		}
	}()
	go monitorServeErrors(ctx, cancel, serveErrCh, "listener")

	ready.Store(true)
	logger.Info("authorization middleware serving",
		"listen", opts.listen, "upstream", opts.upstream,
		"version", version, "commit", commit, "date", date,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("shutting down due to server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "listener shutdown error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "observability shutdown error", err)
		}
	}

	return nil
}

// probeUpstream checks the upstream is reachable before the proxy starts
// accepting traffic, retrying with exponential backoff. A failure here is
// logged but non-fatal: the upstream may come up after the middleware
// does, and the reverse proxy will simply 502 until it does.
func probeUpstream(ctx context.Context, upstream string) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, upstream, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		_ = resp.Body.Close()
		return nil
	})
}

// monitorServeErrors cancels ctx if name's error channel ever delivers a
// non-nil error, mirroring the teacher's monitorServerErrors idiom for
// turning a background listener failure into a shutdown trigger.
func monitorServeErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			errutil.LogError(slog.Default(), name+" server error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
