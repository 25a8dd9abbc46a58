package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/okian/neurolens/internal/adapters/http/api"
	"github.com/okian/neurolens/internal/adapters/http/swagger"
	"github.com/okian/neurolens/internal/analysisstub"
	"github.com/okian/neurolens/internal/config"
	"github.com/okian/neurolens/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd(f *rootFlags) *cobra.Command {
	var withStub bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session control API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), f.cfg, withStub)
		},
	}
	cmd.Flags().BoolVar(&withStub, "stub", false, "also serve the analysis stub and point sessions at it")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, withStub bool) error {
	log := logger.Get()
	mux := http.NewServeMux()
	if withStub {
		base, err := loopbackURL(cfg.Addr)
		if err != nil {
			return err
		}
		analysisstub.NewServer().Register(mux)
		cfg.AnalysisEndpoint = base
	}

	svc, ep, err := newService(cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	api.NewServer(svc, svc).Register(mux)
	swagger.Register(mux)

	log.Info(ctx, "analysis endpoints resolved",
		logger.String("analyze", ep.AnalyzeSocket),
		logger.String("audio", ep.AudioSocket),
		logger.String("batch", ep.Batch),
	)
	srv := newHTTPServer(cfg.Addr, mux)
	if withStub {
		streaming(srv)
	}
	return serveHTTP(ctx, srv, svc.Stop)
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// streaming lifts the per-request deadlines so telemetry sockets can outlive them.
func streaming(srv *http.Server) {
	srv.ReadTimeout = 0
	srv.WriteTimeout = 0
}

// serveHTTP runs srv until ctx is done or the listener fails, then shuts it
// down and calls onStop.
func serveHTTP(ctx context.Context, srv *http.Server, onStop func()) error {
	log := logger.Get()
	ctx, cancel := signalContext(ctx)
	defer cancel()

	var g run.Group
	g.Add(func() error {
		<-ctx.Done()
		return nil
	}, func(error) {
		cancel()
	})
	g.Add(func() error {
		log.Info(ctx, "starting HTTP server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		log.Info(context.WithoutCancel(ctx), "shutting down server...")
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		if onStop != nil {
			onStop()
		}
	})

	err := g.Run()
	log.Info(context.WithoutCancel(ctx), "server stopped")
	return err
}
