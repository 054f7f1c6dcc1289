package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/engineer-profiles/internal/config"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		applog.LogError(ctx, "invalid configuration", err)
		os.Exit(1)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		applog.LogError(ctx, "startup failed", err)
		os.Exit(1)
	}
	defer a.close()

	router, _ := newRouter(a.deps)
	srv := newServer(cfg.Port, router)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	if err := run(srv, stop); err != nil {
		a.close()
		os.Exit(1)
	}
}

func newServer(port string, handler http.Handler) *http.Server {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		BaseContext:       func(net.Listener) context.Context { return base },
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
	// Shutdown does not track hijacked WebSocket connections; cancelling the
	// base context tells their handlers to close.
	srv.RegisterOnShutdown(cancel)
	return srv
}

// run serves until a signal arrives on stop or the listener fails, then
// shuts the server down gracefully.
func run(srv *http.Server, stop <-chan os.Signal) error {
	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(context.Background(), "server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		applog.LogError(context.Background(), "listen failed", err, zap.String("addr", srv.Addr))
		return err
	case <-stop:
		applog.LogInfo(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		applog.LogError(ctx, "server shutdown error", err)
		return err
	}
	applog.LogInfo(context.Background(), "server exited")
	return nil
}
