package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ideamans/wunderlistauth/pkg/accounts"
	"github.com/ideamans/wunderlistauth/pkg/config"
	"github.com/ideamans/wunderlistauth/pkg/kvs"
	"github.com/ideamans/wunderlistauth/pkg/logging"
	"github.com/ideamans/wunderlistauth/pkg/ratelimit"
	"github.com/ideamans/wunderlistauth/pkg/strategy"
)

// RunConfig represents the configuration for running the server
type RunConfig struct {
	ConfigPath string
	Host       string // From command-line flag
	Port       int    // From command-line flag
	HostSet    bool   // Whether host was explicitly set via flag
	PortSet    bool   // Whether port was explicitly set via flag
	Logger     logging.Logger
	Version    string
}

// Run loads the configuration, starts the HTTP server and the config watcher,
// and blocks until ctx is cancelled or SIGINT/SIGTERM is received.
func Run(ctx context.Context, rc RunConfig) error {
	logger := rc.Logger
	if logger == nil {
		logger = logging.NewConsole("main", logging.LevelInfo, true)
	}

	logger.Info("Starting wunderlist-login", "version", rc.Version)

	loader := config.NewFileLoader(rc.ConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if rc.HostSet {
		cfg.Server.Host = rc.Host
	}
	if rc.PortSet {
		cfg.Server.Port = rc.Port
	}

	stateTTL, err := cfg.Store.GetStateTTL()
	if err != nil {
		return err
	}

	states, err := kvs.New(kvs.WithNamespace(cfg.Store.Config, "state"))
	if err != nil {
		return fmt.Errorf("failed to create state store: %w", err)
	}
	defer states.Close()

	accountKV, err := kvs.New(kvs.WithNamespace(cfg.Store.Config, "accounts"))
	if err != nil {
		return fmt.Errorf("failed to create account store: %w", err)
	}
	defer accountKV.Close()

	accountStore := accounts.NewStore(accountKV)

	var limiter *ratelimit.Limiter
	if rl := cfg.Server.LoginRateLimit; rl.Requests > 0 {
		interval, err := rl.GetInterval()
		if err != nil {
			return err
		}
		limitKV, err := kvs.New(kvs.WithNamespace(cfg.Store.Config, "ratelimit"))
		if err != nil {
			return fmt.Errorf("failed to create rate limit store: %w", err)
		}
		defer limitKV.Close()
		limiter = ratelimit.NewLimiter(rl.Requests, interval, limitKV)
		logger.Info("Login rate limit enabled", "requests", rl.Requests, "interval", interval)
	}

	registry := strategy.NewRegistry()

	reloader := NewStrategyReloader(registry, accountStore.Verify, logger)
	if err := reloader.Reload(cfg); err != nil {
		return err
	}

	srv, err := New(Config{
		Registry: registry,
		States:   states,
		Accounts: accountStore,
		StateTTL: stateTTL,
		Logger:   logger,

		LoginLimiter: limiter,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	watcher, err := config.NewWatcher(config.WatcherConfig{
		Loader:     loader,
		ConfigPath: rc.ConfigPath,
		Initial:    cfg,
		Reloader:   reloader,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := watcher.Watch(runCtx); err != nil {
			logger.Error("Config watcher error", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", httpServer.Addr, "callback_url", cfg.CallbackURL())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case <-runCtx.Done():
		logger.Info("Shutdown signal received, stopping server...")
		srv.SetDraining()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		err = <-errChan
	case err = <-errChan:
		cancel()
	}

	<-watchDone
	if err != nil {
		logger.Error("Server stopped with error", "error", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}
