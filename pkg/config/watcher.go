package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ideamans/wunderlistauth/pkg/logging"
)

// Reloader receives a configuration that differs from the last one applied
type Reloader interface {
	Reload(cfg *Config) error
}

// ReloaderFunc adapts a function to Reloader
type ReloaderFunc func(cfg *Config) error

func (f ReloaderFunc) Reload(cfg *Config) error { return f(cfg) }

// WatcherConfig contains the configuration for creating a Watcher
type WatcherConfig struct {
	Loader       Loader
	ConfigPath   string
	Initial      *Config // configuration currently applied
	Reloader     Reloader
	Logger       logging.Logger
	Debounce     time.Duration // default 100ms
	ReloadNotify chan struct{} // Optional: notified after each reload attempt
}

// Watcher reloads the configuration file when it changes on disk and hands
// changed configurations to a Reloader. Files that fail to load or validate
// are logged and the previous configuration stays in effect.
type Watcher struct {
	loader       Loader
	reloader     Reloader
	path         string
	lastHash     string
	debounce     time.Duration
	logger       logging.Logger
	reloadNotify chan struct{}
}

// NewWatcher creates a Watcher. Call Watch to start it.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Loader == nil {
		return nil, errors.New("loader is required")
	}
	if cfg.Reloader == nil {
		return nil, errors.New("reloader is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.ConfigPath == "" {
		return nil, errors.New("config path is required")
	}

	absPath, err := filepath.Abs(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	var hash string
	if cfg.Initial != nil {
		if hash, err = configHash(cfg.Initial); err != nil {
			return nil, fmt.Errorf("failed to calculate initial config hash: %w", err)
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &Watcher{
		loader:       cfg.Loader,
		reloader:     cfg.Reloader,
		path:         absPath,
		lastHash:     hash,
		debounce:     debounce,
		logger:       cfg.Logger.WithModule("watcher"),
		reloadNotify: cfg.ReloadNotify,
	}, nil
}

// Watch blocks until ctx is cancelled. The directory holding the file is
// watched so editors that replace the file on save are handled.
func (w *Watcher) Watch(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	w.logger.Info("Watching configuration file", "path", w.path)

	// Events are only read by this goroutine, and checkAndReload runs here
	// too, so lastHash needs no lock.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Configuration watch stopped")
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("Config file changed", "event", event.Op.String())
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			w.checkAndReload()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) checkAndReload() {
	if w.reloadNotify != nil {
		defer func() {
			select {
			case w.reloadNotify <- struct{}{}:
			default:
			}
		}()
	}

	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Failed to load configuration", "error", err)
		return
	}

	hash, err := configHash(cfg)
	if err != nil {
		w.logger.Error("Failed to calculate config hash", "error", err)
		return
	}
	if hash == w.lastHash {
		w.logger.Debug("Configuration unchanged")
		return
	}

	if err := w.reloader.Reload(cfg); err != nil {
		w.logger.Error("Failed to apply configuration", "error", err)
		return
	}

	w.lastHash = hash
	w.logger.Info("Configuration reloaded successfully")
}

func configHash(cfg *Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
