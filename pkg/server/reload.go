package server

import (
	"fmt"

	"github.com/ideamans/wunderlistauth/pkg/config"
	"github.com/ideamans/wunderlistauth/pkg/logging"
	"github.com/ideamans/wunderlistauth/pkg/strategy"
	"github.com/ideamans/wunderlistauth/pkg/strategy/wunderlist"
)

// BuildStrategy creates the Wunderlist strategy described by cfg
func BuildStrategy(cfg *config.Config, verify wunderlist.VerifyFunc, options ...wunderlist.Option) (*wunderlist.Strategy, error) {
	s, err := wunderlist.New(wunderlist.Options{
		ClientID:         cfg.Wunderlist.ClientID,
		ClientSecret:     cfg.Wunderlist.ClientSecret,
		CallbackURL:      cfg.CallbackURL(),
		AuthorizationURL: cfg.Wunderlist.AuthorizationURL,
		TokenURL:         cfg.Wunderlist.TokenURL,
		UserProfileURL:   cfg.Wunderlist.UserProfileURL,
		Scopes:           cfg.Wunderlist.Scopes,
	}, verify, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create wunderlist strategy: %w", err)
	}
	return s, nil
}

// StrategyReloader rebuilds the strategy when the configuration changes and
// swaps it into the registry. Requests already running keep the strategy
// they started with.
type StrategyReloader struct {
	registry *strategy.Registry
	verify   wunderlist.VerifyFunc
	options  []wunderlist.Option
	logger   logging.Logger
}

var _ config.Reloader = (*StrategyReloader)(nil)

// NewStrategyReloader creates a StrategyReloader
func NewStrategyReloader(registry *strategy.Registry, verify wunderlist.VerifyFunc, logger logging.Logger, options ...wunderlist.Option) *StrategyReloader {
	return &StrategyReloader{
		registry: registry,
		verify:   verify,
		options:  options,
		logger:   logger.WithModule("reloader"),
	}
}

// Reload implements config.Reloader. Server, store and logging settings
// take effect only after a restart.
func (r *StrategyReloader) Reload(cfg *config.Config) error {
	s, err := BuildStrategy(cfg, r.verify, r.options...)
	if err != nil {
		return err
	}
	r.registry.Use(s)
	r.logger.Info("Strategy reloaded", "strategy", s.Name(), "callback_url", cfg.CallbackURL())
	return nil
}
