// Package strategy defines the contract between authentication strategies
// and the application that hosts them.
package strategy

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/oauth2"
)

var (
	// ErrStrategyNotFound is returned when no strategy is registered under a name
	ErrStrategyNotFound = errors.New("authentication strategy not found")

	// ErrNotAuthenticated is returned when the verify callback rejects the user
	ErrNotAuthenticated = errors.New("user was not authenticated")
)

// Strategy is a pluggable authentication method identified by name.
type Strategy interface {
	// Name returns the name the strategy is dispatched under.
	Name() string

	// AuthCodeURL returns the provider URL the user is redirected to.
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string

	// Authenticate completes the login for an authorization code.
	Authenticate(ctx context.Context, code string) (*Result, error)
}

// Result is the outcome of a successful authentication
type Result struct {
	User    any           // Value returned by the verify callback
	Profile any           // Normalized provider profile
	Token   *oauth2.Token // Token obtained from the provider
}

// StatusError is a failure that carries an HTTP status code.
type StatusError interface {
	error
	Status() int
}

// Registry holds strategies by name. It is safe for concurrent use so a host
// can replace a strategy while requests are in flight.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Use registers a strategy, replacing any strategy with the same name
func (r *Registry) Use(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.strategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, name)
	}
	return s, nil
}

// Names returns the registered strategy names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateState generates a random state string for CSRF protection
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
