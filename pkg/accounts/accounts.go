// Package accounts links provider profiles to local accounts.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ideamans/wunderlistauth/pkg/kvs"
	"github.com/ideamans/wunderlistauth/pkg/strategy/wunderlist"
)

// ErrAccountNotFound is returned when no account exists for an ID
var ErrAccountNotFound = errors.New("account not found")

// Account is a local user linked to a provider identity
type Account struct {
	ID             string    `json:"id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastLoginAt    time.Time `json:"last_login_at"`
}

// Store keeps accounts in a kvs.Store under two key families:
//
//	account:<id>                     JSON-encoded Account
//	link:<provider>:<provider id>    account ID
type Store struct {
	kv  kvs.Store
	now func() time.Time

	// Serializes FindOrCreate within this process. Separate processes
	// sharing a Redis backend may still race on a first login.
	mu sync.Mutex
}

// NewStore creates an account store backed by kv
func NewStore(kv kvs.Store) *Store {
	return &Store{
		kv:  kv,
		now: time.Now,
	}
}

func accountKey(id string) string {
	return "account:" + id
}

func linkKey(provider, providerUserID string) string {
	return "link:" + provider + ":" + providerUserID
}

// Get returns the account with the given ID
func (s *Store) Get(ctx context.Context, id string) (*Account, error) {
	data, err := s.kv.Get(ctx, accountKey(id))
	if err != nil {
		if errors.Is(err, kvs.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", id, err)
	}
	return &account, nil
}

// FindOrCreate returns the account linked to profile, creating it on first
// login. Display name and email are refreshed from the profile every time.
func (s *Store) FindOrCreate(ctx context.Context, profile *wunderlist.Profile) (*Account, error) {
	if profile == nil || profile.ID == "" {
		return nil, errors.New("profile without an ID cannot be linked")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	link := linkKey(profile.Provider, profile.ID)

	var account *Account
	id, err := s.kv.Get(ctx, link)
	switch {
	case err == nil:
		account, err = s.Get(ctx, string(id))
		if err != nil && !errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
	case !errors.Is(err, kvs.ErrNotFound):
		return nil, fmt.Errorf("failed to load account link: %w", err)
	}

	if account == nil {
		account = &Account{
			ID:             uuid.NewString(),
			Provider:       profile.Provider,
			ProviderUserID: profile.ID,
			CreatedAt:      now,
		}
	}

	account.DisplayName = profile.DisplayName
	account.Email = ""
	if len(profile.Emails) > 0 {
		account.Email = profile.Emails[0].Value
	}
	account.LastLoginAt = now

	if err := s.save(ctx, account); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, link, []byte(account.ID), 0); err != nil {
		return nil, fmt.Errorf("failed to save account link: %w", err)
	}

	return account, nil
}

func (s *Store) save(ctx context.Context, account *Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	if err := s.kv.Set(ctx, accountKey(account.ID), data, 0); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Verify links the profile to an account. It has the shape of
// wunderlist.VerifyFunc, so a Store can be passed straight to wunderlist.New.
func (s *Store) Verify(ctx context.Context, accessToken string, profile *wunderlist.Profile) (any, error) {
	account, err := s.FindOrCreate(ctx, profile)
	if err != nil {
		return nil, err
	}
	return account, nil
}
