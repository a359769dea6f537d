package strategy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeStrategy struct {
	name string
	url  string
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return f.url + "?state=" + state
}

func (f *fakeStrategy) Authenticate(ctx context.Context, code string) (*Result, error) {
	return &Result{User: code}, nil
}

func TestRegistry_UseAndGet(t *testing.T) {
	registry := NewRegistry()
	registry.Use(&fakeStrategy{name: "wunderlist", url: "https://a.example"})

	s, err := registry.Get("wunderlist")
	require.NoError(t, err)
	assert.Equal(t, "wunderlist", s.Name())
	assert.Equal(t, "https://a.example?state=abc", s.AuthCodeURL("abc"))
}

func TestRegistry_GetUnknown(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("github")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStrategyNotFound))
	assert.Contains(t, err.Error(), "github")
}

func TestRegistry_UseReplaces(t *testing.T) {
	registry := NewRegistry()
	registry.Use(&fakeStrategy{name: "wunderlist", url: "https://old.example"})
	registry.Use(&fakeStrategy{name: "wunderlist", url: "https://new.example"})

	s, err := registry.Get("wunderlist")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example?state=x", s.AuthCodeURL("x"))
	assert.Equal(t, []string{"wunderlist"}, registry.Names())
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	assert.Empty(t, registry.Names())

	registry.Use(&fakeStrategy{name: "wunderlist"})
	registry.Use(&fakeStrategy{name: "github"})
	registry.Use(&fakeStrategy{name: "google"})

	assert.Equal(t, []string{"github", "google", "wunderlist"}, registry.Names())
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	registry := NewRegistry()
	registry.Use(&fakeStrategy{name: "wunderlist"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Use(&fakeStrategy{name: "wunderlist"})
		}()
		go func() {
			defer wg.Done()
			_, err := registry.Get("wunderlist")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestGenerateState(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := GenerateState()
		require.NoError(t, err)
		assert.Len(t, state, 43) // 32 bytes, unpadded base64url
		assert.False(t, seen[state], "state should be unique")
		seen[state] = true
	}
}
