package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ideamans/wunderlistauth/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestConfig_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wunderlist-login.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://login.example.com
wunderlist:
  client_id: client-1
  client_secret: secret
store:
  type: leveldb
`), 0644))

	var out bytes.Buffer
	require.NoError(t, testConfig(&out, path))

	assert.Contains(t, out.String(), "Listen: 0.0.0.0:4180")
	assert.Contains(t, out.String(), "Callback URL: https://login.example.com/auth/wunderlist/callback")
	assert.Contains(t, out.String(), "Store: leveldb (namespace: wunderlist-login, state TTL: 10m0s)")
	assert.Contains(t, out.String(), "Configuration is valid")
}

func TestTestConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wunderlist-login.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: etcd\n"), 0644))

	var out bytes.Buffer
	err := testConfig(&out, path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrClientIDRequired))
	assert.True(t, errors.Is(err, config.ErrInvalidStoreType))
	assert.NotContains(t, out.String(), "Configuration is valid")
}
