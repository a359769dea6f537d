package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  port: 8080
  base_url: "https://login.example.com/"
  login_rate_limit:
    requests: 20
    interval: 30s

wunderlist:
  client_id: "client-1"
  client_secret: "${TEST_WUNDERLIST_SECRET:-fallback-secret}"
  scopes: ["read"]

store:
  type: redis
  namespace: login
  state_ttl: 5m
  redis:
    addr: "${TEST_REDIS_ADDR:-localhost:6379}"

logging:
  level: debug
  file:
    path: /tmp/login.log
    max_backups: 7
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileLoader_LoadYAML(t *testing.T) {
	t.Setenv("TEST_WUNDERLIST_SECRET", "from-env")

	cfg, err := NewFileLoader(writeConfig(t, "config.yaml", validYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "client-1", cfg.Wunderlist.ClientID)
	assert.Equal(t, "from-env", cfg.Wunderlist.ClientSecret)
	assert.Equal(t, []string{"read"}, cfg.Wunderlist.Scopes)
	assert.Equal(t, "https://login.example.com/auth/wunderlist/callback", cfg.CallbackURL())
	assert.Equal(t, 20, cfg.Server.LoginRateLimit.Requests)
	interval, err := cfg.Server.LoginRateLimit.GetInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, interval)

	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, "login", cfg.Store.Namespace)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	ttl, err := cfg.Store.GetStateTTL()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)

	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NotNil(t, cfg.Logging.File)
	assert.Equal(t, "/tmp/login.log", cfg.Logging.File.Path)
	assert.Equal(t, 7, cfg.Logging.File.MaxBackups)
}

func TestFileLoader_LoadJSON(t *testing.T) {
	content := `{
  "wunderlist": {
    "client_id": "client-1",
    "client_secret": "secret",
    "callback_url": "http://localhost:4180/auth/wunderlist/callback"
  },
  "store": {"type": "leveldb", "leveldb": {"path": "/var/lib/login"}}
}`

	cfg, err := NewFileLoader(writeConfig(t, "config.json", content)).Load()
	require.NoError(t, err)

	assert.Equal(t, 4180, cfg.Server.Port)
	assert.Equal(t, "leveldb", cfg.Store.Type)
	assert.Equal(t, "/var/lib/login", cfg.Store.LevelDB.Path)
	assert.Equal(t, "wunderlist-login", cfg.Store.Namespace)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:4180/auth/wunderlist/callback", cfg.CallbackURL())
}

func TestFileLoader_Defaults(t *testing.T) {
	content := `
wunderlist:
  client_id: id
  client_secret: secret
  callback_url: http://localhost/cb
`
	cfg, err := NewFileLoader(writeConfig(t, "config.yml", content)).Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4180, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Type)
	ttl, err := cfg.Store.GetStateTTL()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)
	assert.Nil(t, cfg.Logging.File)
}

func TestFileLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
		assert.True(t, errors.Is(err, ErrConfigFileNotFound))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "config.toml", "a = 1")).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config file format")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "config.yaml", "wunderlist: [")).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "config.json", "{")).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse JSON")
	})

	t.Run("validation", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "config.yaml", "server:\n  port: 80\n")).Load()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClientIDRequired))
		assert.True(t, errors.Is(err, ErrClientSecretRequired))
		assert.True(t, errors.Is(err, ErrCallbackURLRequired))
	})
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Host: "0.0.0.0", Port: 4180},
			Wunderlist: WunderlistConfig{
				ClientID:     "id",
				ClientSecret: "secret",
				CallbackURL:  "http://localhost:4180/auth/wunderlist/callback",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "relative token url",
			mutate:  func(c *Config) { c.Wunderlist.TokenURL = "/oauth/access_token" },
			wantErr: ErrInvalidURL,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store.Type = "etcd" },
			wantErr: ErrInvalidStoreType,
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Store.Type = "redis" },
			wantErr: ErrRedisAddrRequired,
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Server.LoginRateLimit.Requests = -1 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "bad rate limit interval",
			mutate:  func(c *Config) { c.Server.LoginRateLimit.Interval = "0s" },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "bad state ttl",
			mutate:  func(c *Config) { c.Store.StateTTL = "soon" },
			wantErr: ErrInvalidStateTTL,
		},
		{
			name: "callback from base url",
			mutate: func(c *Config) {
				c.Wunderlist.CallbackURL = ""
				c.Server.BaseURL = "https://login.example.com"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidationError(t *testing.T) {
	verr := NewValidationError()
	assert.NoError(t, verr.ErrorOrNil())

	verr.Add(nil)
	assert.False(t, verr.HasErrors())

	verr.Add(ErrClientIDRequired)
	assert.Equal(t, ErrClientIDRequired.Error(), verr.Error())

	verr.Add(ErrClientSecretRequired)
	assert.Contains(t, verr.Error(), "found 2 validation errors")
	assert.Contains(t, verr.Error(), "1. "+ErrClientIDRequired.Error())
	assert.Contains(t, verr.Error(), "2. "+ErrClientSecretRequired.Error())
	assert.True(t, errors.Is(verr, ErrClientSecretRequired))
	assert.False(t, errors.Is(verr, ErrInvalidPort))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_SET", "value")
	t.Setenv("TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_SET}", "value"},
		{"${TEST_SET:-other}", "value"},
		{"${TEST_EMPTY:-fallback}", "fallback"},
		{"${TEST_UNSET_VARIABLE}", ""},
		{"${TEST_UNSET_VARIABLE:-localhost:6379}", "localhost:6379"},
		{"a-${TEST_SET}-b", "a-value-b"},
		{"$TEST_SET", "$TEST_SET"},
		{"${1INVALID}", "${1INVALID}"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandEnv(tt.input))
		})
	}
}
