package config

import "errors"

var (
	// ErrConfigFileNotFound is returned when config file is not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrClientIDRequired is returned when the Wunderlist client ID is not provided
	ErrClientIDRequired = errors.New("wunderlist.client_id is required")

	// ErrClientSecretRequired is returned when the Wunderlist client secret is not provided
	ErrClientSecretRequired = errors.New("wunderlist.client_secret is required")

	// ErrCallbackURLRequired is returned when neither callback_url nor server.base_url is set
	ErrCallbackURLRequired = errors.New("wunderlist.callback_url or server.base_url is required")

	// ErrInvalidURL is returned when a configured URL is not absolute
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidPort is returned when the server port is out of range
	ErrInvalidPort = errors.New("server.port must be between 0 and 65535")

	// ErrInvalidStoreType is returned for an unknown store.type
	ErrInvalidStoreType = errors.New("invalid store.type (allowed: memory, leveldb, redis)")

	// ErrRedisAddrRequired is returned when the redis store has no address
	ErrRedisAddrRequired = errors.New("store.redis.addr is required when store.type is redis")

	// ErrInvalidRateLimit is returned for a bad server.login_rate_limit
	ErrInvalidRateLimit = errors.New("invalid server.login_rate_limit")

	// ErrInvalidStateTTL is returned when store.state_ttl cannot be parsed
	ErrInvalidStateTTL = errors.New("invalid store.state_ttl")
)
