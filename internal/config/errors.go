package config

import "errors"

var (
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrEmptyDatabasePath is returned when the sqlite store has no database path
	ErrEmptyDatabasePath = errors.New("database_path cannot be empty")
	// ErrEmptyRedisAddr is returned when the redis store has no address
	ErrEmptyRedisAddr = errors.New("redis_addr cannot be empty")
	// ErrUnknownStore is returned for a session store other than sqlite or redis
	ErrUnknownStore = errors.New("session store must be sqlite or redis")
	// ErrInvalidSitemapBounds is returned when a sitemap traversal bound is not positive
	ErrInvalidSitemapBounds = errors.New("sitemap bounds must be greater than 0")
	// ErrUnnamedPattern is returned when a pattern has no name
	ErrUnnamedPattern = errors.New("pattern name cannot be empty")
	// ErrDuplicatePattern is returned when two patterns share a name
	ErrDuplicatePattern = errors.New("duplicate pattern name")
	// ErrEmptyTemplate is returned when a non-default pattern has no template
	ErrEmptyTemplate = errors.New("pattern template cannot be empty")
)
