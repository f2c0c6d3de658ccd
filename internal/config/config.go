// Package config provides configuration management for the discovery
// toolkit. It defines configuration structures and default values for
// sessions, robots resolution, sitemap discovery and URL patterns.
package config

import (
	"time"
)

// SessionConfig holds the crawl session identity and persistence settings.
type SessionConfig struct {
	UserAgent      string `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	AcceptLanguage string `mapstructure:"accept_language" yaml:"accept_language"` // Accept-Language header
	Platform       string `mapstructure:"platform" yaml:"platform"`               // Reported navigator platform
	Proxy          string `mapstructure:"proxy" yaml:"proxy"`                     // Proxy address for all fetches
	Timezone       string `mapstructure:"timezone" yaml:"timezone"`               // Emulated timezone
	Locale         string `mapstructure:"locale" yaml:"locale"`                   // Emulated locale
	ViewportWidth  int    `mapstructure:"viewport_width" yaml:"viewport_width"`   // Browser viewport width
	ViewportHeight int    `mapstructure:"viewport_height" yaml:"viewport_height"` // Browser viewport height

	// Persistence backend: "sqlite" or "redis"
	Store        string `mapstructure:"store" yaml:"store"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Path to SQLite database file
	RedisAddr    string `mapstructure:"redis_addr" yaml:"redis_addr"`       // Redis host:port
	RedisDB      int    `mapstructure:"redis_db" yaml:"redis_db"`           // Redis database number
}

// RobotsConfig holds robots.txt resolution settings.
type RobotsConfig struct {
	CacheTTL    time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`       // Rule set cache lifetime
	DefaultDeny bool          `mapstructure:"default_deny" yaml:"default_deny"` // Deny when rules cannot be resolved
}

// SitemapConfig holds sitemap discovery settings.
type SitemapConfig struct {
	CacheTTL    time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`       // Parsed result cache lifetime
	MaxDepth    int           `mapstructure:"max_depth" yaml:"max_depth"`       // Recursive index depth limit
	MaxChildren int           `mapstructure:"max_children" yaml:"max_children"` // Children followed per index
	MaxURLs     int           `mapstructure:"max_urls" yaml:"max_urls"`         // Global extracted-URL cap per parse
}

// PatternConfig declares one URL classification pattern.
type PatternConfig struct {
	Name       string         `mapstructure:"name" yaml:"name"`             // Pattern identifier
	Template   string         `mapstructure:"template" yaml:"template"`     // Path template
	Activities []string       `mapstructure:"activities" yaml:"activities"` // Crawl activities to run on match
	Priority   int            `mapstructure:"priority" yaml:"priority"`     // Higher wins on conflict
	Default    bool           `mapstructure:"default" yaml:"default"`       // Fallback when nothing matches
	Metadata   map[string]any `mapstructure:"metadata" yaml:"metadata"`     // Opaque metadata returned on match
}

// DiscoveryConfig holds the full toolkit configuration.
type DiscoveryConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	RequestDelay   time.Duration `mapstructure:"request_delay" yaml:"request_delay"`     // Minimum delay between requests per host

	Session  SessionConfig   `mapstructure:"session" yaml:"session"`
	Robots   RobotsConfig    `mapstructure:"robots" yaml:"robots"`
	Sitemap  SitemapConfig   `mapstructure:"sitemap" yaml:"sitemap"`
	Patterns []PatternConfig `mapstructure:"patterns" yaml:"patterns"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *DiscoveryConfig {
	return &DiscoveryConfig{
		RequestTimeout: 30 * time.Second,
		RequestDelay:   1 * time.Second,
		Session: SessionConfig{
			Store:        "sqlite",
			DatabasePath: "./sessions.db",
		},
		Robots: RobotsConfig{
			CacheTTL: time.Hour,
		},
		Sitemap: SitemapConfig{
			CacheTTL:    time.Hour,
			MaxDepth:    3,
			MaxChildren: 50,
			MaxURLs:     50000,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *DiscoveryConfig) Validate() error {
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	switch c.Session.Store {
	case "sqlite":
		if c.Session.DatabasePath == "" {
			return ErrEmptyDatabasePath
		}
	case "redis":
		if c.Session.RedisAddr == "" {
			return ErrEmptyRedisAddr
		}
	default:
		return ErrUnknownStore
	}

	if c.Sitemap.MaxDepth <= 0 || c.Sitemap.MaxChildren <= 0 || c.Sitemap.MaxURLs <= 0 {
		return ErrInvalidSitemapBounds
	}

	seen := make(map[string]bool, len(c.Patterns))
	for _, p := range c.Patterns {
		if p.Name == "" {
			return ErrUnnamedPattern
		}
		if seen[p.Name] {
			return ErrDuplicatePattern
		}
		seen[p.Name] = true
		if p.Template == "" && !p.Default {
			return ErrEmptyTemplate
		}
	}

	return nil
}
