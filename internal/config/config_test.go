package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RequestDelay != 1*time.Second {
		t.Errorf("Expected request delay 1s, got %v", cfg.RequestDelay)
	}

	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.RequestTimeout)
	}

	if cfg.Session.Store != "sqlite" {
		t.Errorf("Expected sqlite store, got %s", cfg.Session.Store)
	}

	if cfg.Session.DatabasePath != "./sessions.db" {
		t.Errorf("Expected database path './sessions.db', got %s", cfg.Session.DatabasePath)
	}

	if cfg.Robots.CacheTTL != time.Hour {
		t.Errorf("Expected robots cache TTL 1h, got %v", cfg.Robots.CacheTTL)
	}

	if cfg.Sitemap.MaxDepth != 3 || cfg.Sitemap.MaxChildren != 50 || cfg.Sitemap.MaxURLs != 50000 {
		t.Errorf("Unexpected sitemap bounds: %+v", cfg.Sitemap)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *DiscoveryConfig { return DefaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*DiscoveryConfig)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(c *DiscoveryConfig) {},
			wantErr: nil,
		},
		{
			name:    "invalid timeout",
			mutate:  func(c *DiscoveryConfig) { c.RequestTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "empty database path",
			mutate:  func(c *DiscoveryConfig) { c.Session.DatabasePath = "" },
			wantErr: ErrEmptyDatabasePath,
		},
		{
			name: "redis store without address",
			mutate: func(c *DiscoveryConfig) {
				c.Session.Store = "redis"
			},
			wantErr: ErrEmptyRedisAddr,
		},
		{
			name: "redis store with address",
			mutate: func(c *DiscoveryConfig) {
				c.Session.Store = "redis"
				c.Session.RedisAddr = "localhost:6379"
			},
			wantErr: nil,
		},
		{
			name:    "unknown store",
			mutate:  func(c *DiscoveryConfig) { c.Session.Store = "etcd" },
			wantErr: ErrUnknownStore,
		},
		{
			name:    "zero sitemap depth",
			mutate:  func(c *DiscoveryConfig) { c.Sitemap.MaxDepth = 0 },
			wantErr: ErrInvalidSitemapBounds,
		},
		{
			name: "unnamed pattern",
			mutate: func(c *DiscoveryConfig) {
				c.Patterns = []PatternConfig{{Template: "/users/:id"}}
			},
			wantErr: ErrUnnamedPattern,
		},
		{
			name: "duplicate pattern name",
			mutate: func(c *DiscoveryConfig) {
				c.Patterns = []PatternConfig{
					{Name: "user", Template: "/users/:id"},
					{Name: "user", Template: "/u/:id"},
				}
			},
			wantErr: ErrDuplicatePattern,
		},
		{
			name: "default pattern needs no template",
			mutate: func(c *DiscoveryConfig) {
				c.Patterns = []PatternConfig{{Name: "fallback", Default: true}}
			},
			wantErr: nil,
		},
		{
			name: "empty template on non-default pattern",
			mutate: func(c *DiscoveryConfig) {
				c.Patterns = []PatternConfig{{Name: "broken"}}
			},
			wantErr: ErrEmptyTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
