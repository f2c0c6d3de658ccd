// Package robots fetches and evaluates robots.txt policies. The resolver
// answers allow/deny and crawl-delay queries per domain, caching parsed
// rule sets for a TTL window. IsAllowed never fails: any fetch or parse
// problem degrades to the configured default policy, with the Decision
// source reporting how the answer was derived.
package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hikarino/webscout/internal/fetch"
)

// Decision sources.
const (
	SourceRobotsTxt       = "robots-txt"
	SourceNoRobotsTxt     = "no-robots-txt"
	SourceNoMatchingAgent = "no-matching-agent"
	SourceError           = "error"
)

// Decision is the outcome of a policy query.
type Decision struct {
	Allowed     bool
	CrawlDelay  time.Duration
	Source      string
	MatchedRule string
}

// FetchFunc bypasses the default client for robots.txt retrieval; used
// for tests and for routing fetches through session-managed state.
type FetchFunc func(ctx context.Context, robotsURL string) (string, error)

// Config configures a Resolver.
type Config struct {
	Client    fetch.Client
	Fetch     FetchFunc     // optional override of Client
	UserAgent string        // agent token matched against User-agent groups
	CacheTTL  time.Duration // default 1h
	// DefaultDeny flips the policy applied when no rules can be resolved.
	// The zero value keeps the conventional default-allow behavior.
	DefaultDeny bool
	Logger      *slog.Logger
}

// Stats counts resolver activity so degraded resolution is observable.
type Stats struct {
	Fetches    int64
	CacheHits  int64
	FetchFails int64
}

// Resolver answers robots.txt queries with per-domain caching. Safe for
// concurrent use.
type Resolver struct {
	client      fetch.Client
	fetchFn     FetchFunc
	agent       string
	ttl         time.Duration
	defaultDeny bool
	log         *slog.Logger

	mu    sync.RWMutex
	cache map[string]*cacheEntry
	stats Stats
}

// cacheEntry holds a parsed policy, or nil when the last fetch failed;
// the nil entry is served until TTL expiry so unreachable hosts are not
// hammered.
type cacheEntry struct {
	fetched time.Time
	pol     policy
	source  string
}

// NewResolver creates a resolver from configuration.
func NewResolver(cfg Config) *Resolver {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = "webscout"
	}
	return &Resolver{
		client:      cfg.Client,
		fetchFn:     cfg.Fetch,
		agent:       agent,
		ttl:         ttl,
		defaultDeny: cfg.DefaultDeny,
		log:         log,
		cache:       make(map[string]*cacheEntry),
	}
}

// IsAllowed reports whether the crawler may fetch rawURL. It never
// returns an error; callers inspect Decision.Source to detect degraded
// resolution.
func (r *Resolver) IsAllowed(ctx context.Context, rawURL string) Decision {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return Decision{Allowed: !r.defaultDeny, Source: SourceError}
	}

	pol, source := r.policyFor(ctx, u)
	if pol == nil {
		return Decision{Allowed: !r.defaultDeny, Source: source}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return pol.Decide(r.agent, path)
}

// CrawlDelay returns the crawl delay the resolved agent group requests
// for rawURL's domain, or zero.
func (r *Resolver) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return 0
	}
	pol, _ := r.policyFor(ctx, u)
	if pol == nil {
		return 0
	}
	return pol.CrawlDelay(r.agent)
}

// Sitemaps returns the sitemap URLs listed in the domain's robots.txt.
func (r *Resolver) Sitemaps(ctx context.Context, rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil
	}
	pol, _ := r.policyFor(ctx, u)
	if pol == nil {
		return nil
	}
	return pol.Sitemaps()
}

// Stats returns a copy of the running counters.
func (r *Resolver) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// ClearCache drops all cached rule sets. Long-running crawls call this
// periodically to bound memory, since entries otherwise expire only by
// TTL re-fetch.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]*cacheEntry)
	r.mu.Unlock()
}

// policyFor returns the cached or freshly fetched policy for the URL's
// domain. A nil policy with a source string means resolution failed and
// the failure itself is cached.
func (r *Resolver) policyFor(ctx context.Context, u *url.URL) (policy, string) {
	key := strings.ToLower(u.Host)

	r.mu.RLock()
	entry, ok := r.cache[key]
	if ok && time.Since(entry.fetched) < r.ttl {
		r.mu.RUnlock()
		r.mu.Lock()
		r.stats.CacheHits++
		r.mu.Unlock()
		return entry.pol, entry.source
	}
	r.mu.RUnlock()

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	entry = r.fetchPolicy(ctx, robotsURL)

	r.mu.Lock()
	r.cache[key] = entry
	r.stats.Fetches++
	if entry.pol == nil {
		r.stats.FetchFails++
	}
	r.mu.Unlock()

	return entry.pol, entry.source
}

func (r *Resolver) fetchPolicy(ctx context.Context, robotsURL string) *cacheEntry {
	entry := &cacheEntry{fetched: time.Now()}

	content, status, err := r.fetchRobots(ctx, robotsURL)
	switch {
	case err != nil:
		r.log.Debug("robots.txt fetch failed", "url", robotsURL, "error", err)
		entry.source = SourceError
		return entry
	case status == 404:
		entry.source = SourceNoRobotsTxt
		return entry
	case status < 200 || status >= 300:
		r.log.Debug("robots.txt unexpected status", "url", robotsURL, "status", status)
		entry.source = SourceError
		return entry
	}

	entry.pol = selectParser()(content)
	if entry.pol == nil {
		entry.source = SourceError
		return entry
	}
	entry.source = SourceRobotsTxt
	return entry
}

// fetchRobots retrieves the robots.txt body through the override or the
// configured client. The override reports only success or failure, so a
// returned body counts as status 200.
func (r *Resolver) fetchRobots(ctx context.Context, robotsURL string) (string, int, error) {
	if r.fetchFn != nil {
		content, err := r.fetchFn(ctx, robotsURL)
		if err != nil {
			return "", 0, err
		}
		return content, 200, nil
	}
	if r.client == nil {
		return "", 0, fmt.Errorf("no fetch client configured")
	}
	resp, err := r.client.Get(ctx, robotsURL)
	if err != nil {
		return "", 0, err
	}
	return resp.Text(), resp.StatusCode, nil
}
