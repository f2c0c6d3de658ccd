// Package sitemap discovers candidate URLs from sitemap documents. It
// parses XML urlsets and sitemap indexes (with image and video
// extensions), RSS and Atom feeds, and plain-text URL lists, inflating
// gzip content transparently. Index traversal is recursive and strictly
// sequential, bounded by a depth limit, a per-index children cap, and a
// global extracted-URL cap shared across one top-level Parse call.
package sitemap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hikarino/webscout/internal/fetch"
)

// Defaults for traversal bounds.
const (
	DefaultMaxDepth    = 3
	DefaultMaxChildren = 50
	DefaultMaxURLs     = 50000
)

// Image is an image extension block attached to a sitemap entry.
type Image struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Video is a video extension block attached to a sitemap entry.
type Video struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Entry is one discovered URL with whatever metadata the source format
// carried.
type Entry struct {
	URL         string     `json:"url"`
	LastMod     *time.Time `json:"lastmod,omitempty"`
	ChangeFreq  string     `json:"changefreq,omitempty"`
	Priority    float64    `json:"priority,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source"`
	Images      []Image    `json:"images,omitempty"`
	Videos      []Video    `json:"videos,omitempty"`
}

// Options controls one Parse call.
type Options struct {
	Recursive bool
	MaxDepth  int // default 3
}

// FetchFunc bypasses the default client for sitemap retrieval,
// returning the raw content and its content type.
type FetchFunc func(ctx context.Context, sitemapURL string) ([]byte, string, error)

// Waiter paces outgoing fetches; see fetch.PoliteLimiter.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config configures a Discoverer.
type Config struct {
	Client      fetch.Client
	Fetch       FetchFunc     // optional override of Client
	Limiter     Waiter        // optional pacing between sequential fetches
	CacheTTL    time.Duration // default 1h
	MaxChildren int           // per index, default 50
	MaxURLs     int           // global per Parse call, default 50000
	Logger      *slog.Logger
}

// Stats counts discoverer activity.
type Stats struct {
	Fetched     int64
	Parsed      int64
	Extracted   int64
	ChildErrors int64
}

// Discoverer fetches and parses sitemaps with per-URL result caching.
type Discoverer struct {
	client      fetch.Client
	fetchFn     FetchFunc
	limiter     Waiter
	ttl         time.Duration
	maxChildren int
	maxURLs     int
	log         *slog.Logger

	mu    sync.Mutex
	cache map[cacheKey]*cacheEntry
	stats Stats
}

// cacheKey includes the traversal options so a recursive parse is never
// answered from a non-recursive one's result, or vice versa.
type cacheKey struct {
	url       string
	recursive bool
	maxDepth  int
}

type cacheEntry struct {
	fetched time.Time
	entries []Entry
}

// NewDiscoverer creates a discoverer from configuration.
func NewDiscoverer(cfg Config) *Discoverer {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxChildren := cfg.MaxChildren
	if maxChildren <= 0 {
		maxChildren = DefaultMaxChildren
	}
	maxURLs := cfg.MaxURLs
	if maxURLs <= 0 {
		maxURLs = DefaultMaxURLs
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Discoverer{
		client:      cfg.Client,
		fetchFn:     cfg.Fetch,
		limiter:     cfg.Limiter,
		ttl:         ttl,
		maxChildren: maxChildren,
		maxURLs:     maxURLs,
		log:         log,
		cache:       make(map[cacheKey]*cacheEntry),
	}
}

// traversal carries the shared budget of one top-level Parse call.
// When the global URL cap is exhausted, halted stops every further
// fetch for the remainder of the call.
type traversal struct {
	remaining int
	halted    bool
}

// take keeps at most the remaining budget of entries and flags the
// traversal as halted once the budget reaches zero.
func (tr *traversal) take(entries []Entry) []Entry {
	if tr.halted {
		return nil
	}
	if len(entries) >= tr.remaining {
		entries = entries[:tr.remaining]
		tr.remaining = 0
		tr.halted = true
		return entries
	}
	tr.remaining -= len(entries)
	return entries
}

// Parse fetches rawURL and returns the entries it yields. Indexes are
// followed recursively when opts.Recursive is set, one child at a time;
// a child's fetch or parse failure is counted and skipped without
// aborting its siblings. The top-level document's own fetch or format
// failure is returned as an error.
func (d *Discoverer) Parse(ctx context.Context, rawURL string, opts Options) ([]Entry, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	key := cacheKey{url: rawURL, recursive: opts.Recursive, maxDepth: opts.MaxDepth}
	d.mu.Lock()
	if cached, ok := d.cache[key]; ok && time.Since(cached.fetched) < d.ttl {
		entries := cached.entries
		d.mu.Unlock()
		return entries, nil
	}
	d.mu.Unlock()

	tr := &traversal{remaining: d.maxURLs}
	entries, err := d.parseOne(ctx, rawURL, opts, 0, tr)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cache[key] = &cacheEntry{fetched: time.Now(), entries: entries}
	d.mu.Unlock()
	return entries, nil
}

func (d *Discoverer) parseOne(ctx context.Context, rawURL string, opts Options, depth int, tr *traversal) ([]Entry, error) {
	if tr.halted {
		return nil, nil
	}

	raw, contentType, err := d.fetchSitemap(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	d.count(func(s *Stats) { s.Fetched++ })

	raw, err = maybeGunzip(raw, rawURL, contentType)
	if err != nil {
		return nil, err
	}
	content := string(raw)

	f, err := detectFormat(content, rawURL, contentType)
	if err != nil {
		return nil, err
	}

	if f == formatIndex {
		entries, err := d.parseIndex(ctx, content, opts, depth, tr)
		if err != nil {
			return nil, err
		}
		// Children counted their own extractions already.
		d.count(func(s *Stats) { s.Parsed++ })
		return entries, nil
	}

	var entries []Entry
	switch f {
	case formatURLSet:
		entries, err = parseURLSet(content)
	case formatRSS:
		entries, err = parseRSS(content)
	case formatAtom:
		entries, err = parseAtom(content)
	case formatText:
		entries = parseTextLines(content)
	}
	if err != nil {
		return nil, err
	}
	entries = tr.take(entries)

	d.count(func(s *Stats) {
		s.Parsed++
		s.Extracted += int64(len(entries))
	})
	return entries, nil
}

// parseIndex resolves a sitemap index. With recursion enabled and depth
// budget left, each child is fetched sequentially; otherwise the child
// sitemap URLs themselves are returned as entries.
func (d *Discoverer) parseIndex(ctx context.Context, content string, opts Options, depth int, tr *traversal) ([]Entry, error) {
	locs, err := parseIndexLocs(content)
	if err != nil {
		return nil, err
	}
	if len(locs) > d.maxChildren {
		d.log.Warn("sitemap index exceeds children cap",
			"children", len(locs), "cap", d.maxChildren)
		locs = locs[:d.maxChildren]
	}

	if !opts.Recursive || depth+1 >= opts.MaxDepth {
		entries := make([]Entry, 0, len(locs))
		for _, loc := range locs {
			entries = append(entries, Entry{URL: loc, Source: formatIndex.String()})
		}
		entries = tr.take(entries)
		d.count(func(s *Stats) { s.Extracted += int64(len(entries)) })
		return entries, nil
	}

	var entries []Entry
	for _, loc := range locs {
		if tr.halted {
			break
		}
		childEntries, err := d.parseOne(ctx, loc, opts, depth+1, tr)
		if err != nil {
			d.log.Warn("child sitemap failed", "url", loc, "error", err)
			d.count(func(s *Stats) { s.ChildErrors++ })
			continue
		}
		entries = append(entries, childEntries...)
	}
	return entries, nil
}

func (d *Discoverer) fetchSitemap(ctx context.Context, rawURL string) ([]byte, string, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, rawURL); err != nil {
			return nil, "", err
		}
	}
	if d.fetchFn != nil {
		return d.fetchFn(ctx, rawURL)
	}
	if d.client == nil {
		return nil, "", fmt.Errorf("no fetch client configured")
	}
	resp, err := d.client.Get(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	if !resp.OK() {
		return nil, "", &fetch.Error{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}
	return resp.Bytes(), resp.ContentType(), nil
}

func (d *Discoverer) count(fn func(*Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

// Stats returns a copy of the running counters.
func (d *Discoverer) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// ClearCache drops all cached parse results.
func (d *Discoverer) ClearCache() {
	d.mu.Lock()
	d.cache = make(map[cacheKey]*cacheEntry)
	d.mu.Unlock()
}
