package sitemap

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// commonPaths are the well-known sitemap locations tried by
// ProbeCommonLocations, in order.
var commonPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemap.xml.gz",
	"/sitemaps.xml",
	"/sitemap.txt",
}

// SitemapsFromRobots fetches robotsURL and returns the sitemap URLs its
// Sitemap directives declare.
func (d *Discoverer) SitemapsFromRobots(ctx context.Context, robotsURL string) ([]string, error) {
	raw, _, err := d.fetchSitemap(ctx, robotsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}

	var sitemaps []string
	for _, line := range strings.Split(string(raw), "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if len(line) < len("sitemap:") || !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		if v := strings.TrimSpace(line[len("sitemap:"):]); v != "" {
			sitemaps = append(sitemaps, v)
		}
	}
	return sitemaps, nil
}

// ProbeCommonLocations tries the well-known sitemap paths under baseURL
// and scans the homepage for sitemap links, returning every URL that
// responds with recognizable sitemap content.
func (d *Discoverer) ProbeCommonLocations(ctx context.Context, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("probe base url %q: %w", baseURL, err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("probe base url %q: not absolute", baseURL)
	}

	seen := make(map[string]bool)
	var found []string
	record := func(candidate string) {
		if seen[candidate] {
			return
		}
		seen[candidate] = true
		if d.probeURL(ctx, candidate) {
			found = append(found, candidate)
		}
	}

	root := base.Scheme + "://" + base.Host
	for _, p := range commonPaths {
		record(root + p)
	}
	for _, link := range d.homepageSitemapLinks(ctx, base) {
		record(link)
	}
	return found, nil
}

// probeURL reports whether the candidate fetches successfully and
// detects as a known sitemap format.
func (d *Discoverer) probeURL(ctx context.Context, candidate string) bool {
	raw, contentType, err := d.fetchSitemap(ctx, candidate)
	if err != nil {
		return false
	}
	raw, err = maybeGunzip(raw, candidate, contentType)
	if err != nil {
		return false
	}
	_, err = detectFormat(string(raw), candidate, contentType)
	return err == nil
}

// homepageSitemapLinks fetches the homepage and extracts hrefs that
// declare or point at a sitemap.
func (d *Discoverer) homepageSitemapLinks(ctx context.Context, base *url.URL) []string {
	raw, _, err := d.fetchSitemap(ctx, base.Scheme+"://"+base.Host+"/")
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil
	}

	var links []string
	add := func(href string) {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host == base.Host {
			links = append(links, resolved.String())
		}
	}
	doc.Find(`link[rel="sitemap"]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			add(href)
		}
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.Contains(strings.ToLower(href), "sitemap") {
			add(href)
		}
	})
	return links
}
