package sitemap

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrUnrecognizedFormat reports content that matches none of the
// supported sitemap or feed formats.
var ErrUnrecognizedFormat = errors.New("unrecognized sitemap format")

// dateOnlyFormat is the date-only layout for lastmod values (e.g. "2024-01-15").
const dateOnlyFormat = "2006-01-02"

// maxDescriptionLen bounds stored descriptions and summaries.
const maxDescriptionLen = 300

type format int

const (
	formatUnknown format = iota
	formatIndex
	formatURLSet
	formatRSS
	formatAtom
	formatText
)

func (f format) String() string {
	switch f {
	case formatIndex:
		return "sitemap-index"
	case formatURLSet:
		return "sitemap"
	case formatRSS:
		return "rss"
	case formatAtom:
		return "atom"
	case formatText:
		return "text"
	default:
		return "unknown"
	}
}

// detectFormat classifies fetched content. Structural markers in the
// content win over the URL extension and content-type hints, which in
// turn win over the plain-text heuristic.
func detectFormat(content, rawURL, contentType string) (format, error) {
	switch {
	case strings.Contains(content, "<sitemapindex"):
		return formatIndex, nil
	case strings.Contains(content, "<urlset"):
		return formatURLSet, nil
	case strings.Contains(content, "<rss"):
		return formatRSS, nil
	case strings.Contains(content, "<feed"):
		return formatAtom, nil
	}

	lowered := strings.ToLower(rawURL)
	ctype := strings.ToLower(contentType)
	switch {
	case strings.HasSuffix(lowered, ".txt") || strings.HasPrefix(ctype, "text/plain"):
		return formatText, nil
	case strings.HasSuffix(lowered, ".rss") || strings.Contains(ctype, "rss"):
		return formatRSS, nil
	case strings.HasSuffix(lowered, ".atom") || strings.Contains(ctype, "atom"):
		return formatAtom, nil
	}

	if looksLikeURLList(content) {
		return formatText, nil
	}
	return formatUnknown, fmt.Errorf("%w (url %s, content-type %q)", ErrUnrecognizedFormat, rawURL, contentType)
}

// looksLikeURLList reports whether at least half of the first ten
// non-empty lines are bare http(s) URLs.
func looksLikeURLList(content string) bool {
	var sampled, urlLike int
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sampled++
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urlLike++
		}
		if sampled == 10 {
			break
		}
	}
	return sampled > 0 && urlLike*2 >= sampled
}

// maybeGunzip inflates gzip content identified by URL extension,
// content-type, or the leading magic bytes.
func maybeGunzip(raw []byte, rawURL, contentType string) ([]byte, error) {
	gzipped := strings.HasSuffix(strings.ToLower(rawURL), ".gz") ||
		strings.Contains(strings.ToLower(contentType), "gzip") ||
		(len(raw) > 2 && raw[0] == 0x1f && raw[1] == 0x8b)
	if !gzipped {
		return raw, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gunzip sitemap: %w", err)
	}
	defer func() { _ = zr.Close() }()
	inflated, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip sitemap: %w", err)
	}
	return inflated, nil
}

// xmlURLSet is the root element of a standard sitemap document.
type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod"`
	ChangeFreq string     `xml:"changefreq"`
	Priority   string     `xml:"priority"`
	Images     []xmlImage `xml:"image"`
	Videos     []xmlVideo `xml:"video"`
}

type xmlImage struct {
	Loc     string `xml:"loc"`
	Title   string `xml:"title"`
	Caption string `xml:"caption"`
}

type xmlVideo struct {
	ContentLoc   string `xml:"content_loc"`
	PlayerLoc    string `xml:"player_loc"`
	ThumbnailLoc string `xml:"thumbnail_loc"`
	Title        string `xml:"title"`
	Description  string `xml:"description"`
}

// xmlSitemapIndex is the root element of a sitemap index document.
type xmlSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []xmlSitemap `xml:"sitemap"`
}

type xmlSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type xmlRSS struct {
	XMLName xml.Name     `xml:"rss"`
	Items   []xmlRSSItem `xml:"channel>item"`
}

type xmlRSSItem struct {
	Link        string `xml:"link"`
	Title       string `xml:"title"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

type xmlAtomFeed struct {
	XMLName xml.Name       `xml:"feed"`
	Entries []xmlAtomEntry `xml:"entry"`
}

type xmlAtomEntry struct {
	Links     []xmlAtomLink `xml:"link"`
	Title     string        `xml:"title"`
	Updated   string        `xml:"updated"`
	Published string        `xml:"published"`
	Summary   string        `xml:"summary"`
}

type xmlAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

func parseURLSet(content string) ([]Entry, error) {
	var urlset xmlURLSet
	if err := xml.Unmarshal([]byte(content), &urlset); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}

	entries := make([]Entry, 0, len(urlset.URLs))
	for i := range urlset.URLs {
		u := &urlset.URLs[i]
		if u.Loc == "" {
			continue
		}
		e := Entry{
			URL:        strings.TrimSpace(u.Loc),
			ChangeFreq: u.ChangeFreq,
			Source:     formatURLSet.String(),
		}
		if u.LastMod != "" {
			if t, err := parseLastMod(u.LastMod); err == nil {
				e.LastMod = &t
			}
		}
		if u.Priority != "" {
			if p, err := strconv.ParseFloat(strings.TrimSpace(u.Priority), 64); err == nil {
				e.Priority = p
			}
		}
		for _, img := range u.Images {
			if img.Loc == "" {
				continue
			}
			e.Images = append(e.Images, Image{URL: img.Loc, Title: img.Title, Caption: img.Caption})
		}
		for _, vid := range u.Videos {
			loc := vid.ContentLoc
			if loc == "" {
				loc = vid.PlayerLoc
			}
			if loc == "" {
				continue
			}
			e.Videos = append(e.Videos, Video{
				URL:          loc,
				Title:        vid.Title,
				Description:  truncateDescription(vid.Description),
				ThumbnailURL: vid.ThumbnailLoc,
			})
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseIndexLocs returns the child sitemap URLs listed in an index.
func parseIndexLocs(content string) ([]string, error) {
	var index xmlSitemapIndex
	if err := xml.Unmarshal([]byte(content), &index); err != nil {
		return nil, fmt.Errorf("parse sitemap index: %w", err)
	}
	locs := make([]string, 0, len(index.Sitemaps))
	for _, s := range index.Sitemaps {
		if loc := strings.TrimSpace(s.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

func parseRSS(content string) ([]Entry, error) {
	var doc xmlRSS
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("parse rss feed: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Items))
	for _, item := range doc.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		e := Entry{
			URL:         link,
			Title:       strings.TrimSpace(item.Title),
			Description: truncateDescription(item.Description),
			Source:      formatRSS.String(),
		}
		if t, err := parsePubDate(item.PubDate); err == nil {
			e.LastMod = &t
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseAtom(content string) ([]Entry, error) {
	var doc xmlAtomFeed
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("parse atom feed: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Entries))
	for _, item := range doc.Entries {
		link := atomLink(item.Links)
		if link == "" {
			continue
		}
		e := Entry{
			URL:         link,
			Title:       strings.TrimSpace(item.Title),
			Description: truncateDescription(item.Summary),
			Source:      formatAtom.String(),
		}
		when := item.Updated
		if when == "" {
			when = item.Published
		}
		if t, err := parseLastMod(when); err == nil {
			e.LastMod = &t
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// atomLink prefers the alternate relation, falling back to the first
// link with an href.
func atomLink(links []xmlAtomLink) string {
	for _, l := range links {
		if (l.Rel == "" || l.Rel == "alternate") && l.Href != "" {
			return strings.TrimSpace(l.Href)
		}
	}
	for _, l := range links {
		if l.Href != "" {
			return strings.TrimSpace(l.Href)
		}
	}
	return ""
}

func parseTextLines(content string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			continue
		}
		entries = append(entries, Entry{URL: line, Source: formatText.String()})
	}
	return entries
}

func truncateDescription(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDescriptionLen {
		return s
	}
	return s[:maxDescriptionLen]
}

// parseLastMod tries RFC 3339 first, then the date-only form.
func parseLastMod(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty lastmod")
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnlyFormat, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse lastmod %q: %w", trimmed, err)
	}
	return t, nil
}

// parsePubDate handles the RFC 1123 variants RSS feeds use.
func parsePubDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty pubDate")
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse pubDate %q", trimmed)
}
