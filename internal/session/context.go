// Package session maintains per-crawl-session identity and cookie state.
// A Context carries the user agent, headers and a cookie jar across every
// fetch a crawl session issues, whether through the plain HTTP client or
// a headless browser page, and can be snapshotted for resumption across
// process restarts.
package session

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Size is a width/height pair for viewport and screen dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Context is one logical browsing identity. The cookie jar has no
// internal locking: callers driving parallel fetches against a shared
// Context must serialize access themselves.
type Context struct {
	UserAgent      string
	AcceptLanguage string
	Platform       string
	Headers        map[string]string
	Proxy          string
	Viewport       Size
	Screen         Size
	Timezone       string
	Locale         string
	LastURL        string
	Referer        string

	// jar keyed by normalized domain (no leading dot).
	jar map[string][]Cookie

	cookiesStored      int64
	responsesProcessed int64
	parseFailures      int64
}

// New returns a Context with a desktop Chrome identity. Identity fields
// are exported and may be adjusted before the first fetch.
func New() *Context {
	return &Context{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		Platform:       "Win32",
		Headers:        map[string]string{},
		Viewport:       Size{Width: 1366, Height: 768},
		Screen:         Size{Width: 1920, Height: 1080},
		Timezone:       "America/New_York",
		Locale:         "en-US",
		jar:            map[string][]Cookie{},
	}
}

// SetCookies stores cookies in the jar, tagging each with source. Within
// a domain, records are deduplicated by (name, path): an existing pair is
// replaced in place, preserving list order.
func (s *Context) SetCookies(cookies []Cookie, source string) {
	now := time.Now()
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		c.Domain = normalizeDomain(c.Domain)
		if c.Domain == "" {
			continue
		}
		if c.Path == "" {
			c.Path = "/"
		}
		if source != "" {
			c.Source = source
		}
		c.UpdatedAt = now
		s.storeCookie(c)
	}
}

// SetCookiesFromHeader ingests Set-Cookie header values received for
// rawURL. Unparsable values are counted, not fatal.
func (s *Context) SetCookiesFromHeader(headerValues []string, rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		u = nil
	}
	now := time.Now()
	for _, hv := range headerValues {
		c, ok := parseSetCookie(hv, u, now)
		if !ok {
			s.parseFailures++
			continue
		}
		c.Source = "set-cookie"
		s.storeCookie(c)
	}
}

func (s *Context) storeCookie(c Cookie) {
	list := s.jar[c.Domain]
	for i := range list {
		if list[i].Name == c.Name && list[i].Path == c.Path {
			list[i] = c
			return
		}
	}
	s.jar[c.Domain] = append(list, c)
	s.cookiesStored++
}

// matchingCookies returns the unexpired cookies applicable to rawURL.
// Expired entries are excluded from reads but not purged.
func (s *Context) matchingCookies(rawURL string) []Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	https := strings.EqualFold(u.Scheme, "https")
	reqPath := u.Path
	if reqPath == "" {
		reqPath = "/"
	}

	now := time.Now()
	var out []Cookie
	for domain, list := range s.jar {
		if !domainsMatch(domain, host) {
			continue
		}
		for _, c := range list {
			if c.expired(now) {
				continue
			}
			if !pathMatches(c.Path, reqPath) {
				continue
			}
			if c.Secure && !https {
				continue
			}
			out = append(out, c)
		}
	}
	// Longest path first, then name, for a stable deterministic header.
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Path) != len(out[j].Path) {
			return len(out[i].Path) > len(out[j].Path)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CookieHeader computes the Cookie request header for rawURL. Returns the
// empty string when nothing applies.
func (s *Context) CookieHeader(rawURL string) string {
	cookies := s.matchingCookies(rawURL)
	if len(cookies) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// CookiesForDriver returns the cookie records a browser driver should
// install before navigating to rawURL.
func (s *Context) CookiesForDriver(rawURL string) []Cookie {
	return s.matchingCookies(rawURL)
}

// AllCookies returns every stored cookie, including expired ones.
func (s *Context) AllCookies() []Cookie {
	domains := make([]string, 0, len(s.jar))
	for d := range s.jar {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var out []Cookie
	for _, d := range domains {
		out = append(out, s.jar[d]...)
	}
	return out
}

// CookiesForDomain returns the stored cookies for one normalized domain.
func (s *Context) CookiesForDomain(domain string) []Cookie {
	list := s.jar[normalizeDomain(domain)]
	out := make([]Cookie, len(list))
	copy(out, list)
	return out
}

// ClearCookies removes the named domain's cookies, or all cookies when
// domain is empty.
func (s *Context) ClearCookies(domain string) {
	if domain == "" {
		s.jar = map[string][]Cookie{}
		return
	}
	delete(s.jar, normalizeDomain(domain))
}

// ProcessResponse ingests a response received for rawURL: Set-Cookie
// headers go into the jar and the last-visited URL is updated.
func (s *Context) ProcessResponse(headers http.Header, rawURL string) {
	s.responsesProcessed++
	if values := headers.Values("Set-Cookie"); len(values) > 0 {
		s.SetCookiesFromHeader(values, rawURL)
	}
	s.LastURL = rawURL
}

// SetReferer records the URL to send as the Referer of the next request.
func (s *Context) SetReferer(rawURL string) {
	s.Referer = rawURL
}

// ClientConfig is the outgoing-request configuration for a plain HTTP
// fetch issued under this session.
type ClientConfig struct {
	Headers map[string]string
	Proxy   string
}

// HTTPClientConfig assembles the headers and proxy for a request to
// rawURL: identity headers, custom headers, the computed Cookie header
// and the current Referer.
func (s *Context) HTTPClientConfig(rawURL string) ClientConfig {
	headers := map[string]string{
		"User-Agent":      s.UserAgent,
		"Accept-Language": s.AcceptLanguage,
	}
	for k, v := range s.Headers {
		headers[k] = v
	}
	if cookie := s.CookieHeader(rawURL); cookie != "" {
		headers["Cookie"] = cookie
	}
	if s.Referer != "" {
		headers["Referer"] = s.Referer
	}
	return ClientConfig{Headers: headers, Proxy: s.Proxy}
}

// LaunchConfig describes how a headless browser process should be
// launched to impersonate this session.
type LaunchConfig struct {
	UserAgent string
	Proxy     string
	Viewport  Size
	Locale    string
	Timezone  string
	Args      []string
}

// LaunchConfig returns browser launch settings derived from the
// session identity.
func (s *Context) LaunchConfig() LaunchConfig {
	cfg := LaunchConfig{
		UserAgent: s.UserAgent,
		Proxy:     s.Proxy,
		Viewport:  s.Viewport,
		Locale:    s.Locale,
		Timezone:  s.Timezone,
	}
	cfg.Args = append(cfg.Args,
		fmt.Sprintf("--window-size=%d,%d", s.Viewport.Width, s.Viewport.Height),
		"--lang="+s.Locale,
	)
	if s.Proxy != "" {
		cfg.Args = append(cfg.Args, "--proxy-server="+s.Proxy)
	}
	return cfg
}

// Stats reports jar activity: cookies stored, responses processed and
// Set-Cookie values that failed to parse.
func (s *Context) Stats() (stored, processed, parseFailures int64) {
	return s.cookiesStored, s.responsesProcessed, s.parseFailures
}
