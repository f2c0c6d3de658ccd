package session

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is the flat persisted form of a Context. Round-tripping
// through Snapshot/Restore is lossless for cookie-matching purposes.
type Snapshot struct {
	SessionID      string            `json:"sessionId,omitempty"`
	UserAgent      string            `json:"userAgent"`
	AcceptLanguage string            `json:"acceptLanguage"`
	Platform       string            `json:"platform"`
	Cookies        []Cookie          `json:"cookies"`
	Headers        map[string]string `json:"headers,omitempty"`
	Proxy          string            `json:"proxy,omitempty"`
	Viewport       Size              `json:"viewport"`
	Screen         Size              `json:"screen"`
	Timezone       string            `json:"timezone,omitempty"`
	Locale         string            `json:"locale,omitempty"`
	LastURL        string            `json:"lastUrl,omitempty"`
	Referer        string            `json:"referer,omitempty"`
	SavedAt        time.Time         `json:"savedAt,omitempty"`
}

// Snapshot captures the session state as a flat document. A fresh session
// ID is minted so the snapshot can be persisted immediately.
func (s *Context) Snapshot() Snapshot {
	return Snapshot{
		SessionID:      uuid.NewString(),
		UserAgent:      s.UserAgent,
		AcceptLanguage: s.AcceptLanguage,
		Platform:       s.Platform,
		Cookies:        s.AllCookies(),
		Headers:        cloneHeaders(s.Headers),
		Proxy:          s.Proxy,
		Viewport:       s.Viewport,
		Screen:         s.Screen,
		Timezone:       s.Timezone,
		Locale:         s.Locale,
		LastURL:        s.LastURL,
		Referer:        s.Referer,
		SavedAt:        time.Now().UTC(),
	}
}

// Restore rebuilds a Context from a snapshot.
func Restore(snap Snapshot) *Context {
	s := New()
	s.UserAgent = snap.UserAgent
	s.AcceptLanguage = snap.AcceptLanguage
	s.Platform = snap.Platform
	s.Headers = cloneHeaders(snap.Headers)
	if s.Headers == nil {
		s.Headers = map[string]string{}
	}
	s.Proxy = snap.Proxy
	s.Viewport = snap.Viewport
	s.Screen = snap.Screen
	s.Timezone = snap.Timezone
	s.Locale = snap.Locale
	s.LastURL = snap.LastURL
	s.Referer = snap.Referer

	for _, c := range snap.Cookies {
		c.Domain = normalizeDomain(c.Domain)
		if c.Name == "" || c.Domain == "" {
			continue
		}
		if c.Path == "" {
			c.Path = "/"
		}
		s.storeCookie(c)
	}
	return s
}

func cloneHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
