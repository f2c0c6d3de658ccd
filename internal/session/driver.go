package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDriverUnavailable is returned when a browser-driver hook is invoked
// without a compatible page supplied.
var ErrDriverUnavailable = errors.New("session: no compatible browser driver supplied")

// ResponseEvent is delivered for every response a driven page observes.
// SetCookie carries the raw Set-Cookie header values, one per element.
type ResponseEvent struct {
	URL       string
	SetCookie []string
}

// Page is the narrow surface this package needs from a headless-browser
// page. Any driver exposing these capabilities works; see internal/driver
// for a chromedp-backed implementation.
type Page interface {
	URL(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	SetUserAgent(ctx context.Context, userAgent, acceptLanguage, platform string) error
	SetViewport(ctx context.Context, width, height int) error
	EmulateTimezone(ctx context.Context, timezone string) error
	SetExtraHeaders(ctx context.Context, headers map[string]string) error
	EvaluateOnNewDocument(ctx context.Context, script string) error
	OnResponse(handler func(ResponseEvent))
}

// ConfigurePage applies the session identity to a driven page: user
// agent, viewport, timezone, extra headers, the automation-masking init
// script, and a response subscription that feeds Set-Cookie headers back
// into the jar. Errors from the driver propagate to the caller.
func (s *Context) ConfigurePage(ctx context.Context, page Page) error {
	if page == nil {
		return ErrDriverUnavailable
	}

	if err := page.SetUserAgent(ctx, s.UserAgent, s.AcceptLanguage, s.Platform); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}
	if err := page.SetViewport(ctx, s.Viewport.Width, s.Viewport.Height); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if s.Timezone != "" {
		if err := page.EmulateTimezone(ctx, s.Timezone); err != nil {
			return fmt.Errorf("emulate timezone: %w", err)
		}
	}
	if len(s.Headers) > 0 {
		if err := page.SetExtraHeaders(ctx, s.Headers); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
	}
	if err := page.EvaluateOnNewDocument(ctx, s.stealthScript()); err != nil {
		return fmt.Errorf("install init script: %w", err)
	}

	page.OnResponse(func(ev ResponseEvent) {
		if len(ev.SetCookie) > 0 {
			s.SetCookiesFromHeader(ev.SetCookie, ev.URL)
		}
	})
	return nil
}

// ImportFromPage copies the page's current cookies into the jar.
func (s *Context) ImportFromPage(ctx context.Context, page Page) error {
	if page == nil {
		return ErrDriverUnavailable
	}
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("read driver cookies: %w", err)
	}
	s.SetCookies(cookies, "driver")
	return nil
}

// ExportToPage installs the jar's cookies applicable to rawURL on the page.
func (s *Context) ExportToPage(ctx context.Context, page Page, rawURL string) error {
	if page == nil {
		return ErrDriverUnavailable
	}
	cookies := s.CookiesForDriver(rawURL)
	if len(cookies) == 0 {
		return nil
	}
	if err := page.SetCookies(ctx, cookies); err != nil {
		return fmt.Errorf("install driver cookies: %w", err)
	}
	return nil
}

// stealthScript builds the init script that overrides the automation
// signals a page can probe: webdriver flag, platform, languages and
// screen dimensions.
func (s *Context) stealthScript() string {
	languages := []string{s.Locale}
	if s.Locale != "en" {
		languages = append(languages, "en")
	}
	langJSON, _ := json.Marshal(languages)

	return fmt.Sprintf(`
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'platform', { get: () => %q });
Object.defineProperty(navigator, 'language', { get: () => %q });
Object.defineProperty(navigator, 'languages', { get: () => %s });
Object.defineProperty(screen, 'width', { get: () => %d });
Object.defineProperty(screen, 'height', { get: () => %d });
window.chrome = window.chrome || { runtime: {} };
`, s.Platform, s.Locale, string(langJSON), s.Screen.Width, s.Screen.Height)
}
