// Package driver adapts a chromedp browser tab to the session.Page
// surface, so a crawl session can configure and observe a real headless
// Chrome instance.
package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/hikarino/webscout/internal/session"
)

// NewBrowser launches a headless Chrome tab configured from the session
// launch settings. The returned context drives a Page until cancel is
// called.
func NewBrowser(ctx context.Context, cfg session.LaunchConfig) (context.Context, context.CancelFunc) {
	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height))
	}
	if cfg.Locale != "" {
		opts = append(opts, chromedp.Flag("lang", cfg.Locale))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}
	return tabCtx, cancel
}

// Page drives one chromedp tab. The tab context must come from
// chromedp.NewContext (directly or via NewBrowser) and stay alive for
// the page's lifetime.
type Page struct {
	tab context.Context

	mu        sync.Mutex
	handlers  []func(session.ResponseEvent)
	reqURLs   map[network.RequestID]string
	listening bool
}

var _ session.Page = (*Page)(nil)

// NewPage wraps a chromedp tab context.
func NewPage(tab context.Context) *Page {
	return &Page{
		tab:     tab,
		reqURLs: make(map[network.RequestID]string),
	}
}

func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.tab, actions...)
}

// URL returns the tab's current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// Cookies reads the browser's cookies for the tab.
func (p *Page) Cookies(ctx context.Context) ([]session.Cookie, error) {
	var raw []*network.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("read browser cookies: %w", err)
	}

	cookies := make([]session.Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

// SetCookies installs cookies into the browser.
func (p *Page) SetCookies(ctx context.Context, cookies []session.Cookie) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			set := network.SetCookie(c.Name, c.Value).
				WithDomain(strings.TrimPrefix(c.Domain, ".")).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if !c.Expires.IsZero() {
				ts := cdp.TimeSinceEpoch(c.Expires)
				set = set.WithExpires(&ts)
			}
			if ss := sameSiteParam(c.SameSite); ss != "" {
				set = set.WithSameSite(ss)
			}
			if err := set.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

func sameSiteParam(v string) network.CookieSameSite {
	switch strings.ToLower(v) {
	case "strict":
		return network.CookieSameSiteStrict
	case "lax":
		return network.CookieSameSiteLax
	case "none":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}

// SetUserAgent overrides the reported user agent, accept-language and
// platform.
func (p *Page) SetUserAgent(ctx context.Context, userAgent, acceptLanguage, platform string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetUserAgentOverride(userAgent).
			WithAcceptLanguage(acceptLanguage).
			WithPlatform(platform).
			Do(ctx)
	}))
}

// SetViewport emulates the given viewport dimensions.
func (p *Page) SetViewport(ctx context.Context, width, height int) error {
	return p.run(ctx, chromedp.EmulateViewport(int64(width), int64(height)))
}

// EmulateTimezone overrides the tab's timezone.
func (p *Page) EmulateTimezone(ctx context.Context, timezone string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetTimezoneOverride(timezone).Do(ctx)
	}))
}

// SetExtraHeaders attaches headers to every request the tab issues.
func (p *Page) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	nh := make(network.Headers, len(headers))
	for k, v := range headers {
		nh[k] = v
	}
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		return network.SetExtraHTTPHeaders(nh).Do(ctx)
	}))
}

// EvaluateOnNewDocument installs a script that runs before any page
// script on every navigation.
func (p *Page) EvaluateOnNewDocument(ctx context.Context, script string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}))
}

// OnResponse subscribes handler to the tab's response stream. Request
// URLs arrive on EventRequestWillBeSent and the raw Set-Cookie headers
// on EventResponseReceivedExtraInfo, correlated by request ID.
func (p *Page) OnResponse(handler func(session.ResponseEvent)) {
	p.mu.Lock()
	p.handlers = append(p.handlers, handler)
	if p.listening {
		p.mu.Unlock()
		return
	}
	p.listening = true
	p.mu.Unlock()

	chromedp.ListenTarget(p.tab, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			p.mu.Lock()
			p.reqURLs[e.RequestID] = e.Request.URL
			p.mu.Unlock()
		case *network.EventResponseReceivedExtraInfo:
			setCookie := setCookieValues(e.Headers)
			if len(setCookie) == 0 {
				return
			}
			p.mu.Lock()
			url := p.reqURLs[e.RequestID]
			delete(p.reqURLs, e.RequestID)
			handlers := append([]func(session.ResponseEvent){}, p.handlers...)
			p.mu.Unlock()
			for _, h := range handlers {
				h(session.ResponseEvent{URL: url, SetCookie: setCookie})
			}
		case *network.EventLoadingFinished:
			p.forget(e.RequestID)
		case *network.EventLoadingFailed:
			p.forget(e.RequestID)
		}
	})
}

// forget drops the request URL entry once its response is fully
// processed, so entries for responses without Set-Cookie headers do not
// accumulate.
func (p *Page) forget(id network.RequestID) {
	p.mu.Lock()
	delete(p.reqURLs, id)
	p.mu.Unlock()
}

// setCookieValues pulls the Set-Cookie header values out of a CDP
// header map. Chrome folds multiple values into one newline-separated
// string.
func setCookieValues(headers network.Headers) []string {
	for key, value := range headers {
		if !strings.EqualFold(key, "Set-Cookie") {
			continue
		}
		s, ok := value.(string)
		if !ok || s == "" {
			return nil
		}
		return strings.Split(s, "\n")
	}
	return nil
}
