// Package fetch provides the HTTP fetch abstraction consumed by the
// robots and sitemap components. It is the sole network dependency of the
// discovery core and the natural seam for test doubles.
package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/hikarino/webscout/internal/session"
)

// Response carries a fetched document.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	FinalURL   string // after following redirects
}

// OK reports whether the response carries a success status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// Bytes returns the raw body.
func (r *Response) Bytes() []byte { return r.Body }

// ContentType returns the response Content-Type header.
func (r *Response) ContentType() string { return r.Headers.Get("Content-Type") }

// Error is a fetch failure carrying the status that caused it. A zero
// StatusCode means the request never completed.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Client is the fetch interface the discovery components depend on.
type Client interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// HTTPClient is the default Client. It decodes gzip and brotli response
// bodies, bounds redirects, and can route identity and cookie state
// through a crawl session.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	session   *session.Context
	maxBody   int64
}

// NewHTTPClient creates a client with the given identity and timeout.
func NewHTTPClient(userAgent string, timeout time.Duration) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		headers:   make(map[string]string),
		maxBody:   10 * 1024 * 1024,
	}
}

// SetHeaders merges custom headers sent with every request.
func (h *HTTPClient) SetHeaders(headers map[string]string) {
	for k, v := range headers {
		h.headers[k] = v
	}
}

// SetSession attaches a crawl session: outgoing requests carry the
// session's headers and Cookie header, and every response is fed back
// through the session so Set-Cookie state stays consistent.
func (h *HTTPClient) SetSession(s *session.Context) {
	h.session = s
	if s != nil && s.Proxy != "" {
		if proxyURL, err := url.Parse(s.Proxy); err == nil {
			if transport, ok := h.client.Transport.(*http.Transport); ok {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}
}

// SetMaxBodyBytes bounds how much of a response body is read.
func (h *HTTPClient) SetMaxBodyBytes(n int64) {
	if n > 0 {
		h.maxBody = n
	}
}

// Get performs a GET request. Non-2xx statuses are returned as a
// *Response with no error so callers can apply their own policy; network
// failures come back as a *Error.
func (h *HTTPClient) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xml;q=0.9,*/*;q=0.8")
	// Decoded below; set explicitly so Go's transparent handling stays off.
	req.Header.Set("Accept-Encoding", "gzip, br")

	if h.session != nil {
		cfg := h.session.HTTPClientConfig(rawURL)
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = io.LimitReader(resp.Body, h.maxBody)
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, &Error{URL: rawURL, Err: fmt.Errorf("gzip decode: %w", err)}
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	case "br":
		reader = brotli.NewReader(reader)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if h.session != nil {
		h.session.ProcessResponse(resp.Header, finalURL)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		FinalURL:   finalURL,
	}, nil
}

// Close releases idle connections.
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}
