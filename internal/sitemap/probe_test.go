package sitemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSitemapsFromRobots(t *testing.T) {
	robotsTxt := `User-agent: *
Disallow: /admin

Sitemap: https://example.com/sitemap.xml
sitemap: https://example.com/news.xml # inline comment
Sitemap:
`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte(robotsTxt))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := newTestDiscoverer(Config{})
	sitemaps, err := d.SitemapsFromRobots(context.Background(), server.URL+"/robots.txt")
	if err != nil {
		t.Fatalf("SitemapsFromRobots: %v", err)
	}

	want := []string{"https://example.com/sitemap.xml", "https://example.com/news.xml"}
	if len(sitemaps) != len(want) {
		t.Fatalf("got %v, want %v", sitemaps, want)
	}
	for i := range want {
		if sitemaps[i] != want[i] {
			t.Errorf("sitemaps[%d] = %q, want %q", i, sitemaps[i], want[i])
		}
	}
}

func TestSitemapsFromRobotsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := newTestDiscoverer(Config{})
	if _, err := d.SitemapsFromRobots(context.Background(), server.URL+"/robots.txt"); err == nil {
		t.Error("missing robots.txt should return an error")
	}
}

func TestProbeCommonLocations(t *testing.T) {
	homepage := `<html><head>
<link rel="sitemap" href="/meta-sitemap.xml">
</head><body>
<a href="/pages/sitemap-archive.xml">Sitemap</a>
<a href="https://other.example.com/sitemap.xml">external</a>
<a href="/about">About</a>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(homepage))
		case "/sitemap.xml", "/meta-sitemap.xml", "/pages/sitemap-archive.xml":
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(testURLSet))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	d := newTestDiscoverer(Config{})
	found, err := d.ProbeCommonLocations(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("ProbeCommonLocations: %v", err)
	}

	wantPaths := map[string]bool{
		"/sitemap.xml":               false,
		"/meta-sitemap.xml":          false,
		"/pages/sitemap-archive.xml": false,
	}
	for _, u := range found {
		if strings.Contains(u, "other.example.com") {
			t.Errorf("cross-host link %q should be skipped", u)
		}
		for p := range wantPaths {
			if u == server.URL+p {
				wantPaths[p] = true
			}
		}
	}
	for p, seen := range wantPaths {
		if !seen {
			t.Errorf("expected %s in probe results %v", p, found)
		}
	}
	if len(found) != 3 {
		t.Errorf("got %d results %v, want 3", len(found), found)
	}
}

func TestProbeCommonLocationsBadBase(t *testing.T) {
	d := newTestDiscoverer(Config{})
	if _, err := d.ProbeCommonLocations(context.Background(), "not a url"); err == nil {
		t.Error("relative base should return an error")
	}
}
