package robots

import (
	"testing"
	"time"
)

// The conformance suite runs against both parsing backends so their
// externally observable behavior cannot drift apart. MatchedRule is
// deliberately not asserted here: the accelerated backend does not
// report it.
func backendsUnderTest(t *testing.T) map[string]parserFunc {
	t.Helper()
	backends := map[string]parserFunc{"native": parseNative}
	if probeAccelerated() {
		backends["accelerated"] = parseAccelerated
	} else {
		t.Log("accelerated backend failed the capability probe; testing native only")
	}
	return backends
}

func TestBackendConformanceDecisions(t *testing.T) {
	const content = `User-agent: *
Disallow: /admin
Allow: /admin/public
Disallow: /tmp/*.log
Disallow: /exact$
Crawl-delay: 2

Sitemap: https://example.com/sitemap.xml
`

	cases := []struct {
		path        string
		wantAllowed bool
	}{
		{"/", true},
		{"/admin", false},
		{"/admin/secret", false},
		{"/admin/public", true},
		{"/admin/public/page", true},
		{"/tmp/build.log", false},
		{"/tmp/build.txt", true},
		{"/exact", false},
		{"/exact/more", true},
	}

	for name, parse := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			p := parse(content)
			if p == nil {
				t.Fatal("parser returned nil policy")
			}
			for _, tc := range cases {
				d := p.Decide("anybot", tc.path)
				if d.Allowed != tc.wantAllowed {
					t.Errorf("Decide(%s).Allowed = %v, want %v", tc.path, d.Allowed, tc.wantAllowed)
				}
			}
			if got := p.CrawlDelay("anybot"); got != 2*time.Second {
				t.Errorf("CrawlDelay = %v, want 2s", got)
			}
			if sitemaps := p.Sitemaps(); len(sitemaps) != 1 || sitemaps[0] != "https://example.com/sitemap.xml" {
				t.Errorf("Sitemaps = %v", sitemaps)
			}
		})
	}
}

func TestBackendConformanceAgentGroups(t *testing.T) {
	const content = `User-agent: webscout
Disallow: /scout-only/

User-agent: *
Disallow: /everyone/
`

	for name, parse := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			p := parse(content)
			if p == nil {
				t.Fatal("parser returned nil policy")
			}

			// The named group binds agents that carry its token.
			if d := p.Decide("webscout/1.0", "/scout-only/x"); d.Allowed {
				t.Error("named group rule not applied to matching agent")
			}
			if d := p.Decide("webscout/1.0", "/everyone/x"); !d.Allowed {
				t.Error("matched agent should not inherit the wildcard group")
			}

			// Unrelated agents fall through to the wildcard group.
			if d := p.Decide("otherbot", "/everyone/x"); d.Allowed {
				t.Error("wildcard group rule not applied")
			}
			if d := p.Decide("otherbot", "/scout-only/x"); !d.Allowed {
				t.Error("named group rule leaked to unrelated agent")
			}
		})
	}
}

func TestBackendConformanceAgentResolutionOrder(t *testing.T) {
	const content = `User-agent: webscout
Disallow: /private
`

	for name, parse := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			p := parse(content)
			if p == nil {
				t.Fatal("parser returned nil policy")
			}

			// A browser-shaped UA that carries the token must bind the
			// named group, not fall through to default-allow.
			if d := p.Decide("Mozilla/5.0 (compatible; Webscout/1.0)", "/private/page"); d.Allowed {
				t.Error("agent containing the registered token bypassed its disallow rule")
			}
			// Containment also binds in the other direction.
			if d := p.Decide("web", "/private/page"); d.Allowed {
				t.Error("agent contained in the registered token bypassed its disallow rule")
			}
			// No token match and no wildcard group is its own outcome.
			d := p.Decide("unrelatedbot", "/private/page")
			if !d.Allowed {
				t.Error("unmatched agent should default to allowed")
			}
			if d.Source != SourceNoMatchingAgent {
				t.Errorf("Source = %q, want %q", d.Source, SourceNoMatchingAgent)
			}
		})
	}
}

func TestAcceleratedBackendPassesProbe(t *testing.T) {
	if !probeAccelerated() {
		t.Error("accelerated backend rejected by the capability probe")
	}
}

func TestBackendConformanceEmptyDocument(t *testing.T) {
	for name, parse := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			p := parse("")
			if p == nil {
				t.Fatal("parser returned nil policy for empty document")
			}
			if d := p.Decide("anybot", "/anything"); !d.Allowed {
				t.Error("empty document must default to allowed")
			}
		})
	}
}
