package robots

import (
	"testing"
	"time"
)

func TestParseNativeGroupAccumulation(t *testing.T) {
	content := `
# Consecutive agent lines share the rules that follow.
User-agent: alphabot
User-agent: betabot
Disallow: /shared/

User-agent: gammabot
Disallow: /gamma/
`
	p := parseNative(content)

	for _, agent := range []string{"alphabot", "betabot"} {
		if d := p.Decide(agent, "/shared/page"); d.Allowed {
			t.Errorf("Decide(%s, /shared/page).Allowed = true, want shared rule applied", agent)
		}
		if d := p.Decide(agent, "/gamma/page"); !d.Allowed {
			t.Errorf("Decide(%s, /gamma/page) denied by another group's rule", agent)
		}
	}
	if d := p.Decide("gammabot", "/gamma/page"); d.Allowed {
		t.Error("gammabot not constrained by its own group")
	}
	if d := p.Decide("gammabot", "/shared/page"); !d.Allowed {
		t.Error("gammabot constrained by the earlier group")
	}
}

func TestParseNativeCommentStripping(t *testing.T) {
	content := `User-agent: * # everyone
Disallow: /hidden/ # keep out
# full line comment
Crawl-delay: 1
`
	p := parseNative(content)
	if d := p.Decide("anybot", "/hidden/x"); d.Allowed {
		t.Error("inline comment broke the disallow value")
	}
	if got := p.CrawlDelay("anybot"); got != time.Second {
		t.Errorf("CrawlDelay = %v, want 1s", got)
	}
}

func TestDecideLongestLiteralWins(t *testing.T) {
	content := `User-agent: *
Disallow: /admin
Allow: /admin/public
`
	p := parseNative(content)

	tests := []struct {
		path        string
		wantAllowed bool
		wantRule    string
	}{
		{"/admin/secret", false, "/admin"},
		{"/admin/public/page", true, "/admin/public"},
		{"/open/page", true, ""},
	}

	for _, tt := range tests {
		d := p.Decide("anybot", tt.path)
		if d.Allowed != tt.wantAllowed {
			t.Errorf("Decide(%s).Allowed = %v, want %v", tt.path, d.Allowed, tt.wantAllowed)
		}
		if d.MatchedRule != tt.wantRule {
			t.Errorf("Decide(%s).MatchedRule = %q, want %q", tt.path, d.MatchedRule, tt.wantRule)
		}
		if d.Source != SourceRobotsTxt {
			t.Errorf("Decide(%s).Source = %q", tt.path, d.Source)
		}
	}
}

func TestDecideTieDefaultsToAllowed(t *testing.T) {
	p := parseNative(`User-agent: *
Disallow: /page
Allow: /page
`)
	if d := p.Decide("anybot", "/page/x"); !d.Allowed {
		t.Error("equal-specificity conflict should default to allowed")
	}
}

func TestAgentResolutionOrder(t *testing.T) {
	content := `User-agent: webscout
Disallow: /exact/

User-agent: scout
Disallow: /contains/

User-agent: *
Disallow: /wildcard/
`
	p := parseNative(content)

	tests := []struct {
		name   string
		agent  string
		path   string
		denied bool
	}{
		{"exact match preferred", "WebScout", "/exact/x", true},
		{"exact match does not inherit wildcard", "WebScout", "/wildcard/x", false},
		{"contains match token in agent", "scoutbot/2.0", "/contains/x", true},
		{"contains match agent in token", "cou", "/contains/x", true},
		{"wildcard fallback", "otherbot", "/wildcard/x", true},
		{"wildcard not applied to matched agent", "scoutbot/2.0", "/wildcard/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(tt.agent, tt.path)
			if d.Allowed != !tt.denied {
				t.Errorf("Decide(%s, %s).Allowed = %v, want %v", tt.agent, tt.path, d.Allowed, !tt.denied)
			}
		})
	}
}

func TestNoMatchingAgent(t *testing.T) {
	p := parseNative(`User-agent: somebot
Disallow: /
`)
	d := p.Decide("unrelated", "/anything")
	if !d.Allowed {
		t.Error("agent with no matching group should be allowed")
	}
	if d.Source != SourceNoMatchingAgent {
		t.Errorf("Source = %q, want %q", d.Source, SourceNoMatchingAgent)
	}
}

func TestCompileRulePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/", "/admin/page", true},
		{"/admin/", "/admin", false},
		{"*.pdf", "/file.pdf", true},
		{"*.pdf", "/docs/file.pdf", true},
		{"*.pdf", "/file.doc", false},
		{"/a/*/c", "/a/b/c", true},
		{"/a/*/c", "/a/c", false},
		{"/exact$", "/exact", true},
		{"/exact$", "/exact/more", false},
		{"/p?x=1", "/p?x=1", true},
	}

	for _, tt := range tests {
		re, _ := compileRulePattern(tt.pattern)
		if re == nil {
			t.Fatalf("compileRulePattern(%q) failed", tt.pattern)
		}
		if got := re.MatchString(tt.path); got != tt.want {
			t.Errorf("pattern %q against %q = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestCompileRulePatternSpecificity(t *testing.T) {
	tests := []struct {
		pattern string
		want    int
	}{
		{"/admin", 6},
		{"/admin/*", 7},
		{"*.pdf", 4},
		{"/exact$", 6},
	}
	for _, tt := range tests {
		if _, got := compileRulePattern(tt.pattern); got != tt.want {
			t.Errorf("specificity(%q) = %d, want %d", tt.pattern, got, tt.want)
		}
	}
}

func TestCrawlDelayParsing(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    time.Duration
	}{
		{"integer seconds", "User-agent: *\nCrawl-delay: 2\n", 2 * time.Second},
		{"fractional seconds", "User-agent: *\nCrawl-delay: 1.5\n", 1500 * time.Millisecond},
		{"invalid value ignored", "User-agent: *\nCrawl-delay: soon\n", 0},
		{"negative ignored", "User-agent: *\nCrawl-delay: -1\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parseNative(tt.content)
			if got := p.CrawlDelay("anybot"); got != tt.want {
				t.Errorf("CrawlDelay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSitemapCollection(t *testing.T) {
	p := parseNative(`User-agent: *
Disallow:

Sitemap: https://example.com/sitemap.xml
Sitemap: https://example.com/news.xml
`)
	sitemaps := p.Sitemaps()
	if len(sitemaps) != 2 {
		t.Fatalf("Sitemaps() = %v, want 2 entries", sitemaps)
	}
	if sitemaps[0] != "https://example.com/sitemap.xml" {
		t.Errorf("first sitemap = %q", sitemaps[0])
	}
}
