package robots

import (
	"bufio"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// policy is a parsed robots.txt document. Two backends implement it: the
// built-in parser and an accelerated one based on temoto/robotstxt. The
// accelerated backend is selected once, lazily, after a capability probe
// confirms it reproduces the built-in semantics on canonical fixtures;
// both are covered by one conformance test suite.
type policy interface {
	Decide(agent, path string) Decision
	CrawlDelay(agent string) time.Duration
	Sitemaps() []string
}

type parserFunc func(content string) policy

var (
	parserOnce   sync.Once
	activeParser parserFunc
)

// selectParser picks the parsing backend on first use.
func selectParser() parserFunc {
	parserOnce.Do(func() {
		activeParser = parseNative
		if probeAccelerated() {
			activeParser = parseAccelerated
		}
	})
	return activeParser
}

// probeAccelerated checks the accelerated backend against the fixture
// behaviors the resolver depends on: agent resolution by substring
// containment in both directions, wildcard fallback and the
// no-matching-agent outcome, longest-match precedence between
// conflicting rules, crawl-delay extraction and sitemap collection.
func probeAccelerated() bool {
	const fixture = `User-agent: figbot
Disallow: /private

User-agent: *
Disallow: /tmp
Crawl-delay: 2
Sitemap: https://example.com/sitemap.xml
`
	p := parseAccelerated(fixture)
	if p == nil {
		return false
	}
	if d := p.Decide("Mozilla/5.0 (compatible; FigBot/1.0)", "/private/page"); d.Allowed {
		return false
	}
	if d := p.Decide("fig", "/private/page"); d.Allowed {
		return false
	}
	if d := p.Decide("otherbot", "/tmp/file"); d.Allowed {
		return false
	}
	if d := p.Decide("otherbot", "/public"); !d.Allowed {
		return false
	}
	if p.CrawlDelay("otherbot") != 2*time.Second {
		return false
	}
	if len(p.Sitemaps()) != 1 {
		return false
	}

	const precedence = `User-agent: *
Disallow: /private
Allow: /private/open
`
	q := parseAccelerated(precedence)
	if q == nil {
		return false
	}
	if d := q.Decide("probebot", "/private/page"); d.Allowed {
		return false
	}
	if d := q.Decide("probebot", "/private/open/page"); !d.Allowed {
		return false
	}

	const scoped = `User-agent: figbot
Disallow: /
`
	r := parseAccelerated(scoped)
	if r == nil {
		return false
	}
	d := r.Decide("unrelated", "/page")
	return d.Allowed && d.Source == SourceNoMatchingAgent
}

// acceleratedPolicy wraps a temoto/robotstxt rule set behind the policy
// contract. Agent groups are resolved with the same order as the native
// backend; temoto's own FindGroup matching is prefix-only, so it is
// queried with the already-resolved token. The backend cannot report
// which concrete rule decided a path, so MatchedRule stays empty.
type acceleratedPolicy struct {
	data     *robotstxt.RobotsData
	tokens   []string
	wildcard bool
}

func parseAccelerated(content string) policy {
	data, err := robotstxt.FromString(content)
	if err != nil {
		return nil
	}

	p := &acceleratedPolicy{data: data}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 || !strings.EqualFold(strings.TrimSpace(parts[0]), "user-agent") {
			continue
		}
		token := strings.ToLower(strings.TrimSpace(parts[1]))
		switch {
		case token == "":
		case token == "*":
			p.wildcard = true
		case !seen[token]:
			seen[token] = true
			p.tokens = append(p.tokens, token)
		}
	}
	sort.Strings(p.tokens)
	return p
}

func (p *acceleratedPolicy) Decide(agent, path string) Decision {
	token, ok := resolveAgentToken(agent, p.tokens, p.wildcard)
	if !ok {
		return Decision{Allowed: true, Source: SourceNoMatchingAgent}
	}
	group := p.data.FindGroup(token)
	if group == nil {
		return Decision{Allowed: true, Source: SourceNoMatchingAgent}
	}
	return Decision{
		Allowed:    group.Test(path),
		CrawlDelay: group.CrawlDelay,
		Source:     SourceRobotsTxt,
	}
}

func (p *acceleratedPolicy) CrawlDelay(agent string) time.Duration {
	token, ok := resolveAgentToken(agent, p.tokens, p.wildcard)
	if !ok {
		return 0
	}
	if group := p.data.FindGroup(token); group != nil {
		return group.CrawlDelay
	}
	return 0
}

func (p *acceleratedPolicy) Sitemaps() []string {
	return p.data.Sitemaps
}
