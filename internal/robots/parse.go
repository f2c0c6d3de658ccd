package robots

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// pathRule is one Allow/Disallow directive compiled for matching.
// Specificity is the literal (non-wildcard) character count of the
// original directive value; the most specific matching rule wins.
type pathRule struct {
	raw         string
	allow       bool
	re          *regexp.Regexp
	specificity int
}

// agentGroup collects the rules attached to one user-agent token.
type agentGroup struct {
	rules      []pathRule
	crawlDelay time.Duration
}

// nativePolicy is the built-in parsed representation of a robots.txt
// document.
type nativePolicy struct {
	groups   map[string]*agentGroup
	sitemaps []string
}

// parseNative parses robots.txt content line by line. Comments are
// stripped before tokenizing Directive: value pairs. Consecutive
// User-agent lines accumulate into one group; a User-agent line that
// follows rules already attached to the current group starts a new one.
func parseNative(content string) policy {
	p := &nativePolicy{groups: make(map[string]*agentGroup)}

	var current []*agentGroup
	rulesAttached := false

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch directive {
		case "user-agent":
			if rulesAttached {
				current = nil
				rulesAttached = false
			}
			token := strings.ToLower(value)
			if token == "" {
				continue
			}
			g, ok := p.groups[token]
			if !ok {
				g = &agentGroup{}
				p.groups[token] = g
			}
			current = append(current, g)

		case "allow", "disallow":
			rulesAttached = true
			if len(current) == 0 || value == "" {
				continue
			}
			re, spec := compileRulePattern(value)
			if re == nil {
				continue
			}
			rule := pathRule{raw: value, allow: directive == "allow", re: re, specificity: spec}
			for _, g := range current {
				g.rules = append(g.rules, rule)
			}

		case "crawl-delay":
			rulesAttached = true
			if secs, err := strconv.ParseFloat(value, 64); err == nil && secs >= 0 {
				delay := time.Duration(secs * float64(time.Second))
				for _, g := range current {
					g.crawlDelay = delay
				}
			}

		case "sitemap":
			if value != "" {
				p.sitemaps = append(p.sitemaps, value)
			}
		}
	}

	return p
}

// compileRulePattern turns a directive value into an anchored matcher:
// literals are escaped, * becomes an any-sequence wildcard, a trailing $
// anchors the end, and anything else matches as a prefix.
func compileRulePattern(value string) (*regexp.Regexp, int) {
	anchored := strings.HasSuffix(value, "$")
	body := value
	if anchored {
		body = strings.TrimSuffix(body, "$")
	}

	specificity := len(strings.ReplaceAll(body, "*", ""))

	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(body, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchored {
		b.WriteString("$")
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, 0
	}
	return re, specificity
}

// Decide resolves the agent group and applies the longest-literal-match
// rule. A tie between conflicting rules, or no matching rule at all,
// defaults to allowed.
func (p *nativePolicy) Decide(agent, path string) Decision {
	group, ok := p.resolveGroup(agent)
	if !ok {
		return Decision{Allowed: true, Source: SourceNoMatchingAgent}
	}

	bestAllow, bestDisallow := -1, -1
	var allowRule, disallowRule string
	for _, rule := range group.rules {
		if !rule.re.MatchString(path) {
			continue
		}
		if rule.allow {
			if rule.specificity > bestAllow {
				bestAllow = rule.specificity
				allowRule = rule.raw
			}
		} else if rule.specificity > bestDisallow {
			bestDisallow = rule.specificity
			disallowRule = rule.raw
		}
	}

	d := Decision{
		Allowed:    true,
		CrawlDelay: group.crawlDelay,
		Source:     SourceRobotsTxt,
	}
	switch {
	case bestDisallow > bestAllow:
		d.Allowed = false
		d.MatchedRule = disallowRule
	case bestAllow >= 0:
		d.MatchedRule = allowRule
	}
	return d
}

// CrawlDelay returns the delay of the resolved agent group.
func (p *nativePolicy) CrawlDelay(agent string) time.Duration {
	if group, ok := p.resolveGroup(agent); ok {
		return group.crawlDelay
	}
	return 0
}

// Sitemaps returns the document's sitemap URLs.
func (p *nativePolicy) Sitemaps() []string {
	return p.sitemaps
}

// resolveGroup resolves the agent group for this document.
func (p *nativePolicy) resolveGroup(agent string) (*agentGroup, bool) {
	tokens := make([]string, 0, len(p.groups))
	for token := range p.groups {
		if token != "*" {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	_, wildcard := p.groups["*"]

	token, ok := resolveAgentToken(agent, tokens, wildcard)
	if !ok {
		return nil, false
	}
	return p.groups[token], true
}

// resolveAgentToken applies the agent resolution order shared by both
// parsing backends: exact case-insensitive match, then substring
// containment in either direction against a registered token, then the
// wildcard group. Tokens must be lowercased and sorted; wildcard
// reports whether a * group exists.
func resolveAgentToken(agent string, tokens []string, wildcard bool) (string, bool) {
	agent = strings.ToLower(agent)

	for _, token := range tokens {
		if token == agent {
			return token, true
		}
	}
	for _, token := range tokens {
		if strings.Contains(agent, token) || strings.Contains(token, agent) {
			return token, true
		}
	}
	if wildcard {
		return "*", true
	}
	return "", false
}
