// Package pattern classifies URLs against named path templates.
// Templates support literal segments, single-segment wildcards (*),
// multi-segment wildcards (**), required placeholders (:name), optional
// placeholders (:name?) and a trailing query clause (?key=:param) that
// pulls additional parameters from the URL's query string.
package pattern

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Spec describes a pattern to register with a Matcher.
type Spec struct {
	Name       string            `mapstructure:"name" yaml:"name"`
	Template   string            `mapstructure:"template" yaml:"template"`
	Activities []string          `mapstructure:"activities" yaml:"activities"`
	Extract    map[string]string `mapstructure:"extract" yaml:"extract"`
	Priority   int               `mapstructure:"priority" yaml:"priority"`
	Metadata   map[string]any    `mapstructure:"metadata" yaml:"metadata"`
}

// Result is the outcome of classifying a URL.
type Result struct {
	Name       string
	Template   string
	Params     map[string]string
	Activities []string
	Extract    map[string]string
	Metadata   map[string]any
	Priority   int
	Default    bool
}

// compiledPattern holds a template compiled into a regular expression.
// The expression is a pure function of the template; a template that fails
// to compile yields a matcher that matches nothing.
type compiledPattern struct {
	spec        Spec
	re          *regexp.Regexp
	paramNames  []string          // ordered path placeholders
	queryParams map[string]string // query key -> parameter name
	order       int               // registration order, stable tie-break
}

// Matcher classifies URLs against registered patterns. Registration is
// guarded by a mutex; Match performs pure computation over the compiled
// set and never returns an error.
type Matcher struct {
	mu       sync.RWMutex
	patterns []*compiledPattern
	fallback *compiledPattern

	matched int64
	missed  int64
}

// NewMatcher returns an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Register compiles the template and adds it to the matcher. A malformed
// template is reported once here; the stored pattern then simply never
// matches, so Match stays error-free.
func (m *Matcher) Register(spec Spec) error {
	cp, err := compileTemplate(spec)

	m.mu.Lock()
	cp.order = len(m.patterns)
	m.patterns = append(m.patterns, cp)
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("pattern %q: %w", spec.Name, err)
	}
	return nil
}

// RegisterDefault sets the pattern returned when nothing else matches.
// The default's template is not compiled; it matches by absence.
func (m *Matcher) RegisterDefault(spec Spec) {
	m.mu.Lock()
	m.fallback = &compiledPattern{spec: spec}
	m.mu.Unlock()
}

// Match classifies rawURL. Every registered pattern whose matcher accepts
// the URL path becomes a candidate; candidates are ranked by explicit
// priority (descending), then extracted-parameter count (descending), then
// registration order. When nothing matches, the default pattern (if any)
// is returned with empty parameters; otherwise Match returns nil.
func (m *Matcher) Match(rawURL string) *Result {
	u, err := url.Parse(rawURL)
	if err != nil {
		return m.noMatch()
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	type candidate struct {
		cp     *compiledPattern
		params map[string]string
		count  int
	}

	m.mu.RLock()
	patterns := m.patterns
	m.mu.RUnlock()

	var candidates []candidate
	for _, cp := range patterns {
		if cp.re == nil {
			continue
		}
		groups := cp.re.FindStringSubmatch(path)
		if groups == nil {
			continue
		}

		params := make(map[string]string, len(cp.paramNames))
		count := 0
		for i, name := range cp.paramNames {
			params[name] = groups[i+1]
			if groups[i+1] != "" {
				count++
			}
		}
		// Query-clause parameters are independent of the path match and
		// never cause it to fail when absent.
		if len(cp.queryParams) > 0 {
			q := u.Query()
			for key, name := range cp.queryParams {
				if v := q.Get(key); v != "" {
					params[name] = v
					count++
				}
			}
		}
		candidates = append(candidates, candidate{cp: cp, params: params, count: count})
	}

	if len(candidates) == 0 {
		return m.noMatch()
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].cp.spec.Priority != candidates[j].cp.spec.Priority {
			return candidates[i].cp.spec.Priority > candidates[j].cp.spec.Priority
		}
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].cp.order < candidates[j].cp.order
	})

	best := candidates[0]
	m.mu.Lock()
	m.matched++
	m.mu.Unlock()

	return &Result{
		Name:       best.cp.spec.Name,
		Template:   best.cp.spec.Template,
		Params:     best.params,
		Activities: best.cp.spec.Activities,
		Extract:    best.cp.spec.Extract,
		Metadata:   best.cp.spec.Metadata,
		Priority:   best.cp.spec.Priority,
	}
}

// noMatch returns the default result when one is registered, nil otherwise.
func (m *Matcher) noMatch() *Result {
	m.mu.Lock()
	m.missed++
	fallback := m.fallback
	m.mu.Unlock()

	if fallback == nil {
		return nil
	}
	return &Result{
		Name:       fallback.spec.Name,
		Template:   fallback.spec.Template,
		Params:     map[string]string{},
		Activities: fallback.spec.Activities,
		Extract:    fallback.spec.Extract,
		Metadata:   fallback.spec.Metadata,
		Priority:   fallback.spec.Priority,
		Default:    true,
	}
}

// Stats reports how many Match calls resolved to a pattern and how many
// fell through to the default (or nil).
func (m *Matcher) Stats() (matched, missed int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matched, m.missed
}

// compileTemplate converts a template into an anchored regular expression.
// Literal characters are escaped, ** maps to an unrestricted sequence,
// * maps to a non-separator sequence, :name to a required capture and
// :name? to an optional capture. A trailing ?key=:param clause registers
// query-string parameters and is stripped from the path expression.
func compileTemplate(spec Spec) (*compiledPattern, error) {
	cp := &compiledPattern{spec: spec}

	tmpl := spec.Template
	if tmpl == "" {
		return cp, fmt.Errorf("empty template")
	}

	// Distinguish a trailing query clause from an optional placeholder's
	// '?': a clause always contains '=' and never a path separator.
	if idx := strings.LastIndex(tmpl, "?"); idx >= 0 {
		clause := tmpl[idx+1:]
		if strings.Contains(clause, "=") && !strings.Contains(clause, "/") {
			qp, err := parseQueryClause(clause)
			if err != nil {
				return cp, err
			}
			cp.queryParams = qp
			tmpl = tmpl[:idx]
		}
	}

	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(tmpl); {
		switch {
		case strings.HasPrefix(tmpl[i:], "**"):
			b.WriteString(".*")
			i += 2
		case tmpl[i] == '*':
			b.WriteString("[^/]*")
			i++
		case tmpl[i] == ':':
			j := i + 1
			for j < len(tmpl) && isParamChar(tmpl[j]) {
				j++
			}
			name := tmpl[i+1 : j]
			if name == "" {
				return cp, fmt.Errorf("placeholder with no name at offset %d", i)
			}
			if j < len(tmpl) && tmpl[j] == '?' {
				b.WriteString("([^/]*)")
				j++
			} else {
				b.WriteString("([^/]+)")
			}
			cp.paramNames = append(cp.paramNames, name)
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(tmpl[i])))
			i++
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return cp, fmt.Errorf("compile template: %w", err)
	}
	cp.re = re
	return cp, nil
}

// parseQueryClause parses "key=:param&key2=:param2" into a key->param map.
func parseQueryClause(clause string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(clause, "&") {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 || !strings.HasPrefix(kv[1], ":") || len(kv[1]) < 2 {
			return nil, fmt.Errorf("malformed query clause %q", part)
		}
		out[kv[0]] = kv[1][1:]
	}
	return out, nil
}

func isParamChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
