package pattern

import (
	"testing"
)

func TestMatchBasicTemplates(t *testing.T) {
	m := NewMatcher()
	if err := m.Register(Spec{
		Name:       "product",
		Template:   "/products/:id",
		Activities: []string{"extract-product"},
		Priority:   1,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(Spec{
		Name:     "category",
		Template: "/categories/*/items/:item",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name       string
		url        string
		wantName   string
		wantParams map[string]string
	}{
		{
			name:       "simple placeholder",
			url:        "https://shop.example.com/products/42",
			wantName:   "product",
			wantParams: map[string]string{"id": "42"},
		},
		{
			name:       "wildcard segment",
			url:        "https://shop.example.com/categories/books/items/dune",
			wantName:   "category",
			wantParams: map[string]string{"item": "dune"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.url)
			if got == nil {
				t.Fatalf("Match(%s) = nil", tt.url)
			}
			if got.Name != tt.wantName {
				t.Errorf("Match(%s).Name = %q, want %q", tt.url, got.Name, tt.wantName)
			}
			for k, v := range tt.wantParams {
				if got.Params[k] != v {
					t.Errorf("Match(%s).Params[%s] = %q, want %q", tt.url, k, got.Params[k], v)
				}
			}
		})
	}
}

func TestPlaceholderDoesNotSpanSeparator(t *testing.T) {
	m := NewMatcher()
	if err := m.Register(Spec{Name: "user", Template: "/users/:id", Priority: 1}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(Spec{Name: "user-sub", Template: "/users/:id/**", Priority: 0}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got := m.Match("https://example.com/users/42")
	if got == nil || got.Name != "user" {
		t.Fatalf("Match(/users/42) = %+v, want pattern %q", got, "user")
	}
	if got.Params["id"] != "42" {
		t.Errorf("Params[id] = %q, want %q", got.Params["id"], "42")
	}

	got = m.Match("https://example.com/users/42/profile")
	if got == nil || got.Name != "user-sub" {
		t.Fatalf("Match(/users/42/profile) = %+v, want pattern %q", got, "user-sub")
	}
}

func TestParamCountBreaksPriorityTies(t *testing.T) {
	m := NewMatcher()
	if err := m.Register(Spec{Name: "coarse", Template: "/blog/**"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(Spec{Name: "fine", Template: "/blog/:year/:slug"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got := m.Match("https://example.com/blog/2024/launch")
	if got == nil || got.Name != "fine" {
		t.Fatalf("Match = %+v, want pattern %q (more extracted params)", got, "fine")
	}
	if got.Params["year"] != "2024" || got.Params["slug"] != "launch" {
		t.Errorf("Params = %v, want year/slug extracted", got.Params)
	}
}

func TestOptionalPlaceholder(t *testing.T) {
	m := NewMatcher()
	if err := m.Register(Spec{Name: "listing", Template: "/listing/:page?"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got := m.Match("https://example.com/listing/3")
	if got == nil || got.Params["page"] != "3" {
		t.Fatalf("Match(/listing/3) = %+v, want page=3", got)
	}

	got = m.Match("https://example.com/listing/")
	if got == nil {
		t.Fatal("Match(/listing/) = nil, optional placeholder should accept empty")
	}
	if got.Params["page"] != "" {
		t.Errorf("Params[page] = %q, want empty capture", got.Params["page"])
	}
}

func TestQueryClauseParams(t *testing.T) {
	m := NewMatcher()
	if err := m.Register(Spec{Name: "search", Template: "/search?q=:query&page=:page"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got := m.Match("https://example.com/search?q=golang")
	if got == nil || got.Name != "search" {
		t.Fatalf("Match = %+v, want search pattern", got)
	}
	if got.Params["query"] != "golang" {
		t.Errorf("Params[query] = %q, want %q", got.Params["query"], "golang")
	}
	if _, ok := got.Params["page"]; ok {
		t.Errorf("absent query key should not produce a parameter, got %v", got.Params)
	}

	// Missing query entirely still matches the path.
	if got := m.Match("https://example.com/search"); got == nil || got.Name != "search" {
		t.Fatalf("Match without query = %+v, want search pattern", got)
	}
}

func TestDefaultPattern(t *testing.T) {
	m := NewMatcher()
	if err := m.Register(Spec{Name: "docs", Template: "/docs/**"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got := m.Match("https://example.com/pricing"); got != nil {
		t.Fatalf("Match with no default = %+v, want nil", got)
	}

	m.RegisterDefault(Spec{Name: "generic", Activities: []string{"extract-links"}})
	got := m.Match("https://example.com/pricing")
	if got == nil || !got.Default {
		t.Fatalf("Match = %+v, want default result", got)
	}
	if got.Name != "generic" || len(got.Params) != 0 {
		t.Errorf("default result = %+v, want name=generic with empty params", got)
	}
}

func TestMalformedTemplateMatchesNothing(t *testing.T) {
	m := NewMatcher()
	if err := m.Register(Spec{Name: "broken", Template: "/x/:"}); err == nil {
		t.Fatal("Register with malformed template should report an error")
	}
	if got := m.Match("https://example.com/x/anything"); got != nil {
		t.Errorf("malformed template matched: %+v", got)
	}
}

func TestStats(t *testing.T) {
	m := NewMatcher()
	if err := m.Register(Spec{Name: "home", Template: "/"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	m.Match("https://example.com/")
	m.Match("https://example.com/missing")

	matched, missed := m.Stats()
	if matched != 1 || missed != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", matched, missed)
	}
}
