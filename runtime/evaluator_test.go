package runtime

import (
	"errors"
	"strings"
	"testing"
)

type author struct {
	Name  string
	Email string
	tags  []string
}

func (a author) Initials() string {
	var b strings.Builder
	for _, part := range strings.Fields(a.Name) {
		b.WriteString(part[:1])
	}
	return b.String()
}

func (a *author) Greeting(salutation string) string {
	return salutation + ", " + a.Name
}

func executeString(t *testing.T, env *Environment, source string, vars map[string]interface{}) string {
	t.Helper()

	tmpl, err := env.NewTemplate(source)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", source, err)
	}
	result, err := tmpl.ExecuteToString(vars)
	if err != nil {
		t.Fatalf("failed to render %q: %v", source, err)
	}
	return result
}

func TestEvaluatorExpressions(t *testing.T) {
	vars := map[string]interface{}{
		"user":   map[string]interface{}{"name": "Ada", "roles": []interface{}{"admin", "dev"}},
		"author": &author{Name: "Grace Brewster Hopper", Email: "grace@example.org"},
		"plain":  author{Name: "Alan Turing"},
		"counts": map[string]int{"a": 1},
		"items":  []string{"x", "y", "z"},
		"word":   "héllo",
		"add":    func(a, b int) int { return a + b },
		"fail":   func() (string, error) { return "", errors.New("boom") },
	}

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"text", "plain text", "plain text"},
		{"string literal", `{{ "lit" }}`, "lit"},
		{"integer literal", "{{ 42 }}", "42"},
		{"booleans", "{{ true }}/{{ False }}", "true/false"},
		{"map attribute", "{{ user.name }}", "Ada"},
		{"map item", `{{ user["name"] }}`, "Ada"},
		{"numeric attribute", "{{ user.roles.1 }}", "dev"},
		{"negative index", "{{ items[-1] }}", "z"},
		{"struct field through pointer", "{{ author.email }}", "grace@example.org"},
		{"method accessor", "{{ plain.initials }}", "AT"},
		{"method call", `{{ author.greeting("Hello") }}`, "Hello, Grace Brewster Hopper"},
		{"typed map", "{{ counts.a }}", "1"},
		{"string index", "{{ word[1] }}", "é"},
		{"function call", "{{ add(2, 3) }}", "5"},
		{"sequence", "{{ user.roles }}", "[admin, dev]"},
		{"missing attribute", "[{{ user.missing }}]", "[]"},
		{"unexported field", "[{{ plain.tags }}]", "[]"},
		{"undefined name", "[{{ nothing }}]", "[]"},
		{"comment", "a{# hidden #}b", "ab"},
	}

	env := NewEnvironment()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := executeString(t, env, tt.source, vars); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}

	tmpl, err := env.NewTemplate("{{ fail() }}")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if _, err := tmpl.ExecuteToString(vars); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected function error to propagate, got %v", err)
	}
}

func TestEvaluatorRenderErrors(t *testing.T) {
	vars := map[string]interface{}{"items": []string{"a"}, "n": 3}

	tests := []struct {
		name    string
		source  string
		message string
	}{
		{"call undefined", "{{ missing() }}", "'missing' is undefined and cannot be called"},
		{"call non function", "{{ n() }}", "int is not callable"},
		{"bad index type", `{{ items["a"] }}`, "invalid index type: string"},
		{"index a number", "{{ n[0] }}", "cannot index int"},
		{"wrong argument count", `{{ "x"|replace("a") }}`, "replace filter requires 2 arguments"},
		{"unknown filter", "{{ n|nope }}", "filter 'nope': unknown filter"},
	}

	env := NewEnvironment()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := env.NewTemplate(tt.source)
			if err != nil {
				t.Fatalf("failed to parse: %v", err)
			}
			_, err = tmpl.ExecuteToString(vars)
			if err == nil || !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected error containing %q, got %v", tt.message, err)
			}
		})
	}
}

func TestStrictUndefined(t *testing.T) {
	env := NewEnvironment()
	env.SetStrictUndefined(true)

	tmpl, err := env.NewTemplate("{{ missing }}")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	_, err = tmpl.ExecuteToString(nil)
	if !IsUndefinedError(err) {
		t.Fatalf("expected UndefinedError, got %v", err)
	}
	var undef *UndefinedError
	errors.As(err, &undef)
	if undef.Name != "missing" {
		t.Errorf("expected name missing, got %q", undef.Name)
	}

	tmpl, err = env.NewTemplate("{{ user.email }}")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	_, err = tmpl.ExecuteToString(map[string]interface{}{"user": map[string]interface{}{}})
	if !IsUndefinedError(err) || !strings.Contains(err.Error(), "'user.email' is undefined") {
		t.Errorf("expected undefined attribute error, got %v", err)
	}

	if got := executeString(t, env, `{{ missing|default("fallback") }}`, nil); got != "fallback" {
		t.Errorf("expected default to rescue an undefined name, got %q", got)
	}
}

func TestAutoescape(t *testing.T) {
	vars := map[string]interface{}{"html": "<a href=\"x\">&</a>", "safe": Markup("<b>ok</b>")}

	env := NewEnvironment()
	if got := executeString(t, env, "{{ html }}", vars); got != vars["html"] {
		t.Errorf("expected raw output without autoescape, got %q", got)
	}
	if got := executeString(t, env, "{{ html|e }}", vars); got != "&lt;a href=&#34;x&#34;&gt;&amp;&lt;/a&gt;" {
		t.Errorf("expected explicit escaping, got %q", got)
	}

	env.SetAutoescape(true)
	tests := []struct {
		source   string
		expected string
	}{
		{"{{ html }}", "&lt;a href=&#34;x&#34;&gt;&amp;&lt;/a&gt;"},
		{"{{ html|safe }}", "<a href=\"x\">&</a>"},
		{"{{ html|escape|escape }}", "&lt;a href=&#34;x&#34;&gt;&amp;&lt;/a&gt;"},
		{"{{ safe }}", "<b>ok</b>"},
		{"<p>{{ safe|upper }}</p>", "<p>&lt;B&gt;OK&lt;/B&gt;</p>"},
	}
	for _, tt := range tests {
		if got := executeString(t, env, tt.source, vars); got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.source, tt.expected, got)
		}
	}
}

func TestInclude(t *testing.T) {
	env := newMapEnvironment(map[string]string{
		"header":  `<h1>{{ title }}</h1>`,
		"page":    `{% include "header" %}<p>{{ body }}</p>`,
		"dynamic": `{% include partial %}`,
		"loop":    `{% include "loop" %}`,
		"broken":  `{% include "absent" %}`,
	})
	vars := map[string]interface{}{"title": "T", "body": "B", "partial": "header"}

	if got := renderTemplate(t, env, "page", vars); got != "<h1>T</h1><p>B</p>" {
		t.Errorf("unexpected include output %q", got)
	}
	if got := renderTemplate(t, env, "dynamic", vars); got != "<h1>T</h1>" {
		t.Errorf("unexpected dynamic include output %q", got)
	}

	loop, err := env.LoadTemplate("loop")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if _, err := loop.ExecuteToString(nil); err == nil || !strings.Contains(err.Error(), "circular template include detected: loop -> loop") {
		t.Errorf("expected circular include error, got %v", err)
	}

	broken, err := env.LoadTemplate("broken")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if _, err := broken.ExecuteToString(nil); !IsTemplateNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestTemplatesWithoutEnvironmentFeatures(t *testing.T) {
	ctx := NewContext(map[string]interface{}{"a": 1})
	if v, ok := ctx.Get("a"); !ok || v != 1 {
		t.Fatalf("expected variable a, got %v (%v)", v, ok)
	}
	if ctx.Environment() != nil {
		t.Error("expected no environment")
	}
	if ctx.RenderID() == "" {
		t.Error("expected a render id")
	}

	err := ctx.Push(map[string]interface{}{"a": 2, "b": 3}, func() error {
		if v, _ := ctx.Get("a"); v != 2 {
			t.Errorf("expected pushed binding to shadow, got %v", v)
		}
		return errors.New("stop")
	})
	if err == nil {
		t.Fatal("expected Push to return the callback error")
	}
	if v, _ := ctx.Get("a"); v != 1 {
		t.Errorf("expected the scope to be restored, got %v", v)
	}
	if ctx.Has("b") {
		t.Error("expected pushed bindings to be removed")
	}
}
