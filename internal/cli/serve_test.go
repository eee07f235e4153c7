package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deicod/inherit/runtime"
)

func newTestServer(t *testing.T, strict bool) *httptest.Server {
	t.Helper()
	env := runtime.NewEnvironment()
	env.SetStrictUndefined(strict)
	env.SetLoader(runtime.NewMapLoader(map[string]string{
		"base.html": "<h1>{% block title %}Site{% endblock %}</h1>",
		"page.html": `{% extends "base.html" %}{% block title %}{{ title }}{% endblock %}`,
		"list.txt":  "{{ tag | join(\",\") }}",
		"orphan.md": `{% extends "missing.md" %}`,
	}))

	srv := httptest.NewServer(newRouter(env, newLogger(&bytes.Buffer{}, LogInfo)))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body.String()
}

func TestServeHealthz(t *testing.T) {
	srv := newTestServer(t, false)

	status, _, body := get(t, srv.URL+"/healthz")
	if status != http.StatusOK || body != "ok\n" {
		t.Errorf("GET /healthz = %d %q, want 200 \"ok\\n\"", status, body)
	}
}

func TestServeRender(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		strict     bool
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{"extends with query var", "/render/page.html?title=Hello", false, http.StatusOK, "text/html", "<h1>Hello</h1>"},
		{"repeated params become a list", "/render/list.txt?tag=a&tag=b", false, http.StatusOK, "text/plain", "a,b"},
		{"unknown template", "/render/nope.html", false, http.StatusNotFound, "", "template nope.html not found"},
		{"unknown parent", "/render/orphan.md", false, http.StatusNotFound, "", "template missing.md not found"},
		{"strict undefined", "/render/page.html", true, http.StatusInternalServerError, "", "title"},
		{"no name", "/render/", false, http.StatusBadRequest, "", "template name required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.strict)

			status, contentType, body := get(t, srv.URL+tt.path)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", status, tt.wantStatus, body)
			}
			if !strings.Contains(body, tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBody)
			}
			if tt.wantType != "" && !strings.HasPrefix(contentType, tt.wantType) {
				t.Errorf("Content-Type = %q, want %q", contentType, tt.wantType)
			}
		})
	}
}

func TestQueryVars(t *testing.T) {
	vars := queryVars(map[string][]string{
		"one":  {"1"},
		"many": {"a", "b"},
	})

	if vars["one"] != "1" {
		t.Errorf("one = %v, want 1", vars["one"])
	}
	list, ok := vars["many"].([]interface{})
	if !ok || len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("many = %#v, want [a b]", vars["many"])
	}
}

func TestServeRenderStaysInsideTemplateDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "secret.txt", "TOP SECRET")
	writeFile(t, root, "templates/index.html", "home")

	env := runtime.NewEnvironment()
	env.SetLoader(runtime.NewFileSystemLoader(filepath.Join(root, "templates")))
	router := newRouter(env, newLogger(&bytes.Buffer{}, LogInfo))

	for _, target := range []string{"/render/../secret.txt", "/render/a/../../secret.txt"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", target, rec.Code, http.StatusNotFound)
		}
		if strings.Contains(rec.Body.String(), "TOP SECRET") {
			t.Errorf("GET %s leaked a file outside the template directory", target)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render/index.html", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "home" {
		t.Errorf("GET /render/index.html = %d %q, want 200 \"home\"", rec.Code, rec.Body.String())
	}
}
