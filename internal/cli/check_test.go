package cli

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.html", "")
	writeFile(t, dir, "pages/home.J2", "")
	writeFile(t, dir, "pages/notes.go", "")
	writeFile(t, dir, ".hidden.html", "")
	writeFile(t, dir, ".git/index.html", "")

	got, err := templateFiles(dir)
	if err != nil {
		t.Fatalf("templateFiles() error: %v", err)
	}
	want := []string{"base.html", "pages/home.J2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("templateFiles() = %v, want %v", got, want)
	}
}

func TestRunCheck(t *testing.T) {
	dir := writeSite(t)
	c, logs := newTestCLI(t, dir)

	var out bytes.Buffer
	if err := c.runCheck(withLogger(context.Background(), c.Logger), &out, dir); err != nil {
		t.Fatalf("runCheck() error: %v\n%s", err, out.String())
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want no problems", out.String())
	}
	if !strings.Contains(logs.String(), "Checked 2 templates") {
		t.Errorf("logs = %q, want summary", logs.String())
	}
}

func TestRunCheckProblems(t *testing.T) {
	tests := []struct {
		name      string
		templates map[string]string
		wantLines []string
		wantErr   string
	}{
		{
			name:      "syntax error",
			templates: map[string]string{"broken.html": "{% block a %}unclosed"},
			wantLines: []string{"broken.html: "},
			wantErr:   "1 problems in 1 templates",
		},
		{
			name: "unknown parent",
			templates: map[string]string{
				"child.html": `{% extends "gone.html" %}`,
			},
			wantLines: []string{`child.html: extends unknown template "gone.html"`},
			wantErr:   "1 problems in 1 templates",
		},
		{
			name: "circular inheritance",
			templates: map[string]string{
				"a.html": `{% extends "b.html" %}`,
				"b.html": `{% extends "a.html" %}`,
			},
			wantLines: []string{
				"a.html: circular template inheritance: a.html -> b.html -> a.html",
				"b.html: circular template inheritance: b.html -> a.html -> b.html",
			},
			wantErr: "2 problems in 2 templates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.templates {
				writeFile(t, dir, name, content)
			}
			c, _ := newTestCLI(t, dir)

			var out bytes.Buffer
			err := c.runCheck(context.Background(), &out, dir)
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("runCheck() error = %v, want %q", err, tt.wantErr)
			}
			for _, line := range tt.wantLines {
				if !strings.Contains(out.String(), line) {
					t.Errorf("output = %q, want it to contain %q", out.String(), line)
				}
			}
		})
	}
}

func TestInheritanceCycle(t *testing.T) {
	parents := map[string]string{
		"a": "b",
		"b": "c",
		"c": "b",
		"x": "y",
	}

	if got := inheritanceCycle(parents, "a"); got != nil {
		t.Errorf("inheritanceCycle(a) = %v, want nil", got)
	}
	if got, want := inheritanceCycle(parents, "b"), []string{"b", "c", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("inheritanceCycle(b) = %v, want %v", got, want)
	}
	if got := inheritanceCycle(parents, "x"); got != nil {
		t.Errorf("inheritanceCycle(x) = %v, want nil", got)
	}
}
