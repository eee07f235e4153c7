package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDataFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "vars.json", `{"title": "Home", "count": 2}`},
		{"jsonc with comments", "vars.jsonc", "{\n  // page title\n  \"title\": \"Home\",\n  \"count\": 2,\n}"},
		{"yaml", "vars.yaml", "title: Home\ncount: 2\n"},
		{"yml", "vars.yml", "title: Home\ncount: 2\n"},
		{"toml", "vars.toml", "title = \"Home\"\ncount = 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			vars, err := loadDataFile(path)
			if err != nil {
				t.Fatalf("loadDataFile() error: %v", err)
			}
			if vars["title"] != "Home" {
				t.Errorf("title = %v, want Home", vars["title"])
			}
			if _, ok := vars["count"]; !ok {
				t.Error("count missing")
			}
		})
	}
}

func TestLoadDataFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing", filepath.Join(dir, "nope.json"), "read data file"},
		{"unsupported", writeFile(t, dir, "vars.ini", "a=b"), "unsupported data file"},
		{"bad json", writeFile(t, dir, "bad.json", "{"), "parse data file"},
		{"bad yaml", writeFile(t, dir, "bad.yaml", "a: [1, 2"), "parse data file"},
		{"bad toml", writeFile(t, dir, "bad.toml", "a = "), "parse data file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadDataFile(tt.path)
			if err == nil {
				t.Fatal("loadDataFile() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadVars(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vars.json", `{"title": "From file", "site": "Docs"}`)

	vars, err := loadVars(path, []string{"title=From flag", "empty=", "expr=a=b"})
	if err != nil {
		t.Fatalf("loadVars() error: %v", err)
	}

	want := map[string]interface{}{
		"title": "From flag",
		"site":  "Docs",
		"empty": "",
		"expr":  "a=b",
	}
	for key, value := range want {
		if vars[key] != value {
			t.Errorf("vars[%q] = %v, want %v", key, vars[key], value)
		}
	}
}

func TestLoadVarsInvalidAssignment(t *testing.T) {
	for _, assignment := range []string{"novalue", "=value", " =x"} {
		if _, err := loadVars("", []string{assignment}); err == nil {
			t.Errorf("loadVars(%q) error = nil, want error", assignment)
		}
	}
}
