package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "inherit.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.SearchPaths) != 1 || cfg.SearchPaths[0] != "." {
		t.Errorf("expected search_paths=[.], got %v", cfg.SearchPaths)
	}
	if cfg.Redis.Prefix != "templates:" {
		t.Errorf("expected redis.prefix=templates:, got %s", cfg.Redis.Prefix)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("expected server.addr=127.0.0.1:8080, got %s", cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv(EnvVar, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	path := writeConfig(t, `
search_paths = ["templates", "${INHERIT_TEST_SHARED:-shared}"]
autoescape = true
strict_undefined = true
cache_ttl = "90s"

[redis]
addr = "localhost:6379"
db = 2

[server]
addr = ":9000"
`)
	t.Setenv(EnvVar, path)
	t.Setenv("INHERIT_TEST_SHARED", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if strings.Join(cfg.SearchPaths, ",") != "templates,shared" {
		t.Errorf("unexpected search_paths %v", cfg.SearchPaths)
	}
	if !cfg.Autoescape || !cfg.StrictUndefined {
		t.Error("expected autoescape and strict_undefined to be set")
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("expected cache_ttl=90s, got %s", cfg.CacheTTL)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.Redis.Prefix != "templates:" {
		t.Errorf("expected the default prefix to survive, got %q", cfg.Redis.Prefix)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected server.addr=:9000, got %s", cfg.Server.Addr)
	}
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv(EnvVar, filepath.Join(t.TempDir(), "missing.toml"))
	path := writeConfig(t, `search_paths = ["flag"]`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.SearchPaths) != 1 || cfg.SearchPaths[0] != "flag" {
		t.Errorf("expected the explicit path to win, got %v", cfg.SearchPaths)
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("INHERIT_TEST_ROOT", "/srv/site")
	path := writeConfig(t, `search_paths = ["${INHERIT_TEST_ROOT}/templates"]`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.SearchPaths[0] != "/srv/site/templates" {
		t.Errorf("expected expanded path, got %s", cfg.SearchPaths[0])
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", `search_paths = [`, "parse config"},
		{"unknown key", `searchpaths = ["x"]`, "unknown key searchpaths"},
		{"no sources", `search_paths = []`, "search_paths or redis.addr is required"},
		{"empty path", `search_paths = ["a", ""]`, "search_paths[1] is empty"},
		{"negative ttl", `cache_ttl = "-1s"`, "cache_ttl must not be negative"},
		{"negative db", "[redis]\ndb = -1", "redis.db must not be negative"},
		{"empty server", "[server]\naddr = \"\"", "server.addr is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("expected read error, got %v", err)
	}
}
