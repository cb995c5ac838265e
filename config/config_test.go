package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(`base_dir: /srv/docs`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Host != "localhost" {
		t.Errorf("Host = %q, want %q", cfg.Host, "localhost")
	}
	if cfg.Port != 5009 {
		t.Errorf("Port = %d, want 5009", cfg.Port)
	}
	if cfg.Language != "en" || cfg.Version != "latest" || cfg.DefaultDocument != "index.html" {
		t.Errorf("prefix = %s/%s/%s, want en/latest/index.html", cfg.Language, cfg.Version, cfg.DefaultDocument)
	}
	if !cfg.OpenBrowser {
		t.Error("OpenBrowser = false, want true")
	}
	if !cfg.Prompt {
		t.Error("Prompt = false, want true")
	}
	if cfg.BrowserDelay.Duration() != 0 {
		t.Errorf("BrowserDelay = %v, want 0", cfg.BrowserDelay.Duration())
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v, want INFO", cfg.Level())
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if cfg.BaseDir != "" {
		t.Errorf("BaseDir = %q, want empty before Resolve", cfg.BaseDir)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
host: 127.0.0.1
port: 8000
base_dir: /srv/docs
doc_root: site
switcher: /etc/docs/versions.json
language: ja
version: "3.4"
default_document: guide/start.html
open_browser: false
browser_delay: 750ms
prompt: false
log_level: debug
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want %q", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.BaseDir != "/srv/docs" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/srv/docs")
	}
	if cfg.DocRoot != "site" {
		t.Errorf("DocRoot = %q, want %q", cfg.DocRoot, "site")
	}
	if cfg.Switcher != "/etc/docs/versions.json" {
		t.Errorf("Switcher = %q, want %q", cfg.Switcher, "/etc/docs/versions.json")
	}
	if cfg.Version != "3.4" {
		t.Errorf("Version = %q, want %q", cfg.Version, "3.4")
	}
	if cfg.DefaultDocument != "guide/start.html" {
		t.Errorf("DefaultDocument = %q, want %q", cfg.DefaultDocument, "guide/start.html")
	}
	if cfg.OpenBrowser {
		t.Error("OpenBrowser = true, want false")
	}
	if cfg.Prompt {
		t.Error("Prompt = true, want false")
	}
	if cfg.BrowserDelay.Duration() != 750*time.Millisecond {
		t.Errorf("BrowserDelay = %v, want 750ms", cfg.BrowserDelay.Duration())
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want DEBUG", cfg.Level())
	}
	if got, want := cfg.DefaultURL(), "http://127.0.0.1:8000/ja/3.4/guide/start.html"; got != want {
		t.Errorf("DefaultURL() = %q, want %q", got, want)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_DOCS_HOME", "/home/dev/project")

	yaml := `
base_dir: ${TEST_DOCS_HOME}/docs
switcher: ${TEST_DOCS_HOME}/switcher.json
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.BaseDir != "/home/dev/project/docs" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/home/dev/project/docs")
	}
	if cfg.Switcher != "/home/dev/project/switcher.json" {
		t.Errorf("Switcher = %q, want %q", cfg.Switcher, "/home/dev/project/switcher.json")
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `base_dir: ${UNDEFINED_DOCS_VAR_12345:-/opt/docs}`

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.BaseDir != "/opt/docs" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/opt/docs")
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `doc_root: ${UNDEFINED_DOCS_VAR_67890}/html`

	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "doc_root") || !strings.Contains(err.Error(), "UNDEFINED_DOCS_VAR_67890") {
		t.Errorf("error = %v, want it to name the field and variable", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{"empty host", `host: ""`, "host is required"},
		{"port zero", `port: 0`, "port must be between 1 and 65535"},
		{"port too high", `port: 70000`, "port must be between 1 and 65535"},
		{"language with slash", `language: en/us`, "language must be a single path segment"},
		{"empty version", `version: ""`, "version is required"},
		{"dot-dot version", `version: ".."`, "version must be a single path segment"},
		{"absolute document", `default_document: /index.html`, "relative slash-separated"},
		{"escaping document", `default_document: ../secret.html`, `must not contain ".."`},
		{"dot document", `default_document: .`, "must name a file"},
		{"negative delay", `browser_delay: -1s`, "browser_delay cannot be negative"},
		{"delay too long", `browser_delay: 5m`, "browser_delay must not exceed 1m0s"},
		{"invalid delay", `browser_delay: soon`, "invalid duration"},
		{"unknown log level", `log_level: trace`, "log_level must be debug, info, warn, or error"},
		{"malformed yaml", "port: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() expected error containing %q, got nil", tt.wantErrLike)
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("Parse() error = %v, want error containing %q", err, tt.wantErrLike)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docserve.yaml")
	if err := os.WriteFile(path, []byte("port: 6000\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 6000 {
		t.Errorf("Port = %d, want 6000", cfg.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DOCSERVE_HOST", "0.0.0.0")
	t.Setenv("DOCSERVE_PORT", "7001")
	t.Setenv("DOCSERVE_BASE_DIR", "/env/docs")
	t.Setenv("DOCSERVE_OPEN_BROWSER", "false")
	t.Setenv("DOCSERVE_BROWSER_DELAY", "2s")
	t.Setenv("DOCSERVE_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.Version = "dev"

	if err := FromEnv(cfg); err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want %q", cfg.Host, "0.0.0.0")
	}
	if cfg.Port != 7001 {
		t.Errorf("Port = %d, want 7001", cfg.Port)
	}
	if cfg.BaseDir != "/env/docs" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/env/docs")
	}
	if cfg.OpenBrowser {
		t.Error("OpenBrowser = true, want false")
	}
	if cfg.BrowserDelay.Duration() != 2*time.Second {
		t.Errorf("BrowserDelay = %v, want 2s", cfg.BrowserDelay.Duration())
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("Level() = %v, want WARN", cfg.Level())
	}

	// unset variables keep the existing value
	if cfg.Version != "dev" {
		t.Errorf("Version = %q, want %q", cfg.Version, "dev")
	}
	if !cfg.Prompt {
		t.Error("Prompt = false, want default true")
	}
}

func TestFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("DOCSERVE_PORT", "eighty")

	err := FromEnv(Default())
	if err == nil {
		t.Fatal("FromEnv() expected error for non-numeric port, got nil")
	}
	if !errors.Is(err, ErrParsingEnv) {
		t.Errorf("FromEnv() error = %v, want ErrParsingEnv", err)
	}
}

func TestFromEnv_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DOCSERVE_VERSION=nightly\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		// godotenv writes into the process environment
		_ = os.Unsetenv("DOCSERVE_VERSION")
	})

	cfg := Default()
	if err := FromEnv(cfg); err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Version != "nightly" {
		t.Errorf("Version = %q, want %q from .env", cfg.Version, "nightly")
	}
}

func TestResolve_DefaultLayout(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.BaseDir = base

	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if want := filepath.Join(base, "build", "html"); cfg.DocRoot != want {
		t.Errorf("DocRoot = %q, want %q", cfg.DocRoot, want)
	}
	if want := filepath.Join(base, "switcher.json"); cfg.Switcher != want {
		t.Errorf("Switcher = %q, want %q", cfg.Switcher, want)
	}
	if !cfg.Resolved() {
		t.Error("Resolved() = false after Resolve")
	}
}

func TestResolve_RelativeToBaseDir(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.BaseDir = base
	cfg.DocRoot = "site/html"
	cfg.Switcher = "/etc/versions.json"

	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if want := filepath.Join(base, "site", "html"); cfg.DocRoot != want {
		t.Errorf("DocRoot = %q, want %q", cfg.DocRoot, want)
	}
	if cfg.Switcher != "/etc/versions.json" {
		t.Errorf("Switcher = %q, want absolute path kept", cfg.Switcher)
	}
}

func TestResolve_OnlyOnce(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = t.TempDir()

	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	first := *cfg

	// later edits to the layout fields are not re-resolved
	cfg.DocRoot = "relative"
	if err := cfg.Resolve(); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if cfg.DocRoot != "relative" || cfg.BaseDir != first.BaseDir {
		t.Errorf("second Resolve() changed the config: DocRoot = %q", cfg.DocRoot)
	}
}

func TestResolve_DefaultsToExecutableDir(t *testing.T) {
	want, err := DefaultBaseDir()
	if err != nil {
		t.Fatalf("DefaultBaseDir() error = %v", err)
	}

	cfg := Default()
	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.BaseDir != want {
		t.Errorf("BaseDir = %q, want executable dir %q", cfg.BaseDir, want)
	}
	if !filepath.IsAbs(cfg.DocRoot) {
		t.Errorf("DocRoot = %q, want absolute", cfg.DocRoot)
	}
}

func TestResolve_ValidatesFirst(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = t.TempDir()
	cfg.Port = 0

	if err := cfg.Resolve(); err == nil {
		t.Fatal("Resolve() expected validation error, got nil")
	}
	if cfg.Resolved() {
		t.Error("Resolved() = true after failed Resolve")
	}
}

func TestDefaultURL_IPv6(t *testing.T) {
	cfg := Default()
	cfg.Host = "::1"

	if got, want := cfg.DefaultURL(), "http://[::1]:5009/en/latest/index.html"; got != want {
		t.Errorf("DefaultURL() = %q, want %q", got, want)
	}
}
