// Package config provides YAML and environment configuration for docserve.
//
// This package backs the docserve command; programs embedding the library
// can use the docserve options directly instead.
//
// Example configuration:
//
//	host: localhost
//	port: 5009
//	base_dir: ${HOME}/src/project/docs
//
//	language: en
//	version: latest
//	default_document: index.html
//
//	open_browser: true
//	browser_delay: 0s
//	log_level: info
//
// Environment variables prefixed with DOCSERVE_ override the file; see
// [FromEnv].
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// maxBrowserDelay is the longest browser_delay accepted.
const maxBrowserDelay = time.Minute

// ErrParsingEnv is returned by [FromEnv] when an override cannot be parsed.
var ErrParsingEnv = errors.New("failed to parse environment overrides")

// Config is the root configuration structure for docserve.
//
// It maps directly to the YAML configuration file structure. Use [Load],
// [Parse] or [Default] to create one, then [Config.Resolve] before use.
type Config struct {
	// Host is the interface to bind. Defaults to "localhost".
	Host string `yaml:"host" env:"DOCSERVE_HOST"`

	// Port is the TCP port. Defaults to 5009.
	Port int `yaml:"port" env:"DOCSERVE_PORT"`

	// BaseDir is the directory holding build/html and switcher.json.
	// Defaults to the directory of the running executable.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseDir string `yaml:"base_dir" env:"DOCSERVE_BASE_DIR"`

	// DocRoot overrides <base_dir>/build/html. Relative paths are taken
	// from BaseDir.
	DocRoot string `yaml:"doc_root" env:"DOCSERVE_DOC_ROOT"`

	// Switcher overrides <base_dir>/switcher.json. Relative paths are taken
	// from BaseDir.
	Switcher string `yaml:"switcher" env:"DOCSERVE_SWITCHER"`

	// Language is the first URL segment. Defaults to "en".
	Language string `yaml:"language" env:"DOCSERVE_LANGUAGE"`

	// Version is the second URL segment. Defaults to "latest".
	Version string `yaml:"version" env:"DOCSERVE_VERSION"`

	// DefaultDocument is where "/" redirects, below the version prefix.
	// Defaults to "index.html".
	DefaultDocument string `yaml:"default_document" env:"DOCSERVE_DEFAULT_DOCUMENT"`

	// OpenBrowser opens the default document in a browser at startup.
	// Defaults to true.
	OpenBrowser bool `yaml:"open_browser" env:"DOCSERVE_OPEN_BROWSER"`

	// BrowserDelay is waited after the listener is ready and before the
	// browser is opened. Accepts duration strings like "500ms". Defaults to 0.
	BrowserDelay Duration `yaml:"browser_delay" env:"DOCSERVE_BROWSER_DELAY"`

	// Prompt waits for ENTER on stdin to exit. Defaults to true.
	Prompt bool `yaml:"prompt" env:"DOCSERVE_PROMPT"`

	// LogLevel is one of debug, info, warn, error. Defaults to "info".
	LogLevel string `yaml:"log_level" env:"DOCSERVE_LOG_LEVEL"`

	resolved bool
}

// Duration wraps time.Duration for YAML and environment unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration with every default applied.
//
// BaseDir is left empty; [Config.Resolve] fills it in.
func Default() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5009,
		Language:        "en",
		Version:         "latest",
		DefaultDocument: "index.html",
		OpenBrowser:     true,
		Prompt:          true,
		LogLevel:        "info",
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Fields missing from data keep their [Default] values. Environment
// variables are expanded in base_dir, doc_root and switcher.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	fields := []struct {
		name  string
		value *string
	}{
		{"base_dir", &cfg.BaseDir},
		{"doc_root", &cfg.DocRoot},
		{"switcher", &cfg.Switcher},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv applies DOCSERVE_* environment overrides to cfg.
//
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment win over it. Unset
// variables leave cfg unchanged.
func FromEnv(cfg *Config) error {
	// the .env file is optional
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingEnv, err)
	}
	return nil
}

// DefaultBaseDir returns the directory of the running executable, with
// symlinks resolved.
func DefaultBaseDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return filepath.Dir(exe), nil
}

// Resolve fixes the filesystem layout: BaseDir, DocRoot and Switcher become
// absolute paths. Relative DocRoot and Switcher values are taken from BaseDir.
//
// Resolve validates first and is a no-op on an already resolved config.
func (c *Config) Resolve() error {
	if c.resolved {
		return nil
	}
	if err := c.Validate(); err != nil {
		return err
	}

	base := c.BaseDir
	if base == "" {
		dir, err := DefaultBaseDir()
		if err != nil {
			return err
		}
		base = dir
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("base_dir: %w", err)
	}

	c.BaseDir = base
	c.DocRoot = underBase(base, c.DocRoot, filepath.Join("build", "html"))
	c.Switcher = underBase(base, c.Switcher, "switcher.json")
	c.resolved = true
	return nil
}

// Resolved reports whether [Config.Resolve] has completed.
func (c *Config) Resolved() bool {
	return c.resolved
}

func underBase(base, p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// Validate checks every field that does not depend on the filesystem.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if err := validateSegment("language", c.Language); err != nil {
		return err
	}
	if err := validateSegment("version", c.Version); err != nil {
		return err
	}
	if err := validateDocument(c.DefaultDocument); err != nil {
		return err
	}
	if d := c.BrowserDelay.Duration(); d < 0 {
		return fmt.Errorf("browser_delay cannot be negative, got %s", d)
	} else if d > maxBrowserDelay {
		return fmt.Errorf("browser_delay must not exceed %s, got %s", maxBrowserDelay, d)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DefaultURL returns the URL of the default document, e.g.
// http://localhost:5009/en/latest/index.html.
func (c *Config) DefaultURL() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + "/" +
		path.Join(c.Language, c.Version, c.DefaultDocument)
}

// Level returns LogLevel as a slog.Level, falling back to info.
func (c *Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be debug, info, warn, or error, got %q", s)
	}
}

func validateSegment(field, s string) error {
	if s == "" {
		return fmt.Errorf("%s is required", field)
	}
	if s == "." || s == ".." || strings.ContainsAny(s, `/\?#%`) {
		return fmt.Errorf("%s must be a single path segment, got %q", field, s)
	}
	return nil
}

func validateDocument(doc string) error {
	if doc == "" {
		return errors.New("default_document is required")
	}
	if path.IsAbs(doc) || strings.Contains(doc, `\`) {
		return fmt.Errorf("default_document must be a relative slash-separated path, got %q", doc)
	}
	for _, seg := range strings.Split(doc, "/") {
		if seg == ".." {
			return fmt.Errorf("default_document must not contain \"..\", got %q", doc)
		}
	}
	if path.Clean(doc) == "." {
		return fmt.Errorf("default_document must name a file, got %q", doc)
	}
	return nil
}
