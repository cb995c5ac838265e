package config

import (
	"errors"

	"github.com/jpalmerr/docserve"
)

// BuildOptions converts a resolved configuration into docserve options.
//
// The doc root and switcher are passed explicitly, so the result does not
// depend on docserve's own layout defaults. Logging, browser and prompt
// implementations are left to the caller.
func BuildOptions(cfg *Config) ([]docserve.Option, error) {
	if !cfg.Resolved() {
		return nil, errors.New("config must be resolved before building options")
	}

	opts := []docserve.Option{
		docserve.WithHost(cfg.Host),
		docserve.WithPort(cfg.Port),
		docserve.WithDocumentRoot(cfg.DocRoot),
		docserve.WithSwitcherPath(cfg.Switcher),
		docserve.WithLanguage(cfg.Language),
		docserve.WithVersion(cfg.Version),
		docserve.WithDefaultDocument(cfg.DefaultDocument),
	}

	if cfg.BrowserDelay != 0 {
		opts = append(opts, docserve.WithBrowserDelay(cfg.BrowserDelay.Duration()))
	}

	if !cfg.OpenBrowser {
		opts = append(opts, docserve.WithoutBrowser())
	}

	if !cfg.Prompt {
		opts = append(opts, docserve.WithoutPrompt())
	}

	return opts, nil
}
