package docserve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// maxBrowserDelay caps [WithBrowserDelay]; anything longer is almost
// certainly a unit mistake.
const maxBrowserDelay = time.Minute

// dsConfig holds mutable state during DocServe construction.
type dsConfig struct {
	host            string
	port            int
	baseDir         string
	documentRoot    string
	switcherPath    string
	language        string
	version         string
	defaultDocument string
	logger          *slog.Logger
	opener          Opener
	browserDelay    time.Duration
	prompt          io.Reader
	out             io.Writer
}

// Option is a function that configures a [DocServe] instance during construction.
//
// Options return an error if validation fails; [New] stops at the first one.
type Option func(*dsConfig) error

// Opener opens a URL in a web browser.
//
// The default Opener uses the platform launcher (xdg-open, open, or
// rundll32) or the BROWSER environment variable.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts an ordinary function to the [Opener] interface.
type OpenerFunc func(ctx context.Context, url string) error

// Open calls f(ctx, url).
func (f OpenerFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// WithHost sets the interface the listener binds to. Defaults to "localhost".
//
// Returns an error if host is empty.
func WithHost(host string) Option {
	return func(cfg *dsConfig) error {
		if host == "" {
			return errors.New("host cannot be empty")
		}
		cfg.host = host
		return nil
	}
}

// WithPort sets the TCP port. Defaults to 5009.
//
// Port 0 asks the operating system for a free port; the browser is then
// pointed at whichever port was bound.
//
// Returns an error if the port is outside 0-65535.
func WithPort(port int) Option {
	return func(cfg *dsConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithBaseDir sets the directory the documentation layout is resolved from.
//
// Unless overridden by [WithDocumentRoot] or [WithSwitcherPath], the document
// root is <dir>/build/html and the switcher manifest is <dir>/switcher.json.
func WithBaseDir(dir string) Option {
	return func(cfg *dsConfig) error {
		if dir == "" {
			return errors.New("base directory cannot be empty")
		}
		cfg.baseDir = dir
		return nil
	}
}

// WithDocumentRoot sets the directory holding the built HTML tree.
func WithDocumentRoot(dir string) Option {
	return func(cfg *dsConfig) error {
		if dir == "" {
			return errors.New("document root cannot be empty")
		}
		cfg.documentRoot = dir
		return nil
	}
}

// WithSwitcherPath sets the version switcher manifest file.
func WithSwitcherPath(p string) Option {
	return func(cfg *dsConfig) error {
		if p == "" {
			return errors.New("switcher path cannot be empty")
		}
		cfg.switcherPath = p
		return nil
	}
}

// WithLanguage sets the first URL segment. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(cfg *dsConfig) error {
		if err := validateSegment("language", lang); err != nil {
			return err
		}
		cfg.language = lang
		return nil
	}
}

// WithVersion sets the second URL segment. Defaults to "latest".
func WithVersion(version string) Option {
	return func(cfg *dsConfig) error {
		if err := validateSegment("version", version); err != nil {
			return err
		}
		cfg.version = version
		return nil
	}
}

// WithDefaultDocument sets the document "/" redirects to, relative to the
// version prefix. Defaults to "index.html".
func WithDefaultDocument(doc string) Option {
	return func(cfg *dsConfig) error {
		cleaned, err := cleanDocument(doc)
		if err != nil {
			return err
		}
		cfg.defaultDocument = cleaned
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *dsConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithOpener replaces the browser launcher.
//
// Returns an error if the opener is nil; use [WithoutBrowser] to disable
// launching.
func WithOpener(o Opener) Option {
	return func(cfg *dsConfig) error {
		if o == nil {
			return errors.New("opener cannot be nil")
		}
		cfg.opener = o
		return nil
	}
}

// WithoutBrowser disables opening a browser tab at startup.
func WithoutBrowser() Option {
	return func(cfg *dsConfig) error {
		cfg.opener = nil
		return nil
	}
}

// WithBrowserDelay adds a pause between the listener becoming ready and the
// browser launch. Defaults to zero: the launch waits only for the bind.
//
// Returns an error if d is negative or longer than a minute.
func WithBrowserDelay(d time.Duration) Option {
	return func(cfg *dsConfig) error {
		if d < 0 {
			return errors.New("browser delay cannot be negative")
		}
		if d > maxBrowserDelay {
			return errors.New("browser delay must not exceed 1m")
		}
		cfg.browserDelay = d
		return nil
	}
}

// WithPrompt sets where the exit prompt reads from and where console
// messages go. Defaults to os.Stdin and os.Stdout.
//
// A line or end of input on in requests shutdown.
func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(cfg *dsConfig) error {
		if in == nil || out == nil {
			return errors.New("prompt reader and writer cannot be nil")
		}
		cfg.prompt = in
		cfg.out = out
		return nil
	}
}

// WithoutPrompt disables the exit prompt; only context cancellation (for
// example SIGINT) stops the server. Useful when stdin is not a terminal.
func WithoutPrompt() Option {
	return func(cfg *dsConfig) error {
		cfg.prompt = nil
		return nil
	}
}

// WithOutput sets where console messages go without changing the prompt
// reader. Defaults to os.Stdout.
func WithOutput(out io.Writer) Option {
	return func(cfg *dsConfig) error {
		if out == nil {
			return errors.New("output writer cannot be nil")
		}
		cfg.out = out
		return nil
	}
}
