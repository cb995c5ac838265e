package docserve

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/docserve/internal/browser"
	"github.com/jpalmerr/docserve/internal/docs"
	"github.com/jpalmerr/docserve/internal/server"
)

const (
	defaultHost            = "localhost"
	defaultPort            = 5009
	defaultLanguage        = "en"
	defaultVersion         = "latest"
	defaultDefaultDocument = "index.html"
)

// ErrBind reports that the listener could not be bound. It is fatal: [DocServe.Start]
// returns it before anything is served.
var ErrBind = server.ErrBind

// ServerConfig is the resolved, immutable configuration of a [DocServe].
type ServerConfig struct {
	Host            string
	Port            int
	DocumentRoot    string
	SwitcherPath    string
	Language        string
	Version         string
	DefaultDocument string
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DefaultPath returns the path of the default document, without a leading
// slash, e.g. "en/latest/index.html".
func (c ServerConfig) DefaultPath() string {
	return path.Join(c.Language, c.Version, c.DefaultDocument)
}

// URL returns the URL of the default document.
func (c ServerConfig) URL() string {
	return "http://" + c.Addr() + "/" + c.DefaultPath()
}

// DocServe serves a documentation tree on localhost and opens it in a browser.
//
// The typical lifecycle is:
//
//	ds, err := docserve.New(docserve.WithBaseDir(dir))
//	if err != nil {
//	    slog.Error("failed to create docserve", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer cancel()
//
//	ds.Start(ctx) // blocks until ENTER is pressed or ctx is cancelled
type DocServe struct {
	cfg          ServerConfig
	logger       *slog.Logger
	opener       Opener
	browserDelay time.Duration
	prompt       io.Reader
	out          io.Writer
}

// New creates a new [DocServe] with the given options.
//
// A documentation location is required, via [WithBaseDir] or
// [WithDocumentRoot]. Other options have defaults:
//   - Host: localhost
//   - Port: 5009
//   - URL prefix: /en/latest/, default document index.html
//   - Browser: platform launcher, no extra delay
//   - Prompt: os.Stdin, console output on os.Stdout
//
// Relative paths are made absolute here, once.
func New(opts ...Option) (*DocServe, error) {
	cfg := &dsConfig{
		host:            defaultHost,
		port:            defaultPort,
		language:        defaultLanguage,
		version:         defaultVersion,
		defaultDocument: defaultDefaultDocument,
		opener:          browser.NewSystem(),
		prompt:          os.Stdin,
		out:             os.Stdout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.documentRoot == "" && cfg.baseDir == "" {
		return nil, errors.New("a base directory or document root is required")
	}
	if cfg.documentRoot == "" {
		cfg.documentRoot = filepath.Join(cfg.baseDir, "build", "html")
	}
	if cfg.switcherPath == "" {
		dir := cfg.baseDir
		if dir == "" {
			// without a base dir the manifest sits next to the build tree
			dir = filepath.Dir(filepath.Dir(cfg.documentRoot))
		}
		cfg.switcherPath = filepath.Join(dir, "switcher.json")
	}

	docRoot, err := filepath.Abs(cfg.documentRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document root: %w", err)
	}
	switcher, err := filepath.Abs(cfg.switcherPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve switcher path: %w", err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DocServe{
		cfg: ServerConfig{
			Host:            cfg.host,
			Port:            cfg.port,
			DocumentRoot:    docRoot,
			SwitcherPath:    switcher,
			Language:        cfg.language,
			Version:         cfg.version,
			DefaultDocument: cfg.defaultDocument,
		},
		logger:       logger,
		opener:       cfg.opener,
		browserDelay: cfg.browserDelay,
		prompt:       cfg.prompt,
		out:          cfg.out,
	}, nil
}

// Config returns the resolved configuration. The returned value is a copy.
func (ds *DocServe) Config() ServerConfig {
	return ds.cfg
}

// Start serves the documentation until the operator asks to exit.
//
// Start binds the listener synchronously; if that fails it returns an error
// wrapping [ErrBind] without serving anything. Otherwise it runs two
// background units: the HTTP server, and a one-shot browser launch that waits
// for the listener to be ready. The calling goroutine then waits for a line
// (or end of input) on the prompt reader, or for ctx to be cancelled. Either
// one triggers the same shutdown: the server is told to stop, both units are
// joined, and Start returns.
//
// Returns nil on clean shutdown. A failure to open the browser is logged and
// never returned.
func (ds *DocServe) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	router := docs.NewRouter(docs.Config{
		DocumentRoot:    ds.cfg.DocumentRoot,
		SwitcherPath:    ds.cfg.SwitcherPath,
		Language:        ds.cfg.Language,
		Version:         ds.cfg.Version,
		DefaultDocument: ds.cfg.DefaultDocument,
	}, ds.logger)

	srv := server.New(ds.cfg.Addr(), router.Routes(), ds.logger)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// serveCtx is the only stop signal the server unit observes
	serveCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()

	var units errgroup.Group
	units.Go(func() error {
		return srv.Serve(serveCtx)
	})

	visitURL := ds.visitURL(srv.Addr())
	ds.logger.Info("documentation available",
		"url", visitURL,
		"document_root", ds.cfg.DocumentRoot,
	)

	if ds.opener != nil {
		units.Go(func() error {
			ds.launchBrowser(serveCtx.Done(), srv.Ready(), visitURL)
			return nil
		})
	}

	switch ds.waitForExit(ctx, srv.Done()) {
	case exitInterrupted:
		fmt.Fprintln(ds.out, "Server interrupted.")
	case exitServerStopped:
		ds.logger.Warn("http server stopped unexpectedly")
	}

	stopServer()
	err := units.Wait()

	fmt.Fprintln(ds.out, "Server shut down.")
	if err != nil {
		return err
	}
	ds.logger.Info("shutdown complete")
	return nil
}

// visitURL builds the URL the browser is pointed at. It uses the bound port,
// which differs from the configured one when the port is 0.
func (ds *DocServe) visitURL(addr net.Addr) string {
	cfg := ds.cfg
	if tcp, ok := addr.(*net.TCPAddr); ok {
		cfg.Port = tcp.Port
	}
	return cfg.URL()
}

// launchBrowser waits for the listener, then opens url once.
//
// The wait is abandoned if shutdown starts first. The open call itself is not
// cancelled by shutdown; it is bounded by the launcher's own timeout.
func (ds *DocServe) launchBrowser(stop, ready <-chan struct{}, url string) {
	select {
	case <-ready:
	case <-stop:
		return
	}

	if ds.browserDelay > 0 {
		timer := time.NewTimer(ds.browserDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-stop:
			return
		}
	}

	if err := ds.opener.Open(context.Background(), url); err != nil {
		ds.logger.Warn("failed to open browser", "url", url, "error", err)
		fmt.Fprintf(ds.out, "Error opening browser: %v\n", err)
		return
	}
	ds.logger.Debug("browser opened", "url", url)
}

type exitReason int

const (
	exitRequested exitReason = iota
	exitInterrupted
	exitServerStopped
)

// waitForExit blocks until the operator presses ENTER, ctx is cancelled, or
// the server stops on its own.
//
// The prompt is read on its own goroutine. A blocking read cannot be
// interrupted, so that goroutine is not joined; it ends when input arrives
// or the process exits.
func (ds *DocServe) waitForExit(ctx context.Context, serverDone <-chan struct{}) exitReason {
	var entered <-chan struct{}
	if ds.prompt != nil {
		fmt.Fprintln(ds.out, "Press <ENTER> to exit...")
		ch := make(chan struct{})
		go func() {
			defer close(ch)
			// EOF counts as a request to exit, like a closed terminal
			_, _ = bufio.NewReader(ds.prompt).ReadString('\n')
		}()
		entered = ch
	}

	select {
	case <-entered:
		return exitRequested
	case <-ctx.Done():
		return exitInterrupted
	case <-serverDone:
		return exitServerStopped
	}
}

// validateSegment checks that s can stand alone as one URL path segment.
func validateSegment(field, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if s == "." || s == ".." || strings.ContainsAny(s, `/\?#%`) {
		return fmt.Errorf("%s must be a single path segment, got %q", field, s)
	}
	return nil
}

// cleanDocument validates a default document path and returns it cleaned.
func cleanDocument(doc string) (string, error) {
	if doc == "" {
		return "", errors.New("default document cannot be empty")
	}
	if path.IsAbs(doc) || strings.Contains(doc, `\`) {
		return "", fmt.Errorf("default document must be a relative slash-separated path, got %q", doc)
	}
	for _, seg := range strings.Split(doc, "/") {
		if seg == ".." {
			return "", fmt.Errorf("default document must not contain \"..\", got %q", doc)
		}
	}

	cleaned := path.Clean(doc)
	if cleaned == "." {
		return "", fmt.Errorf("default document must name a file, got %q", doc)
	}
	return cleaned, nil
}
