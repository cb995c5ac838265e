package docs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// indexDocument is served when a docs path names a directory.
	indexDocument = "index.html"

	// switcherFile is the URL name of the version switcher manifest.
	switcherFile = "switcher.json"
)

var (
	// ErrNotFound is returned when the requested file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrForbidden is returned when a requested path resolves outside the
	// documentation root.
	ErrForbidden = errors.New("path escapes document root")
)

// Config describes where documentation lives and how it is addressed.
//
// All paths must already be absolute; the router never resolves relative
// paths against the working directory.
type Config struct {
	// DocumentRoot is the directory holding the built HTML tree.
	DocumentRoot string

	// SwitcherPath is the version switcher manifest file.
	SwitcherPath string

	// Language is the first URL segment, e.g. "en".
	Language string

	// Version is the second URL segment, e.g. "latest".
	Version string

	// DefaultDocument is the document "/" redirects to, relative to the
	// version prefix, e.g. "index.html".
	DefaultDocument string
}

// Router serves documentation files and the switcher manifest.
type Router struct {
	cfg      Config
	realRoot string
	logger   *slog.Logger
}

// NewRouter creates a [Router] for the given configuration.
//
// The document root is canonicalized once here. A root that does not exist
// yet is accepted; every request then yields [ErrNotFound].
func NewRouter(cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	cfg.DocumentRoot = filepath.Clean(cfg.DocumentRoot)
	realRoot, err := filepath.EvalSymlinks(cfg.DocumentRoot)
	if err != nil {
		realRoot = cfg.DocumentRoot
	}

	return &Router{
		cfg:      cfg,
		realRoot: realRoot,
		logger:   logger,
	}
}

// RedirectTarget returns the relative location "/" redirects to.
func (rt *Router) RedirectTarget() string {
	return path.Join(rt.cfg.Language, rt.cfg.Version, rt.cfg.DefaultDocument)
}

// Routes builds the HTTP handler for all documentation routes.
//
// HEAD requests are answered by the GET handlers without a body. Any other
// method on a known route gets 405; unknown paths get 404.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.GetHead)

	r.Get("/", rt.handleRoot)
	r.Get("/"+rt.cfg.Language+"/"+switcherFile, rt.handleSwitcher)
	r.Get("/"+rt.cfg.Language+"/"+rt.cfg.Version+"/*", rt.handleDocs)

	return r
}

// handleRoot redirects to the default document.
//
// The Location header is written by hand: http.Redirect would rewrite the
// relative target into an absolute path.
func (rt *Router) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Location", rt.RedirectTarget())
	w.WriteHeader(http.StatusFound)
}

// handleSwitcher serves the version switcher manifest verbatim.
func (rt *Router) handleSwitcher(w http.ResponseWriter, r *http.Request) {
	f, info, err := openRegular(rt.cfg.SwitcherPath)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "application/json")
	http.ServeContent(w, r, info.Name(), time.Time{}, f)
}

// handleDocs serves a file from the documentation root.
func (rt *Router) handleDocs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")

	// chi matches on RawPath when the request carried escapes
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			rt.writeError(w, r, ErrNotFound)
			return
		}
		name = unescaped
	}

	full, err := rt.Lookup(name)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	f, info, err := openRegular(full)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	// content type comes from the extension of the resolved file
	http.ServeContent(w, r, info.Name(), time.Time{}, f)
}

// Lookup resolves a request-relative name to a file under the document root.
//
// The name uses forward slashes. Lookup rejects with [ErrForbidden] any name
// that is absolute, contains a ".." segment or a NUL byte, or whose target,
// after symlinks are evaluated, lies outside the root. A name that resolves
// to a directory is mapped to that directory's index.html. Missing targets
// yield [ErrNotFound].
func (rt *Router) Lookup(name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", ErrForbidden
	}

	// treat backslashes as separators so Windows-style traversal is caught too
	slashed := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(slashed) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", ErrForbidden
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", ErrForbidden
		}
	}

	full := filepath.Join(rt.cfg.DocumentRoot, filepath.FromSlash(slashed))
	if !within(rt.cfg.DocumentRoot, full) {
		return "", ErrForbidden
	}

	resolved, err := rt.evalWithinRoot(full)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", statError(err)
	}
	if !info.IsDir() {
		return resolved, nil
	}

	// directories serve their index, never a listing
	return rt.evalWithinRoot(filepath.Join(resolved, indexDocument))
}

// evalWithinRoot evaluates symlinks in p and checks the result is still
// under the canonical document root.
func (rt *Router) evalWithinRoot(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", statError(err)
	}
	if !within(rt.realRoot, resolved) {
		return "", ErrForbidden
	}
	return resolved, nil
}

// writeError maps a lookup error onto an HTTP status.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		rt.logger.Warn("rejected path outside document root", "path", r.URL.Path)
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		rt.logger.Debug("file not found", "path", r.URL.Path)
		http.NotFound(w, r)
	default:
		rt.logger.Error("failed to serve file", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// openRegular opens p and returns it only if it is a regular file.
func openRegular(p string) (*os.File, fs.FileInfo, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, statError(err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, ErrNotFound
	}

	return f, info, nil
}

// statError converts filesystem errors into router errors.
func statError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrForbidden
	case errors.Is(err, syscall.ENOTDIR):
		// a path component is a regular file
		return ErrNotFound
	default:
		return err
	}
}

// within reports whether p is root or lies beneath it.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
