// Package docserve serves a pre-built documentation tree on localhost and
// opens it in the user's browser.
//
// It is meant for previewing a Sphinx-style HTML build: "/" redirects to the
// default document, /en/switcher.json serves the version switcher manifest,
// and /en/latest/... serves files from the build directory.
//
// # Quick Start
//
//	ds, _ := docserve.New(docserve.WithBaseDir("/path/to/docs"))
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	ds.Start(ctx) // blocks until ENTER is pressed or ctx is cancelled
//
// # Configuration
//
// DocServe uses the functional options pattern:
//
//	ds, err := docserve.New(
//	    docserve.WithBaseDir(dir),          // <dir>/build/html and <dir>/switcher.json
//	    docserve.WithHost("127.0.0.1"),
//	    docserve.WithPort(8000),
//	    docserve.WithVersion("dev"),        // serve under /en/dev/
//	    docserve.WithoutBrowser(),
//	)
//
// # Lifecycle
//
// [DocServe.Start] binds the listener before anything else happens, so a
// port that is already taken is reported at once as an error wrapping
// [ErrBind]. The browser launch waits for the bind to complete rather than
// sleeping. Pressing ENTER and cancelling the context both lead to the same
// graceful shutdown, after which every background goroutine has finished.
//
// # Security
//
// Requested paths are canonicalized and bound-checked against the document
// root; ".." segments, absolute paths, and symlinks that leave the root are
// answered with 403. The server is intended for localhost previews and has
// no authentication, TLS, compression, or caching headers.
//
// # Architecture
//
// The internal packages are:
//
//   - internal/docs: route table and traversal-safe file lookup
//   - internal/server: listener lifecycle, request ids, access log
//   - internal/browser: platform browser launcher
//
// The config package loads YAML and environment configuration for the
// docserve command in cmd/docserve.
package docserve
