// Package docs routes documentation requests to files on disk.
//
// This package is internal to docserve and handles three route shapes:
//
//   - "/": redirect to the default document, e.g. "en/latest/index.html"
//   - "/<lang>/switcher.json": the version switcher manifest, served verbatim
//   - "/<lang>/<version>/*": files under the documentation root
//
// Every captured path is canonicalized and bound-checked against the
// documentation root before the filesystem is touched. Paths that would
// escape the root are rejected with [ErrForbidden] (403); missing files
// yield [ErrNotFound] (404).
//
// The router holds no mutable state, so one [Router] can serve any number of
// concurrent requests.
package docs
