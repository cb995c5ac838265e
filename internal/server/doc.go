// Package server provides the HTTP listener for docserve.
//
// The listener is bound synchronously by [Server.Listen], so a caller that
// sees it return nil knows the socket is accepting connections. Requests are
// then processed by [Server.Serve] on whichever goroutine runs it, until the
// context passed to Serve is cancelled. Cancellation is the only way to stop
// the server: Serve itself performs the graceful shutdown, with a 5-second
// timeout for in-flight requests, so no other goroutine ever touches the
// underlying [http.Server].
//
// Every request carries an X-Request-ID and produces one access log line.
//
// Users of the docserve library should not need to interact with this
// package directly. The server is started by [docserve.DocServe.Start].
package server
