// Package browser opens URLs in the user's default web browser.
//
// [System] shells out to the platform launcher (xdg-open, open, or
// rundll32) or to the command named by the BROWSER environment variable.
// Failures are returned to the caller; nothing here panics or exits.
package browser
