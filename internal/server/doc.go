// Package server implements the loopback half of the browser login flow.
//
// The CLI opens the backend's /auth/spotify/login/ page in the system
// browser; once the provider authorization finishes, the backend redirects
// to http://127.0.0.1:<port>/callback carrying access and refresh query
// parameters. [CallbackHandler] captures exactly one such redirect, checks
// the CSRF state, and hands the token pair to the waiting command over a
// channel. Token-bearing URLs are redacted before logging.
package server
