// Package http serves CMS content to browsers.
//
// The router resolves every unmatched path against the CMS webroot and
// renders the node it finds:
//   - Webroot: /* (binary nodes are streamed, others rendered)
//   - Session: POST /login, GET|POST /logout
//   - Operations: /health/live, /metrics
//
// Every request carries a visitor session and a request id; a ?lang= query
// parameter switches the active language before the route runs.
package http
