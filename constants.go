package trino

import "time"

// Protocol-level defaults, mirroring the Python client's constants module.
const (
	// DefaultMaxAttempts is the default total number of HTTP attempts
	// (first attempt + 2 retries).
	DefaultMaxAttempts = 3

	// DefaultTLSPort is the port at which scheme auto-selection picks
	// HTTPS over HTTP when no scheme is specified (spec §4.3).
	DefaultTLSPort = 443

	// DefaultRequestTimeout bounds a single HTTP attempt.
	DefaultRequestTimeout = 30 * time.Second

	// URLStatementPath is the coordinator endpoint a new query is POSTed
	// to (spec §6).
	URLStatementPath = "/v1/statement"

	// URLQueryPath is the prefix for the cancellation endpoint; a query's
	// DELETE target is URLQueryPath + queryID (spec §6).
	URLQueryPath = "/v1/query/"

	schemeHTTP  = "http"
	schemeHTTPS = "https"
)
