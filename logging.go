package trino

import "log"

// DebugLogger receives debug-level trace lines from RequestLayer,
// mirroring the debug logging the Python client does at each
// request/response boundary (process, fetch, cancel). It defaults to a
// no-op so embedding this library doesn't force log output on callers
// who never opted in.
type DebugLogger func(format string, args ...any)

func noopLogger(string, ...any) {}

// StdDebugLogger adapts the standard library's log package into a
// DebugLogger, for callers that just want debug lines on stderr the way
// cmd/trinocli does with log.Printf.
func StdDebugLogger(format string, args ...any) {
	log.Printf(format, args...)
}
