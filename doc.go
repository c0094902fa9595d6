// Package trino implements the client side of the Trino coordinator HTTP
// protocol: submitting a SQL statement, following nextUri through paged
// responses, propagating session state via headers, and mapping wire
// values to Go types. See https://github.com/trinodb/trino/wiki/HTTP-Protocol.
package trino
