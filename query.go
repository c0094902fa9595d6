package trino

import (
	"context"
	"net/http"
	"sync"
)

// QueryState is one state in the Query lifecycle state machine (spec
// §4.4): INIT -> RUNNING -> (FINISHED | CANCELLED | FAILED).
type QueryState int

const (
	// StateInit is the state before Execute has been called.
	StateInit QueryState = iota
	// StateRunning is the state after Execute succeeds and while Fetch is
	// still returning pages.
	StateRunning
	// StateFinished is the terminal state reached when a response carries
	// no nextUri.
	StateFinished
	// StateCancelled is the terminal state reached after a successful
	// Cancel.
	StateCancelled
	// StateFailed is the terminal state reached when the coordinator
	// reports a query error.
	StateFailed
)

// String renders the state the way log lines and error messages refer to
// it.
func (s QueryState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateFinished:
		return "FINISHED"
	case StateCancelled:
		return "CANCELLED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Query drives one SQL statement through the coordinator protocol:
// submitting it, paging through nextUri, buffering columns until the
// coordinator sends them, and exposing cancellation (spec §4.4).
//
// Query is not safe for concurrent use from multiple goroutines; it is
// meant to be driven sequentially by the Result iterator built on top of
// it.
type Query struct {
	requests *RequestLayer
	sql      string

	mu    sync.Mutex
	state QueryState

	id      string
	infoURI string
	stats   map[string]any

	columns []Column
	nextURI string

	lastWarnings []map[string]any
}

// NewQuery builds a Query bound to requests, ready for Execute.
func NewQuery(requests *RequestLayer, sql string) *Query {
	return &Query{
		requests: requests,
		sql:      sql,
		state:    StateInit,
	}
}

// State returns the query's current lifecycle state.
func (q *Query) State() QueryState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// ID returns the coordinator-assigned query id, or "" before Execute.
func (q *Query) ID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.id
}

// InfoURI returns the coordinator's human-readable query info page URL.
func (q *Query) InfoURI() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.infoURI
}

// Finished reports whether the query has reached any terminal state.
func (q *Query) Finished() bool {
	return isTerminal(q.State())
}

// Columns returns the result columns, buffered since the first response
// that carried them; it returns nil until the coordinator sends them
// (spec §4.4 "columns buffer until available").
func (q *Query) Columns() []Column {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.columns
}

// Execute submits the query's SQL and transitions INIT -> RUNNING, or
// straight to FINISHED when the first response carries no nextUri. It is
// an error to call Execute more than once.
func (q *Query) Execute(ctx context.Context) (*Status, error) {
	q.mu.Lock()
	if q.state != StateInit {
		q.mu.Unlock()
		return nil, NewTrinoUserError("query already executed", q.id)
	}
	q.mu.Unlock()

	resp, err := q.requests.Post(ctx, q.sql, nil)
	if err != nil {
		q.fail()
		return nil, err
	}
	status, err := q.requests.Process(resp)
	if err != nil {
		q.fail()
		return nil, err
	}

	q.mu.Lock()
	q.state = StateRunning
	q.applyStatusLocked(status)
	if q.nextURI == "" {
		q.state = StateFinished
	}
	q.mu.Unlock()

	return status, nil
}

// Fetch retrieves the next page via the last response's nextUri. It
// transitions RUNNING -> FINISHED when the new response carries no
// nextUri. Calling Fetch outside StateRunning is an error.
func (q *Query) Fetch(ctx context.Context) (*Status, error) {
	q.mu.Lock()
	if q.state != StateRunning {
		state := q.state
		q.mu.Unlock()
		return nil, NewTrinoUserError("cannot fetch a query in state "+state.String(), q.id)
	}
	nextURI := q.nextURI
	q.mu.Unlock()

	if nextURI == "" {
		q.mu.Lock()
		q.state = StateFinished
		q.mu.Unlock()
		return nil, nil
	}

	resp, err := q.requests.Get(ctx, nextURI)
	if err != nil {
		q.fail()
		return nil, err
	}
	status, err := q.requests.Process(resp)
	if err != nil {
		q.fail()
		return nil, err
	}

	q.mu.Lock()
	q.applyStatusLocked(status)
	if q.nextURI == "" {
		q.state = StateFinished
	}
	q.mu.Unlock()

	return status, nil
}

// Cancel issues a DELETE against /v1/query/{queryID} (spec §4.4, §6) and
// transitions to CANCELLED. A no-op once the query has reached a terminal
// state. When the query id is not yet known, no request is sent but the
// query is still marked CANCELLED, so a later Execute fails.
func (q *Query) Cancel(ctx context.Context) error {
	q.mu.Lock()
	if isTerminal(q.state) {
		q.mu.Unlock()
		return nil
	}
	id := q.id
	if id == "" {
		// No query was ever submitted: nothing to DELETE, but mark the
		// query cancelled so a later Execute is rejected (spec §8).
		q.state = StateCancelled
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	target := q.requests.GetURL(URLQueryPath + id)
	resp, err := q.requests.Delete(ctx, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return q.requests.RaiseResponseError(resp)
	}

	q.mu.Lock()
	q.state = StateCancelled
	q.mu.Unlock()
	return nil
}

// applyStatusLocked records status onto the query. Columns are taken from
// the first status that carries a non-empty list and never changed after
// that (spec §4.4).
// Callers must hold q.mu.
func (q *Query) applyStatusLocked(status *Status) {
	if status == nil {
		return
	}
	if q.id == "" {
		q.id = status.ID
	}
	if q.infoURI == "" {
		q.infoURI = status.InfoURI
	}
	if len(q.columns) == 0 && len(status.Columns) > 0 {
		q.columns = status.Columns
	}
	q.stats = status.Stats
	q.nextURI = status.NextURI
	q.lastWarnings = status.Warnings
}

func (q *Query) fail() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !isTerminal(q.state) {
		q.state = StateFailed
	}
}

func isTerminal(s QueryState) bool {
	return s == StateFinished || s == StateCancelled || s == StateFailed
}
