package trino

import (
	"context"
	"io"
)

// Result is a lazy, forward-only iterator over a Query's rows. It pages
// through nextUri on demand as rows are consumed, mirroring the Python
// client's cursor-fetch loop (spec §4.4, §4.5).
//
// Result is not safe for concurrent use.
type Result struct {
	ctx   context.Context
	query *Query

	typed bool

	rows   [][]any
	cursor int

	rowNumber int

	err  error
	done bool
}

// ResultOption configures a Result at construction time.
type ResultOption func(*Result)

// WithTypeMapping enables per-cell conversion through MapValue using each
// row's Column TypeSignature, instead of returning the raw JSON-decoded
// values.
func WithTypeMapping() ResultOption {
	return func(r *Result) { r.typed = true }
}

// NewResult wraps query in a Result iterator. ctx is used for every page
// fetch Next triggers.
func NewResult(ctx context.Context, query *Query, opts ...ResultOption) *Result {
	r := &Result{ctx: ctx, query: query}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Columns returns the query's result columns. If Execute/Fetch haven't
// populated them yet, it fetches pages, buffering their rows for Next,
// until the columns arrive or the query reaches a terminal state.
func (r *Result) Columns() []Column {
	for r.query.Columns() == nil && !r.query.Finished() && r.err == nil {
		var status *Status
		var err error
		if r.query.State() == StateInit {
			status, err = r.query.Execute(r.ctx)
		} else {
			status, err = r.query.Fetch(r.ctx)
		}
		if err != nil {
			r.err = err
			break
		}
		if status != nil {
			r.rows = append(r.rows, status.Rows...)
		}
	}
	return r.query.Columns()
}

// RowNumber returns the count of rows already yielded by Next, the Go
// equivalent of the source cursor's rownumber attribute (SPEC_FULL §3).
func (r *Result) RowNumber() int {
	return r.rowNumber
}

// Err returns the first error encountered by Next, or nil.
func (r *Result) Err() error {
	return r.err
}

// Next advances to the next row, fetching additional pages from the
// coordinator as needed. It returns false at end of results or on error;
// callers must check Err after a false return.
func (r *Result) Next() bool {
	if r.err != nil || r.done {
		return false
	}

	for r.cursor >= len(r.rows) {
		if r.query.Finished() {
			r.done = true
			return false
		}

		var status *Status
		var err error
		if r.query.State() == StateInit {
			status, err = r.query.Execute(r.ctx)
		} else {
			status, err = r.query.Fetch(r.ctx)
		}
		if err != nil {
			r.err = err
			return false
		}
		if status == nil {
			r.done = true
			return false
		}

		r.rows = status.Rows
		r.cursor = 0

		if len(r.rows) == 0 && r.query.Finished() {
			r.done = true
			return false
		}
	}

	r.cursor++
	r.rowNumber++
	return true
}

// Row returns the current row, converted through the column TypeMapper
// when WithTypeMapping was set. It must only be called after a Next that
// returned true.
func (r *Result) Row() ([]any, error) {
	raw := r.rows[r.cursor-1]
	if !r.typed {
		return raw, nil
	}

	columns := r.query.Columns()
	out := make([]any, len(raw))
	for i, v := range raw {
		var col Column
		if i < len(columns) {
			col = columns[i]
		}
		mapped, err := MapValue(v, col)
		if err != nil {
			return nil, err
		}
		out[i] = mapped
	}
	return out, nil
}

// Close cancels the underlying query if it hasn't already reached a
// terminal state, so an abandoned mid-stream iterator doesn't leave a
// query running on the coordinator (spec §8 scenario 6).
func (r *Result) Close() error {
	if r.query.Finished() {
		return nil
	}
	return r.query.Cancel(r.ctx)
}

var _ io.Closer = (*Result)(nil)
