package trino

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"testing"
)

func TestResultIteratesConcatenatedPages(t *testing.T) {
	requests, mux, teardown := setup(t)
	defer teardown()

	mux.HandleFunc("/v1/statement", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": "qr", "nextUri": "%s", "data": [[1],[2]], "columns": [{"name":"c","typeSignature":{"rawType":"bigint"}}]}`,
			requests.GetURL("/v1/statement/qr/2"))
	})
	mux.HandleFunc("/v1/statement/qr/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "qr", "data": [[3]]}`)
	})

	q := NewQuery(requests, "select * from t")
	result := NewResult(context.Background(), q)

	var got [][]any
	for result.Next() {
		row, err := result.Row()
		if err != nil {
			t.Fatalf("Row() error = %v", err)
		}
		got = append(got, row)
	}
	if err := result.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	want := [][]any{{float64(1)}, {float64(2)}, {float64(3)}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("iterated rows = %#v, want %#v", got, want)
	}
	if result.RowNumber() != 3 {
		t.Errorf("RowNumber() = %d, want 3", result.RowNumber())
	}
}

func TestResultOnePageNoFetch(t *testing.T) {
	requests, mux, teardown := setup(t)
	defer teardown()

	mux.HandleFunc("/v1/statement", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "q1", "data": [[1],[2]], "columns": [{"name":"c","typeSignature":{"rawType":"bigint"}}]}`)
	})

	q := NewQuery(requests, "select * from t")
	result := NewResult(context.Background(), q)

	var rows int
	for result.Next() {
		rows++
	}
	if rows != 2 {
		t.Errorf("rows = %d, want 2", rows)
	}
	if !q.Finished() {
		t.Error("Finished() = false, want true")
	}
}

func TestResultWithTypeMapping(t *testing.T) {
	requests, mux, teardown := setup(t)
	defer teardown()

	mux.HandleFunc("/v1/statement", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "q1", "data": [["12.50"]], "columns": [{"name":"d","typeSignature":{"rawType":"decimal(10,2)"}}]}`)
	})

	q := NewQuery(requests, "select d from t")
	result := NewResult(context.Background(), q, WithTypeMapping())

	if !result.Next() {
		t.Fatalf("Next() = false, want true; Err() = %v", result.Err())
	}
	row, err := result.Row()
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	if _, ok := row[0].(interface{ String() string }); !ok {
		t.Errorf("row[0] = %#v, want a decimal.Decimal", row[0])
	}
}

func TestResultCloseCancelsUnfinishedQuery(t *testing.T) {
	requests, mux, teardown := setup(t)
	defer teardown()

	mux.HandleFunc("/v1/statement", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": "q5", "nextUri": "%s", "data": [[1]], "columns": [{"name":"c","typeSignature":{"rawType":"bigint"}}]}`,
			requests.GetURL("/v1/query/q5"))
	})
	cancelled := false
	mux.HandleFunc("/v1/query/q5", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, http.MethodDelete)
		cancelled = true
		w.WriteHeader(http.StatusNoContent)
	})

	q := NewQuery(requests, "select * from t")
	result := NewResult(context.Background(), q)

	if !result.Next() {
		t.Fatalf("Next() = false, want true; Err() = %v", result.Err())
	}

	if err := result.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !cancelled {
		t.Error("expected Close() to cancel the underlying query")
	}
	if q.State() != StateCancelled {
		t.Errorf("State() = %v, want StateCancelled", q.State())
	}
}
