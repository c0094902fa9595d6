package trino

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
)

// setup starts a test HTTP server and a RequestLayer configured to talk
// to it. Tests register handlers on mux to provide mock coordinator
// responses for the operation under test.
func setup(t *testing.T) (requests *RequestLayer, mux *http.ServeMux, teardown func()) {
	t.Helper()

	mux = http.NewServeMux()
	server := httptest.NewServer(mux)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing test server port: %v", err)
	}

	requests, err = NewRequestLayer(RequestConfig{
		Host:       u.Hostname(),
		Port:       port,
		HTTPScheme: "http",
		User:       "trino-user",
		Catalog:    "memory",
		Schema:     "default",
		Source:     "trinocore-test",
	})
	if err != nil {
		t.Fatalf("building test RequestLayer: %v", err)
	}

	return requests, mux, server.Close
}

// testMethod asserts that r was sent with the given HTTP method.
func testMethod(t *testing.T, r *http.Request, want string) {
	t.Helper()
	if got := r.Method; got != want {
		t.Errorf("request method = %v, want %v", got, want)
	}
}

// testHeader asserts that r carries the given header value.
func testHeader(t *testing.T, r *http.Request, header, want string) {
	t.Helper()
	if got := r.Header.Get(header); got != want {
		t.Errorf("request header %s = %q, want %q", header, got, want)
	}
}
