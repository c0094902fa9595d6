package trino

import "net/http"

// Auth is the installable authentication capability the core treats
// opaquely (spec §1, §6, §9 "Auth as capability"). A concrete Auth
// attaches itself to the RequestLayer's HTTP client and may contribute
// additional transient error types the RetryPolicy should retry (e.g. a
// token refresh timeout).
type Auth interface {
	// AttachToHTTPClient installs this capability's RoundTripper/transport
	// behavior on client. It is called once, when the RequestLayer is
	// constructed.
	AttachToHTTPClient(client *http.Client) error

	// IsTransientError reports whether err, raised while this auth
	// capability was active, should be retried by RetryPolicy rather than
	// propagated immediately.
	IsTransientError(err error) bool
}

// roundTripperFunc adapts a function to http.RoundTripper, the way the
// teacher's trinoTransport wraps a base transport.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// BasicAuth attaches HTTP Basic authentication to every request. Per
// spec §4.3, installing any Auth capability while the RequestLayer's
// scheme is HTTP is a configuration error: Basic auth sends credentials
// in a trivially decodable form and must not be used unencrypted.
type BasicAuth struct {
	Username string
	Password string
}

// AttachToHTTPClient wraps client's transport to set HTTP Basic auth on
// every outbound request.
func (a *BasicAuth) AttachToHTTPClient(client *http.Client) error {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		reqCopy := req.Clone(req.Context())
		reqCopy.SetBasicAuth(a.Username, a.Password)
		return base.RoundTrip(reqCopy)
	})
	return nil
}

// IsTransientError reports no additional transient errors for Basic auth.
func (a *BasicAuth) IsTransientError(err error) bool { return false }
