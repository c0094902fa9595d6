package trino

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrJWTExpired is returned by JWTAuth when the configured token's exp
// claim is in the past; RetryPolicy treats it as non-transient since a
// retry cannot fix an expired token.
var ErrJWTExpired = errors.New("trino: jwt token expired")

// JWTAuth attaches a bearer token to every request. The token is parsed
// (without signature verification — the coordinator is the verifier) so
// that its exp claim can be checked locally before spending a round trip
// on a token that has already lapsed.
type JWTAuth struct {
	mu    sync.RWMutex
	token string
	exp   time.Time
}

// NewJWTAuth builds a JWTAuth from a bearer token string.
func NewJWTAuth(token string) (*JWTAuth, error) {
	a := &JWTAuth{}
	if err := a.SetToken(token); err != nil {
		return nil, err
	}
	return a, nil
}

// SetToken replaces the bearer token, e.g. after an external refresh.
func (a *JWTAuth) SetToken(token string) error {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	// ParseUnverified: the coordinator, not this client, verifies the
	// signature; we only need the exp claim to fail fast on an expired
	// token.
	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		return NewConfigurationError("invalid JWT token: " + err.Error())
	}

	var exp time.Time
	if expClaim, ok := claims["exp"]; ok {
		if expFloat, ok := expClaim.(float64); ok {
			exp = time.Unix(int64(expFloat), 0)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.exp = exp
	return nil
}

// AttachToHTTPClient wraps client's transport to add an Authorization:
// Bearer header, and to fail fast with ErrJWTExpired when the token has
// already expired rather than sending a doomed request.
func (a *JWTAuth) AttachToHTTPClient(client *http.Client) error {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		a.mu.RLock()
		token, exp := a.token, a.exp
		a.mu.RUnlock()

		if !exp.IsZero() && time.Now().After(exp) {
			return nil, ErrJWTExpired
		}

		reqCopy := req.Clone(req.Context())
		reqCopy.Header.Set("Authorization", "Bearer "+token)
		return base.RoundTrip(reqCopy)
	})
	return nil
}

// IsTransientError reports no additional transient errors for JWT auth:
// an expired token is a configuration problem, not a transient one.
func (a *JWTAuth) IsTransientError(err error) bool { return false }
