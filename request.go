package trino

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-uuid"
	"github.com/klauspost/compress/gzip"
)

// Status is the immutable result of one HTTP exchange with the
// coordinator (spec §3).
type Status struct {
	ID         string
	Stats      map[string]any
	Warnings   []map[string]any
	InfoURI    string
	NextURI    string
	UpdateType string
	Rows       [][]any
	Columns    []Column
}

// wireResponse is the raw JSON body shape the coordinator returns (spec
// §6).
type wireResponse struct {
	ID         string           `json:"id"`
	Stats      map[string]any   `json:"stats"`
	Warnings   []map[string]any `json:"warnings"`
	InfoURI    string           `json:"infoUri"`
	NextURI    string           `json:"nextUri"`
	UpdateType string           `json:"updateType"`
	Data       [][]any          `json:"data"`
	Columns    []Column         `json:"columns"`
	Error      *wireError       `json:"error"`
}

type wireError struct {
	ErrorType string         `json:"errorType"`
	Message   string         `json:"message"`
	Rest      map[string]any `json:"-"`
}

// UnmarshalJSON captures the well-known fields plus anything else the
// coordinator sent, so QueryError.ErrorInfo carries the full payload.
func (e *wireError) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["errorType"].(string); ok {
		e.ErrorType = v
	}
	if v, ok := raw["message"].(string); ok {
		e.Message = v
	}
	e.Rest = raw
	return nil
}

// RequestConfig configures a RequestLayer (spec §4.3).
type RequestConfig struct {
	Host string
	Port int

	User     string
	Source   string
	Catalog  string
	Schema   string
	Session  map[string]string
	Headers  map[string]string

	ExtraCredential []ExtraCredential
	ClientTags      []string
	TransactionID   string

	// HTTPScheme overrides scheme auto-selection (spec §4.3). Empty means
	// auto-select: HTTPS when Port == DefaultTLSPort, else HTTP.
	HTTPScheme string

	Auth            Auth
	RedirectHandler RedirectHandler

	MaxAttempts    int
	RequestTimeout time.Duration

	// HTTPClient, if set, is used instead of a newly constructed one.
	// RequestLayer still installs the Auth capability on it; the proxy
	// dialer and InsecureSkipVerify are applied only when the client has
	// no Transport of its own.
	HTTPClient *http.Client

	InsecureSkipVerify bool

	DebugLogger DebugLogger
}

// RequestLayer builds and dispatches the three coordinator requests
// (POST statement, GET nextUri, DELETE query) and parses their JSON
// responses into a Status, folding session-affecting response headers
// back into its ClientSession (spec §4.3).
type RequestLayer struct {
	session *ClientSession
	codec   HeaderCodec

	scheme string
	host   string
	port   int

	httpClient *http.Client
	retry      RetryPolicy
	auth       Auth

	redirectHandler RedirectHandler
	requestTimeout  time.Duration

	nextURI string

	debugLog DebugLogger
	id       string
}

// NewRequestLayer validates cfg and constructs a RequestLayer. It fails
// eagerly (ConfigurationError) when auth is installed over HTTP, a
// custom header collides with a reserved one, or an extra-credential key
// is malformed.
func NewRequestLayer(cfg RequestConfig) (*RequestLayer, error) {
	session := NewClientSession(cfg.Catalog, cfg.Schema, cfg.Source, cfg.User)
	session.Headers = cfg.Headers
	session.ClientTags = cfg.ClientTags
	for name, value := range cfg.Session {
		session.SetProperty(name, value)
	}
	if cfg.TransactionID != "" {
		session.SetTransactionID(cfg.TransactionID)
	}
	if err := session.SetExtraCredential(cfg.ExtraCredential); err != nil {
		return nil, err
	}

	scheme := cfg.HTTPScheme
	if scheme == "" {
		if cfg.Port == DefaultTLSPort {
			scheme = schemeHTTPS
		} else {
			scheme = schemeHTTP
		}
	}

	if cfg.Auth != nil && scheme == schemeHTTP {
		return nil, NewConfigurationError("cannot use authentication with HTTP")
	}

	// Fail eagerly on reserved-header collisions, the same check Post
	// performs on every call.
	if _, err := (HeaderCodec{}).Encode(session); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Transport == nil {
		transport := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, //nolint:gosec
		}
		dialCtx, err := socksProxyDialContext()
		if err != nil {
			return nil, err
		}
		if dialCtx != nil {
			transport.DialContext = dialCtx
		}
		httpClient.Transport = transport
	}

	if cfg.Auth != nil {
		if err := cfg.Auth.AttachToHTTPClient(httpClient); err != nil {
			return nil, err
		}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retry := DefaultRetryPolicy()
	retry.MaxAttempts = maxAttempts
	if cfg.Auth != nil {
		retry.ExtraTransient = cfg.Auth.IsTransientError
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = DefaultRequestTimeout
	}

	id, _ := uuid.GenerateUUID()

	debugLog := cfg.DebugLogger
	if debugLog == nil {
		debugLog = noopLogger
	}

	return &RequestLayer{
		session:         session,
		scheme:          scheme,
		host:            cfg.Host,
		port:            cfg.Port,
		httpClient:      httpClient,
		retry:           retry,
		auth:            cfg.Auth,
		redirectHandler: cfg.RedirectHandler,
		requestTimeout:  requestTimeout,
		debugLog:        debugLog,
		id:              id,
	}, nil
}

// Session returns the ClientSession this RequestLayer mutates on every
// response.
func (r *RequestLayer) Session() *ClientSession { return r.session }

// NextURI returns the nextUri recorded by the most recently processed
// response, or "" if the query is terminal.
func (r *RequestLayer) NextURI() string { return r.nextURI }

// GetURL joins the RequestLayer's scheme/host/port with path.
func (r *RequestLayer) GetURL(path string) string {
	return fmt.Sprintf("%s://%s:%d%s", r.scheme, r.host, r.port, path)
}

// StatementURL is the endpoint a new query is POSTed to.
func (r *RequestLayer) StatementURL() string {
	return r.GetURL(URLStatementPath)
}

func (r *RequestLayer) buildHeaders(extra map[string]string) (http.Header, error) {
	headers, err := r.codec.Encode(r.session)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		headers.Set(k, v)
	}
	return headers, nil
}

// Post submits sql as a new query, following redirects manually when a
// RedirectHandler is installed (spec §4.3).
func (r *RequestLayer) Post(ctx context.Context, sql string, extraHeaders map[string]string) (*http.Response, error) {
	headers, err := r.buildHeaders(extraHeaders)
	if err != nil {
		return nil, err
	}
	body := []byte(sql)

	r.debugLog("[req %s] POST %s", r.id, r.StatementURL())

	targetURL := r.StatementURL()
	resp, err := r.doWithRetry(ctx, http.MethodPost, targetURL, body, headers, r.redirectHandler == nil)
	if err != nil {
		return nil, err
	}

	if r.redirectHandler != nil {
		for resp != nil && isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			nextURL, err := r.redirectHandler.Handle(location)
			if err != nil {
				return nil, err
			}
			r.debugLog("[req %s] redirect %d from %s to %s", r.id, resp.StatusCode, location, nextURL)
			resp, err = r.doWithRetry(ctx, http.MethodPost, nextURL, body, headers, false)
			if err != nil {
				return nil, err
			}
		}
	}

	return resp, nil
}

// Get fetches the next page at targetURL (typically the previous
// response's nextUri).
func (r *RequestLayer) Get(ctx context.Context, targetURL string) (*http.Response, error) {
	headers, err := r.buildHeaders(nil)
	if err != nil {
		return nil, err
	}
	r.debugLog("[req %s] GET %s", r.id, targetURL)
	return r.doWithRetry(ctx, http.MethodGet, targetURL, nil, headers, true)
}

// Delete issues a cancellation DELETE against targetURL.
func (r *RequestLayer) Delete(ctx context.Context, targetURL string) (*http.Response, error) {
	r.debugLog("[req %s] DELETE %s", r.id, targetURL)
	return r.doWithRetry(ctx, http.MethodDelete, targetURL, nil, http.Header{}, true)
}

func (r *RequestLayer) doWithRetry(ctx context.Context, method, targetURL string, body []byte, headers http.Header, followRedirects bool) (*http.Response, error) {
	return r.retry.Do(ctx, func() (*http.Response, error) {
		attemptCtx := ctx
		if r.requestTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.requestTimeout)
			defer cancel()
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(attemptCtx, method, targetURL, bodyReader)
		if err != nil {
			return nil, err
		}
		req.Header = headers.Clone()

		client := r.httpClient
		if !followRedirects {
			clientCopy := *client
			clientCopy.CheckRedirect = func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			}
			client = &clientCopy
		}

		return client.Do(req)
	})
}

func isRedirect(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// RaiseResponseError translates a non-2xx response that carried no Trino
// error payload into Http503Error, Http504Error or HTTPError (spec §4.3).
func (r *RequestLayer) RaiseResponseError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		return NewHttp503Error()
	case http.StatusGatewayTimeout:
		return NewHttp504Error()
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return NewHTTPError(resp.StatusCode, string(excerpt))
}

// Process decodes resp's JSON body into a Status, applying any inbound
// session directives first and recording resp's nextUri on the
// RequestLayer (spec §4.3). It always consumes and closes resp.Body.
func (r *RequestLayer) Process(resp *http.Response) (*Status, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, r.RaiseResponseError(resp)
	}

	reader, err := maybeDecompress(resp)
	if err != nil {
		return nil, err
	}

	var wire wireResponse
	if err := json.NewDecoder(reader).Decode(&wire); err != nil {
		return nil, err
	}
	r.debugLog("[req %s] HTTP %d: id=%s nextUri=%s", r.id, resp.StatusCode, wire.ID, wire.NextURI)

	if wire.Error != nil {
		return nil, newQueryError(wire.Error.ErrorType, wire.ID, wire.Error.Rest)
	}

	if err := r.codec.ApplyResponseDirectives(r.session, resp.Header); err != nil {
		return nil, err
	}

	r.nextURI = wire.NextURI

	return &Status{
		ID:         wire.ID,
		Stats:      wire.Stats,
		Warnings:   wire.Warnings,
		InfoURI:    wire.InfoURI,
		NextURI:    wire.NextURI,
		UpdateType: wire.UpdateType,
		Rows:       wire.Data,
		Columns:    wire.Columns,
	}, nil
}

func maybeDecompress(resp *http.Response) (io.Reader, error) {
	if resp.Header.Get("Content-Encoding") != "gzip" {
		return resp.Body, nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, err
	}
	return gz, nil
}
