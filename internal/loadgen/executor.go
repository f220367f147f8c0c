package loadgen

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wesleyorama2/surge/internal/loadgen/config"
	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
)

// Executor issues single requests built from a test configuration.
//
// Executor holds no per-request state and is safe for concurrent use.
type Executor struct {
	method  string
	url     string
	headers []config.Header
	body    string
	hasBody bool
	auth    string

	client *http.Client
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ExecutorOption {
	return func(e *Executor) {
		if client != nil {
			e.client = client
		}
	}
}

// NewExecutor creates an executor for the configuration.
//
// The default client never keeps connections alive, so every request dials
// and releases its own connection.
func NewExecutor(cfg *config.TestConfiguration, opts ...ExecutorOption) *Executor {
	e := &Executor{
		method:  cfg.Method,
		url:     cfg.TargetURL(),
		headers: append([]config.Header(nil), cfg.Headers...),
		body:    cfg.Body,
		hasBody: cfg.HasBody(),
		auth:    cfg.Authorization,
		client:  NewHTTPClient(cfg.Timeout),
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewHTTPClient creates a client with connection reuse disabled.
// A zero timeout keeps the transport default.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true
	transport.MaxIdleConns = 0

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Execute issues one request and returns its outcome.
//
// Only the round trip up to the response head is timed. The body is closed
// unread, so a slow body never holds up the virtual user. A request that gets
// no response yields a failure result with zero elapsed time.
func (e *Executor) Execute(ctx context.Context) metrics.Result {
	req, err := e.buildRequest(ctx)
	if err != nil {
		return metrics.FailureResult(err)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return metrics.FailureResult(err)
	}

	resp.Body.Close()

	return metrics.StatusResult(resp.StatusCode, elapsed)
}

// buildRequest builds the HTTP request from the configuration.
func (e *Executor) buildRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if e.hasBody {
		body = strings.NewReader(e.body)
	}

	req, err := http.NewRequestWithContext(ctx, e.method, e.url, body)
	if err != nil {
		return nil, err
	}

	for _, h := range e.headers {
		setHeader(req, h.Key, h.Value)
	}

	if e.auth != "" {
		req.Header.Set("Authorization", e.auth)
	}

	return req, nil
}

// setHeader sets a header, replacing earlier values of the same key.
func setHeader(req *http.Request, key, value string) {
	if strings.EqualFold(key, "Host") {
		req.Host = value
		return
	}
	req.Header.Set(key, value)
}

// Close releases idle resources held by the executor's client.
func (e *Executor) Close() {
	e.client.CloseIdleConnections()
}
