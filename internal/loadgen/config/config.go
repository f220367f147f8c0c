// Package config defines the load test configuration and its validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Supported HTTP methods.
const (
	MethodGet   = "GET"
	MethodPost  = "POST"
	MethodPut   = "PUT"
	MethodPatch = "PATCH"
)

// PacingMode selects how a virtual user spaces its requests.
type PacingMode string

const (
	// PacingDelay sleeps for the inter-request delay after every request.
	PacingDelay PacingMode = "delay"

	// PacingRate spaces request starts 1/rps apart using a leaky bucket.
	PacingRate PacingMode = "rate"
)

// Extra report formats written next to the plain text reports.
const (
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
	FormatHTML = "html"
)

// Header is a single request header. Order is preserved and keys may repeat.
type Header struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Param is a single query parameter appended to the target URL.
type Param struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// TestConfiguration describes one load test run.
//
// A configuration is read-only once a run starts; the engine works on its own copy.
type TestConfiguration struct {
	// Target
	URL         string  `json:"url" yaml:"url"`
	QueryParams []Param `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`
	Method      string  `json:"method" yaml:"method"`

	// Request template
	Headers       []Header `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body          string   `json:"body,omitempty" yaml:"body,omitempty"`
	Authorization string   `json:"-" yaml:"-"`

	// Load profile
	Users             int `json:"users" yaml:"users"`
	RampUp            int `json:"rampUp" yaml:"rampUp"` // seconds
	LoopCount         int `json:"loopCount" yaml:"loopCount"`
	RequestsPerSecond int `json:"requestsPerSecond" yaml:"requestsPerSecond"`

	// Timeout for a single request, zero leaves the transport default.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	Pacing PacingMode `json:"pacing,omitempty" yaml:"pacing,omitempty"`

	// Output
	OutputDir string   `json:"outputDir" yaml:"outputDir"`
	Formats   []string `json:"formats,omitempty" yaml:"formats,omitempty"`
}

// Clone returns a deep copy of the configuration.
func (c *TestConfiguration) Clone() *TestConfiguration {
	cp := *c
	cp.QueryParams = append([]Param(nil), c.QueryParams...)
	cp.Headers = append([]Header(nil), c.Headers...)
	cp.Formats = append([]string(nil), c.Formats...)
	return &cp
}

// PerUserRequests returns the number of requests each virtual user issues.
//
// The rate is used as a flat multiplier here: loopCount × requestsPerSecond × rampUp.
func (c *TestConfiguration) PerUserRequests() int {
	return c.LoopCount * c.RequestsPerSecond * c.RampUp
}

// ExpectedRequests returns the number of requests expected across all users.
func (c *TestConfiguration) ExpectedRequests() int {
	return c.Users * c.PerUserRequests()
}

// RequestDelay returns the pause between two requests of one virtual user.
func (c *TestConfiguration) RequestDelay() time.Duration {
	if c.RequestsPerSecond <= 0 {
		return 0
	}
	return time.Duration(1000/c.RequestsPerSecond) * time.Millisecond
}

// UserStagger returns the start offset between two consecutive virtual users.
func (c *TestConfiguration) UserStagger() time.Duration {
	if c.Users <= 0 {
		return 0
	}
	return time.Duration(c.RampUp*1000/c.Users) * time.Millisecond
}

// TargetURL returns the URL with the query parameters appended.
func (c *TestConfiguration) TargetURL() string {
	if len(c.QueryParams) == 0 {
		return c.URL
	}

	var sb strings.Builder
	for _, p := range c.QueryParams {
		if p.Key == "" || p.Value == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	if sb.Len() == 0 {
		return c.URL
	}

	sep := "?"
	if strings.Contains(c.URL, "?") {
		sep = "&"
	}
	return c.URL + sep + sb.String()
}

// HasBody reports whether the configured method carries the request body.
func (c *TestConfiguration) HasBody() bool {
	switch c.Method {
	case MethodPost, MethodPut, MethodPatch:
		return true
	}
	return false
}

// ParseHeaders parses a newline separated block of "Key: Value" lines.
//
// Lines without a colon are skipped. The line is split on the first colon and
// both sides are trimmed.
func ParseHeaders(text string) []Header {
	var headers []Header
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers = append(headers, Header{Key: key, Value: strings.TrimSpace(value)})
	}
	return headers
}

// ParseParam parses a "key=value" query parameter.
func ParseParam(s string) (Param, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return Param{}, fmt.Errorf("invalid query parameter %q, expected key=value", s)
	}
	return Param{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}, nil
}

// AuthorizationValue builds an Authorization header value from a scheme and token.
//
// Known schemes are bearer, jwt and basic. An empty token or the none scheme
// yields an empty value.
func AuthorizationValue(scheme, token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}

	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "bearer":
		return "Bearer " + token
	case "jwt":
		return "JWT " + token
	case "basic":
		return "Basic " + token
	default:
		return ""
	}
}
