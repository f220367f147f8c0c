package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the test configuration.
//
// Returns nil if valid, or a ValidationErrors containing all validation errors.
// A run must never start with an invalid configuration: a zero rate would
// divide by zero when deriving the request delay.
func (c *TestConfiguration) Validate() error {
	errs := &ValidationErrors{}

	validateTarget(c, errs)
	validateLoad(c, errs)
	validateOutput(c, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateTarget(c *TestConfiguration, errs *ValidationErrors) {
	if c.URL == "" {
		errs.Add("url", "url is required")
	} else {
		u, err := url.Parse(c.URL)
		switch {
		case err != nil:
			errs.Add("url", fmt.Sprintf("invalid URL: %v", err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs.Add("url", fmt.Sprintf("unsupported scheme %q, expected http or https", u.Scheme))
		case u.Host == "":
			errs.Add("url", "url must include a host")
		}
	}

	switch c.Method {
	case MethodGet, MethodPost, MethodPut, MethodPatch:
	case "":
		errs.Add("method", "method is required")
	default:
		errs.Add("method", fmt.Sprintf("unsupported HTTP method: %s", c.Method))
	}

	for i, h := range c.Headers {
		if strings.TrimSpace(h.Key) == "" {
			errs.Add(fmt.Sprintf("headers[%d]", i), "header key is required")
		}
	}
}

func validateLoad(c *TestConfiguration, errs *ValidationErrors) {
	if c.Users <= 0 {
		errs.Add("users", "users must be greater than 0")
	}
	if c.RampUp <= 0 {
		errs.Add("rampUp", "ramp-up must be greater than 0")
	}
	if c.LoopCount <= 0 {
		errs.Add("loopCount", "loop count must be greater than 0")
	}
	if c.RequestsPerSecond <= 0 {
		errs.Add("requestsPerSecond", "requests per second must be greater than 0")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "timeout cannot be negative")
	}

	switch c.Pacing {
	case "", PacingDelay, PacingRate:
	default:
		errs.Add("pacing", fmt.Sprintf("unknown pacing mode: %s", c.Pacing))
	}
}

func validateOutput(c *TestConfiguration, errs *ValidationErrors) {
	if strings.TrimSpace(c.OutputDir) == "" {
		errs.Add("outputDir", "output directory is required")
	}

	for i, f := range c.Formats {
		switch f {
		case FormatYAML, FormatXLSX, FormatHTML:
		default:
			errs.Add(fmt.Sprintf("formats[%d]", i), fmt.Sprintf("unknown report format: %s", f))
		}
	}
}
