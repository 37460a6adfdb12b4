package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrResponseTooLarge is returned when a body exceeds the configured cap,
	// whether declared through Content-Length or observed while reading.
	ErrResponseTooLarge = errors.New("response too large")

	// ErrMalformedBody covers invalid JSON and bodies without a usable field.
	ErrMalformedBody = errors.New("malformed response body")

	ErrNoProviders = errors.New("no providers configured")
)

// TransportError wraps connection and I/O failures. Retryable.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type StatusKind int

const (
	KindClient StatusKind = iota
	KindServer
	KindRateLimited
)

func (k StatusKind) String() string {
	switch k {
	case KindServer:
		return "server error"
	case KindRateLimited:
		return "rate limited"
	default:
		return "client error"
	}
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL        string
	Code       int
	RetryAfter time.Duration // only set for 429 with a parseable header
}

func (e *StatusError) Kind() StatusKind {
	switch {
	case e.Code == http.StatusTooManyRequests:
		return KindRateLimited
	case e.Code >= 500:
		return KindServer
	default:
		return KindClient
	}
}

func (e *StatusError) Retryable() bool { return e.Kind() != KindClient }

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d from %s", e.Kind(), e.Code, e.URL)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	return msg
}

// ProviderFailure is one entry of a failed chain evaluation.
type ProviderFailure struct {
	Provider string
	Err      error
}

func (f ProviderFailure) String() string {
	return f.Provider + ": " + f.Err.Error()
}

// ChainExhaustedError is returned when every provider failed. Its message
// comes from the last failure; Failures keeps all of them in chain order.
type ChainExhaustedError struct {
	Failures []ProviderFailure
}

func (e *ChainExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return ErrNoProviders.Error()
	}
	return e.Failures[len(e.Failures)-1].String()
}

// Summary joins every failure on one line for logs.
func (e *ChainExhaustedError) Summary() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "; ")
}

func (e *ChainExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Classify names the failure class of err for logs and metric labels.
func Classify(err error) string {
	var se *StatusError
	var te *TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		switch se.Kind() {
		case KindServer:
			return "server_error"
		case KindRateLimited:
			return "rate_limited"
		default:
			return "client_error"
		}
	case errors.Is(err, ErrResponseTooLarge):
		return "too_large"
	case errors.Is(err, ErrMalformedBody):
		return "malformed"
	case errors.As(err, &te):
		return "transport"
	default:
		return "other"
	}
}
