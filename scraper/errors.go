package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/aluiziolira/go-catalog-watch/parser"
)

// ErrTokenNotFound indicates the bootstrap page had no CSRF token markers.
var ErrTokenNotFound = errors.New("csrf token not found")

// FailureKind tags the outcome of a failed catalog request.
type FailureKind int

const (
	FailureProxyUnreachable FailureKind = iota + 1
	FailureUnauthorized
	FailureRateLimited
	FailureTransport
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureProxyUnreachable:
		return "proxy_unreachable"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureRateLimited:
		return "rate_limited"
	case FailureTransport:
		return "transport"
	case FailureMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Failure is a classified request failure.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	switch {
	case f.Err != nil && f.StatusCode != 0:
		return fmt.Sprintf("%s: http status %d: %v", f.Kind, f.StatusCode, f.Err)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	default:
		return fmt.Sprintf("%s: http status %d", f.Kind, f.StatusCode)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// TransportError wraps a failed bootstrap request.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bootstrap: http status %d", e.StatusCode)
	}
	return fmt.Errorf("bootstrap: %w", e.Err).Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify maps the raw outcome of one request to a Failure. It returns nil
// for a 2xx response without error.
func Classify(err error, statusCode int) *Failure {
	if err == nil && statusCode >= 200 && statusCode < 300 {
		return nil
	}

	if err != nil {
		if errors.Is(err, parser.ErrMalformed) {
			return &Failure{Kind: FailureMalformed, StatusCode: statusCode, Err: err}
		}
		if isUnreachable(err) {
			return &Failure{Kind: FailureProxyUnreachable, Err: err}
		}
		if statusCode == 0 {
			return &Failure{Kind: FailureTransport, Err: err}
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return &Failure{Kind: FailureUnauthorized, StatusCode: statusCode, Err: err}
	case http.StatusTooManyRequests:
		return &Failure{Kind: FailureRateLimited, StatusCode: statusCode, Err: err}
	default:
		return &Failure{Kind: FailureTransport, StatusCode: statusCode, Err: err}
	}
}

func isUnreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}
