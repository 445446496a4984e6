package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCircuitOpen is returned without attempting the call while a circuit
	// breaker is open.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrNotFound is returned by stores when no record has the requested id.
	ErrNotFound = errors.New("record not found")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Body       string        // truncated response body, for logs
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// TransportError is a network failure, timeout, 5xx or 429. It is eligible
// for retry and counts toward circuit failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClientError is a 4xx response (other than a recoverable 401). Never retried.
type ClientError struct {
	Op  string
	Err error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: client error: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// AuthenticationError means no access token could be obtained.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TransformationError is raised when a provider record cannot be mapped to a
// canonical entity.
type TransformationError struct {
	Entity     string // "job" or "facility"
	ExternalID string
	Err        error
}

func (e *TransformationError) Error() string {
	id := e.ExternalID
	if id == "" {
		id = "<missing>"
	}
	return fmt.Sprintf("transform %s %s: %v", e.Entity, id, e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

// PersistenceError is an upsert or update failure in the store.
type PersistenceError struct {
	Op         string
	ExternalID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ExternalID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Error kinds used as log attributes and metric labels.
const (
	KindCircuitOpen    = "circuit_open"
	KindAuth           = "auth"
	KindClient         = "client"
	KindTransport      = "transport"
	KindTransformation = "transformation"
	KindPersistence    = "persistence"
	KindCanceled       = "canceled"
	KindUnknown        = "unknown"
)

// ErrorKind classifies err into one of the Kind* constants. The outermost
// recognised type wins, so a circuit-open rejection and an exhausted retry
// stay distinguishable even though both surface as a single error.
func ErrorKind(err error) string {
	var (
		authErr      *AuthenticationError
		clientErr    *ClientError
		transportErr *TransportError
		transformErr *TransformationError
		persistErr   *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &clientErr):
		return KindClient
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &transformErr):
		return KindTransformation
	case errors.As(err, &persistErr):
		return KindPersistence
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
