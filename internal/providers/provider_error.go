package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind separates the ways a backend call can fail.
type ErrorKind string

const (
	// KindTransport covers network failures, timeouts and request build errors.
	KindTransport ErrorKind = "transport"
	// KindDecode means the backend answered 2xx with a body we could not parse.
	KindDecode ErrorKind = "decode"
	// KindRejection means the backend answered with a non-2xx status.
	KindRejection ErrorKind = "rejection"
	// KindInvalidInput is raised before any request is sent.
	KindInvalidInput ErrorKind = "invalid_input"
)

// ProviderError is the only error type returned by DispatchAPIProvider.
type ProviderError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Status  int
	Details string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of a provider error, or "" for nil and foreign errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// StatusOf returns the HTTP status carried by a rejection, or 0.
func StatusOf(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

func IsRejection(err error) bool { return KindOf(err) == KindRejection }

// IsUnauthorized is true when the backend refused the credential.
func IsUnauthorized(err error) bool {
	if !IsRejection(err) {
		return false
	}
	s := StatusOf(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

// Outcome is the label used for metrics and the action log.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
