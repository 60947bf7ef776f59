package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Kind classifies why a provider produced no results.
type Kind string

const (
	KindConfig    Kind = "config_error"
	KindTransport Kind = "transport_error"
	KindParse     Kind = "parse_error"
	KindInternal  Kind = "internal_error"
)

// Error is a failure scoped to one provider. It never aborts the request as a
// whole; the dispatcher records it in that provider's outcome.
type Error struct {
	Provider ID
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the caller-safe description of the failure.
func (e *Error) Message() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

// ConfigError reports a missing or unusable credential. Adapters return it
// before making any network call.
func ConfigError(id ID, format string, args ...any) *Error {
	return &Error{Provider: id, Kind: KindConfig, Err: fmt.Errorf(format, args...)}
}

// TransportError wraps a network failure or non-2xx response. The request URL
// is stripped from *url.Error values because some providers carry their API
// key in the query string.
func TransportError(id ID, err error) *Error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = errTimedOut
	}
	return &Error{Provider: id, Kind: KindTransport, Err: err}
}

// ParseError reports a response body that could not be decoded.
func ParseError(id ID, err error) *Error {
	return &Error{Provider: id, Kind: KindParse, Err: err}
}

var errTimedOut = errors.New("request timed out")

// AsError converts any error returned by a provider into an *Error for id.
// Errors that are not already typed are treated as transport failures.
func AsError(id ID, err error) *Error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		if perr.Provider == "" {
			cp := *perr
			cp.Provider = id
			return &cp
		}
		return perr
	}
	return TransportError(id, err)
}
