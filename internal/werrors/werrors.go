// Package werrors defines the failure taxonomy shared by ingest pipelines,
// external clients, and the read API.
package werrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the ingest log and the API error mapper
// both need to branch on.
type Kind string

const (
	Validation        Kind = "validation"
	NotFound          Kind = "not_found"
	UpstreamTransient Kind = "upstream_transient"
	UpstreamPermanent Kind = "upstream_permanent"
	BreakerOpen       Kind = "breaker_open"
	StorageFailure    Kind = "storage_failure"
	Unexpected        Kind = "unexpected"
)

// Error is a typed failure carrying a stable, client-branchable token.
type Error struct {
	Kind    Kind
	Token   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Token, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Token, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a typed error with no wrapped cause.
func New(kind Kind, token, message string) *Error {
	return &Error{Kind: kind, Token: token, Message: message}
}

// Wrap attaches a kind and token to an underlying error.
func Wrap(kind Kind, token string, err error) *Error {
	return &Error{Kind: kind, Token: token, Err: err}
}

// As extracts a *Error from err, if any exists in its chain.
func As(err error) (*Error, bool) {
	var werr *Error
	if errors.As(err, &werr) {
		return werr, true
	}
	return nil, false
}

// KindOf returns the Kind of err, defaulting to Unexpected.
func KindOf(err error) Kind {
	if werr, ok := As(err); ok {
		return werr.Kind
	}
	return Unexpected
}
