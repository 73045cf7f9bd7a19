package artifact

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotReady is the cause when the record sources were not attached in time
var ErrNotReady = errors.New("database not ready")

// Kind classifies why an artifact could not be served
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindBuildFailure       Kind = "build_failure"
	KindPersistFailure     Kind = "persist_failure"
	KindDependencyNotReady Kind = "dependency_not_ready"
	KindTimeout            Kind = "timeout"
)

// HTTPStatus maps the kind to a response status
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindDependencyNotReady, KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by every Coordinator operation that fails
type Error struct {
	Kind        Kind
	Filename    string
	QuotationID string
	Err         error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Filename != "" {
		msg += fmt.Sprintf(" (filename=%s)", e.Filename)
	}
	if e.QuotationID != "" {
		msg += fmt.Sprintf(" (quotation=%s)", e.QuotationID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
