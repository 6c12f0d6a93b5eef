package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for HTTP mapping and retry decisions.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeConfiguration Code = "CONFIGURATION_ERROR"
	CodeStorage       Code = "STORAGE_ERROR"
)

// Metadata is the public face of a code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// Storage, Dependency and Internal failures leave nothing committed, so the same
// request may be sent again. Conflicts need a fresh invoice number first.
var metadataByCode = map[Code]Metadata{
	CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeNotFound:      {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:      {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", DetailsAllowed: true},
	CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
	CodeIdempotency:   {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
	CodeInternal:      {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
	CodeConfiguration: {HTTPStatus: http.StatusInternalServerError, PublicMessage: "platform configuration incomplete", DetailsAllowed: true},
	CodeStorage:       {HTTPStatus: http.StatusBadGateway, Retryable: true, PublicMessage: "file storage unavailable", DetailsAllowed: true},
}

// MetadataFor returns the metadata of code. Unknown codes are treated as internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsServerFault reports whether err maps to a 5xx response.
func IsServerFault(err error) bool {
	return MetadataFor(CodeOf(err)).HTTPStatus >= http.StatusInternalServerError
}

// Error is a classified failure. The reason is a stable machine readable tag,
// such as INVOICE_NUMBER_MISMATCH, that survives later WithDetails calls.
type Error struct {
	code    Code
	message string
	reason  string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap classifies err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Reason() string {
	if e == nil {
		return ""
	}
	return e.reason
}

// Details returns the attached details with the reason folded into map details.
// Details of another shape come back untouched.
func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	if e.reason == "" {
		return e.details
	}
	switch d := e.details.(type) {
	case nil:
		return map[string]any{"reason": e.reason}
	case map[string]any:
		merged := make(map[string]any, len(d)+1)
		for k, v := range d {
			merged[k] = v
		}
		merged["reason"] = e.reason
		return merged
	default:
		return e.details
	}
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) WithReason(reason string) *Error {
	if e != nil {
		e.reason = reason
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return string(e.code) + ": " + e.message
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same code and reason, so sentinel values
// can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code && e.reason == t.reason
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
