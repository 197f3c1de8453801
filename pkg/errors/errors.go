package errors

import (
	stdErrors "errors"
	"net/http"
)

// Code is the machine readable error identifier sent to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeDuplicateEmail         Code = "DUPLICATE_EMAIL"
	CodeDuplicateActiveOrder   Code = "DUPLICATE_ACTIVE_ORDER"
	CodeItemNotFound           Code = "ITEM_NOT_FOUND"
	CodeAuthenticationRequired Code = "AUTHENTICATION_REQUIRED"
	CodeAccountDisabled        Code = "ACCOUNT_DISABLED"
	CodeInvalidToken           Code = "INVALID_TOKEN"
)

// Metadata describes how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	final     = false
	retryable = true
	hidden    = false
	detailed  = true
)

var catalog = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, final, "validation failed", detailed},
	CodeUnauthorized:  {http.StatusUnauthorized, final, "authentication required", hidden},
	CodeForbidden:     {http.StatusForbidden, final, "access denied", hidden},
	CodeNotFound:      {http.StatusNotFound, final, "resource not found", hidden},
	CodeConflict:      {http.StatusConflict, final, "conflict detected", hidden},
	CodeStateConflict: {http.StatusUnprocessableEntity, final, "state transition disallowed", detailed},
	CodeIdempotency:   {http.StatusConflict, final, "idempotency key reused", detailed},
	CodeRateLimit:     {http.StatusTooManyRequests, retryable, "rate limit exceeded", detailed},
	CodeInternal:      {http.StatusInternalServerError, retryable, "internal server error", hidden},
	CodeDependency:    {http.StatusServiceUnavailable, retryable, "dependency unavailable", detailed},

	CodeDuplicateEmail:         {http.StatusConflict, final, "email already registered", hidden},
	CodeDuplicateActiveOrder:   {http.StatusConflict, final, "customer already has an active order", detailed},
	CodeItemNotFound:           {http.StatusNotFound, final, "item not found", detailed},
	CodeAuthenticationRequired: {http.StatusUnauthorized, final, "authentication required", hidden},
	CodeAccountDisabled:        {http.StatusForbidden, final, "account disabled", hidden},
	CodeInvalidToken:           {http.StatusBadRequest, final, "invalid or expired token", hidden},
}

// MetadataFor returns the rendering of code. Unknown codes render as
// CodeInternal.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}

// Exposable reports whether the message of an error with this code may be
// returned to callers verbatim. Internal and dependency failures are always
// replaced by the public message.
func (c Code) Exposable() bool {
	if c == CodeInternal || c == CodeDependency {
		return false
	}
	_, known := catalog[c]
	return known
}

// Error is a coded error with an optional cause and client facing details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
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

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries a typed error with the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
