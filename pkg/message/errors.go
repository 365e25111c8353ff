package message

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the closed taxonomy of §7. One Error struct carries a Kind
// plus whichever kind-specific fields that kind populates — collapsed from
// the teacher's one-struct-per-kind style (pkg/provider/errors/errors.go:
// ProviderError, ValidationError, ToolExecutionError, StreamError,
// RateLimitError) into a single variant type, per spec.md §7's explicit
// "a closed taxonomy of kinds, each a variant of a single Error type."
// Kind names and carried fields are grounded on original_source's
// error::Error enum (src/error.rs), which already lists this exact set.
type ErrorKind string

const (
	KindAPI                        ErrorKind = "api"
	KindAuthentication             ErrorKind = "authentication"
	KindPermission                 ErrorKind = "permission"
	KindNotFound                   ErrorKind = "not_found"
	KindRateLimit                  ErrorKind = "rate_limit"
	KindBadRequest                 ErrorKind = "bad_request"
	KindTimeout                    ErrorKind = "timeout"
	KindAbort                      ErrorKind = "abort"
	KindConnection                 ErrorKind = "connection"
	KindInternalServer             ErrorKind = "internal_server"
	KindServiceUnavailable         ErrorKind = "service_unavailable"
	KindSerialization              ErrorKind = "serialization"
	KindIO                         ErrorKind = "io"
	KindHTTPClient                 ErrorKind = "http_client"
	KindValidation                 ErrorKind = "validation"
	KindURL                        ErrorKind = "url"
	KindStreaming                  ErrorKind = "streaming"
	KindEncoding                   ErrorKind = "encoding"
	KindUnknown                    ErrorKind = "unknown"
	KindToDo                       ErrorKind = "todo"
)

// Error is the single wire/client error type for the whole module.
type Error struct {
	Kind            ErrorKind
	Message         string
	StatusCode      int
	ErrorType       string
	RequestID       string
	Param           string
	ResourceType    string
	ResourceID      string
	RetryAfterSeconds *int
	DurationSeconds   *float64
	Cause           error
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (request_id=%s)", e.Kind, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets callers write errors.Is(err, message.ErrRateLimit) against kind
// sentinels, mirroring the teacher's IsXxxError(err) predicates
// (pkg/provider/errors/errors.go) but expressed through the stdlib errors.Is
// protocol instead of one predicate function per kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || t.Cause != nil {
		return false
	}
	return e.Kind == t.Kind
}

// kindSentinel builds a bare, message-less *Error usable only with errors.Is.
func kindSentinel(k ErrorKind) *Error { return &Error{Kind: k} }

var (
	ErrAPI                = kindSentinel(KindAPI)
	ErrAuthentication     = kindSentinel(KindAuthentication)
	ErrPermission         = kindSentinel(KindPermission)
	ErrNotFound           = kindSentinel(KindNotFound)
	ErrRateLimit          = kindSentinel(KindRateLimit)
	ErrBadRequest         = kindSentinel(KindBadRequest)
	ErrTimeout            = kindSentinel(KindTimeout)
	ErrAbort              = kindSentinel(KindAbort)
	ErrConnection         = kindSentinel(KindConnection)
	ErrInternalServer     = kindSentinel(KindInternalServer)
	ErrServiceUnavailable = kindSentinel(KindServiceUnavailable)
	ErrSerialization      = kindSentinel(KindSerialization)
	ErrIO                 = kindSentinel(KindIO)
	ErrHTTPClient         = kindSentinel(KindHTTPClient)
	ErrValidation         = kindSentinel(KindValidation)
	ErrURL                = kindSentinel(KindURL)
	ErrStreaming          = kindSentinel(KindStreaming)
	ErrEncoding           = kindSentinel(KindEncoding)
	ErrUnknown            = kindSentinel(KindUnknown)
	ErrToDo               = kindSentinel(KindToDo)
)

// Retriable reports whether the retry engine should attempt this error kind
// again, per the §4.1 policy table.
func (e *Error) Retriable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection, KindRateLimit, KindServiceUnavailable, KindInternalServer:
		return true
	case KindAPI:
		switch e.StatusCode {
		case 408, 409, 429:
			return true
		}
		return e.StatusCode >= 500 && e.StatusCode <= 599
	default:
		return false
	}
}

// --- constructors, one per kind, mirroring the teacher's NewXxxError idiom ---

func NewAPIError(statusCode int, errorType, msg, requestID string) *Error {
	return &Error{Kind: KindAPI, StatusCode: statusCode, ErrorType: errorType, Message: msg, RequestID: requestID}
}

func NewAuthenticationError(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func NewPermissionError(msg string) *Error { return &Error{Kind: KindPermission, Message: msg} }

func NewNotFoundError(msg, resourceType, resourceID string) *Error {
	return &Error{Kind: KindNotFound, Message: msg, ResourceType: resourceType, ResourceID: resourceID}
}

func NewRateLimitError(msg string, retryAfterSeconds *int) *Error {
	return &Error{Kind: KindRateLimit, Message: msg, RetryAfterSeconds: retryAfterSeconds}
}

func NewBadRequestError(msg, param string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg, Param: param}
}

func NewTimeoutError(msg string, duration time.Duration) *Error {
	d := duration.Seconds()
	return &Error{Kind: KindTimeout, Message: msg, DurationSeconds: &d}
}

func NewAbortError(msg string) *Error { return &Error{Kind: KindAbort, Message: msg} }

func NewConnectionError(msg string, cause error) *Error {
	return &Error{Kind: KindConnection, Message: msg, Cause: cause}
}

func NewInternalServerError(msg, requestID string) *Error {
	return &Error{Kind: KindInternalServer, Message: msg, RequestID: requestID}
}

func NewServiceUnavailableError(msg string, retryAfterSeconds *int) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: msg, RetryAfterSeconds: retryAfterSeconds}
}

func NewSerializationError(msg string, cause error) *Error {
	return &Error{Kind: KindSerialization, Message: msg, Cause: cause}
}

func NewIOError(msg string, cause error) *Error { return &Error{Kind: KindIO, Message: msg, Cause: cause} }

func NewHTTPClientError(msg string, cause error) *Error {
	return &Error{Kind: KindHTTPClient, Message: msg, Cause: cause}
}

func NewValidationError(msg, param string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Param: param}
}

func NewURLError(msg string, cause error) *Error { return &Error{Kind: KindURL, Message: msg, Cause: cause} }

func NewStreamingError(msg string, cause error) *Error {
	return &Error{Kind: KindStreaming, Message: msg, Cause: cause}
}

func NewEncodingError(msg string, cause error) *Error {
	return &Error{Kind: KindEncoding, Message: msg, Cause: cause}
}

func NewUnknownError(msg string) *Error { return &Error{Kind: KindUnknown, Message: msg} }

// FromHTTPStatus maps an HTTP status code to an Error kind per the §4.1
// fixed table. body should already be parsed (errorType/msg/param come from
// the `{"error": {...}}` envelope, or msg is the raw body when unparseable).
func FromHTTPStatus(statusCode int, errorType, msg, param, requestID string, retryAfter *int) *Error {
	switch statusCode {
	case 400:
		return NewBadRequestError(msg, param)
	case 401:
		return NewAuthenticationError(msg)
	case 403:
		return NewPermissionError(msg)
	case 404:
		return NewNotFoundError(msg, "", "")
	case 408:
		return NewTimeoutError(msg, 0)
	case 429, 529:
		return NewRateLimitError(msg, retryAfter)
	case 500:
		return NewInternalServerError(msg, requestID)
	case 502, 503, 504:
		return NewServiceUnavailableError(msg, retryAfter)
	default:
		return NewAPIError(statusCode, errorType, msg, requestID)
	}
}

// As is a thin re-export so callers need only import pkg/message for the
// common case of extracting a *message.Error from a wrapped error chain.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}
