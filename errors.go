package ucp

import (
	"net/http"
)

// ErrorType mirrors the UCP error.type field.
type ErrorType string

const (
	InvalidRequest      ErrorType = "invalid_request"      // Missing or malformed field.
	AuthenticationError ErrorType = "authentication_error" // Signature or allow-list failure.
	GatewayUnavailable  ErrorType = "gateway_unavailable"  // Capability or payment backend off.
	ProcessingError     ErrorType = "processing_error"     // Downstream store or network failure.
)

// ErrorCode is a machine-readable identifier for the specific failure.
type ErrorCode string

const (
	ValidationFailed   ErrorCode = "validation_failed"   // Empty or malformed checkout payload.
	ProductNotFound    ErrorCode = "product_not_found"   // A line item references an unknown product.
	OutOfStock         ErrorCode = "out_of_stock"        // A line item references an unavailable product.
	LimitExceeded      ErrorCode = "limit_exceeded"      // Order total tripped the configured spend cap.
	InvalidSignature   ErrorCode = "invalid_signature"   // Signature missing, unverifiable, or unbound from the payload.
	AgentBlocked       ErrorCode = "agent_blocked"       // Agent profile is not on the allow-list.
	CapabilityDisabled ErrorCode = "capability_disabled" // The named capability is switched off.
)

// Error represents a structured UCP error payload. The message is always
// safe to return to the caller; diagnostic detail stays in the log.
type Error struct {
	Type    ErrorType `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"error"`
	Param   *string   `json:"param,omitempty"`

	status int `json:"-"`
}

// Error makes *Error satisfy the stdlib error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// StatusCode returns the HTTP status the payload is written with.
func (e *Error) StatusCode() int {
	if e == nil || e.status == 0 {
		return http.StatusInternalServerError
	}
	return e.status
}

type errorOption func(*Error)

// WithOffendingParam sets the JSON path for the field that triggered the error.
func WithOffendingParam(jsonPath string) errorOption {
	return func(er *Error) {
		er.Param = &jsonPath
	}
}

// WithStatusCode overrides the HTTP status code returned to the client.
func WithStatusCode(status int) errorOption {
	return func(er *Error) {
		er.status = status
	}
}

// NewValidationError builds a Bad Request payload for malformed input.
func NewValidationError(message string, opts ...errorOption) *Error {
	return newError(InvalidRequest, ValidationFailed, message, append([]errorOption{WithStatusCode(http.StatusBadRequest)}, opts...)...)
}

// NewStockError builds a Bad Request payload for an inventory conflict.
func NewStockError(message string, opts ...errorOption) *Error {
	return newError(InvalidRequest, OutOfStock, message, append([]errorOption{WithStatusCode(http.StatusBadRequest)}, opts...)...)
}

// NewLimitExceededError builds a Bad Request payload for a tripped spend cap.
func NewLimitExceededError(message string, opts ...errorOption) *Error {
	return newError(InvalidRequest, LimitExceeded, message, append([]errorOption{WithStatusCode(http.StatusBadRequest)}, opts...)...)
}

// NewAuthError builds an Unauthorized payload for a failed verification.
func NewAuthError(message string, opts ...errorOption) *Error {
	return newError(AuthenticationError, InvalidSignature, message, append([]errorOption{WithStatusCode(http.StatusUnauthorized)}, opts...)...)
}

// NewGatewayUnavailableError builds a Forbidden payload for a disabled
// capability or unregistered payment backend.
func NewGatewayUnavailableError(message string, opts ...errorOption) *Error {
	return newError(GatewayUnavailable, CapabilityDisabled, message, append([]errorOption{WithStatusCode(http.StatusForbidden)}, opts...)...)
}

// NewProcessingError builds an Internal Server Error payload.
func NewProcessingError(message string, opts ...errorOption) *Error {
	return newError(ProcessingError, ErrorCode(ProcessingError), message, append([]errorOption{WithStatusCode(http.StatusInternalServerError)}, opts...)...)
}

// NewHTTPError allows callers to control the status code explicitly.
func NewHTTPError(status int, typ ErrorType, code ErrorCode, message string, opts ...errorOption) *Error {
	return newError(typ, code, message, append(opts, WithStatusCode(status))...)
}

// newError builds a typed error payload matching the UCP schema.
func newError(typ ErrorType, code ErrorCode, message string, opts ...errorOption) *Error {
	errPayload := &Error{
		Type:    typ,
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(errPayload)
	}
	return errPayload
}
