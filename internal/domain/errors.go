package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeInput       ErrorType = "input"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeUnreadable  ErrorType = "unreadable"
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeServer      ErrorType = "server"
	ErrorTypeClient      ErrorType = "client"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeAssembly    ErrorType = "assembly"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeConfig      ErrorType = "config"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func InputError(message string, err error) *DomainError {
	return NewError(ErrorTypeInput, message, err)
}

func NotFoundError(message string, err error) *DomainError {
	return NewError(ErrorTypeNotFound, message, err)
}

func UnreadableError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnreadable, message, err)
}

func RateLimitedError(message string, err error) *DomainError {
	return NewError(ErrorTypeRateLimited, message, err)
}

func ServerError(message string, err error) *DomainError {
	return NewError(ErrorTypeServer, message, err)
}

func ClientError(message string, err error) *DomainError {
	return NewError(ErrorTypeClient, message, err)
}

func TimeoutError(message string, err error) *DomainError {
	return NewError(ErrorTypeTimeout, message, err)
}

func AssemblyError(message string, err error) *DomainError {
	return NewError(ErrorTypeAssembly, message, err)
}

func StorageError(message string, err error) *DomainError {
	return NewError(ErrorTypeStorage, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

// TypeOf returns the domain error type of err, or an empty string when err
// carries no DomainError in its chain.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsRetriable reports whether err represents a transient remote failure
// eligible for another attempt: rate limiting, a 5xx-class response, or a
// per-attempt timeout.
func IsRetriable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch TypeOf(err) {
	case ErrorTypeRateLimited, ErrorTypeServer, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}
