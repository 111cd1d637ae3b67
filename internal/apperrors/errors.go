package apperrors

import (
	"errors"
	"fmt"
)

// RetryableError indicates an error that might be resolved by retrying.
type RetryableError struct {
	Err error
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryable wraps the given error as a RetryableError, adding a message.
// It uses fmt.Errorf with %w to maintain the error chain.
func NewRetryable(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &RetryableError{Err: fmt.Errorf(format, allArgs...)}
}

// FatalError indicates an error that is unlikely to be resolved by retrying.
type FatalError struct {
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatal wraps the given error as a FatalError, adding a message.
func NewFatal(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &FatalError{Err: fmt.Errorf(format, allArgs...)}
}

// --- Standard Error Definitions ---

// These sentinel errors define the application-level error conditions of the
// session manager. They can be checked with errors.Is and wrapped with
// additional context where they are produced.
var (
	// ErrAlreadyActive indicates a connect attempt for a session that already
	// has a live handle in this process.
	ErrAlreadyActive = errors.New("session already active")
	// ErrNotConnected indicates a send attempted on a session without a live handle.
	ErrNotConnected = errors.New("session not connected")
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrDeliveryFailed indicates the messaging gateway rejected an outbound send.
	ErrDeliveryFailed = errors.New("message delivery failed")
	// ErrCredentialFailure indicates vault corruption or a gateway auth error
	// during a connect attempt. Terminal for that attempt.
	ErrCredentialFailure = errors.New("credential failure")
	// ErrValidation indicates failure during data validation.
	ErrValidation = errors.New("validation failed")
	// ErrDatabase indicates a general database interaction error.
	ErrDatabase = errors.New("database error")
	// ErrDuplicate indicates a conflict due to duplicate data (e.g., unique constraint).
	ErrDuplicate = errors.New("duplicate resource")
	// ErrBadRequest indicates a malformed or invalid request from the caller.
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized indicates an authorization failure.
	ErrUnauthorized = errors.New("unauthorized access")
)

// --- Specific Standard Error Checkers ---

// IsRetryable checks if the error is a RetryableError or wraps one.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsFatal checks if the error is a FatalError or wraps one.
func IsFatal(err error) bool {
	var target *FatalError
	return errors.As(err, &target)
}

// IsAlreadyActiveError checks if the error is or wraps ErrAlreadyActive.
func IsAlreadyActiveError(err error) bool {
	return errors.Is(err, ErrAlreadyActive)
}

// IsNotConnectedError checks if the error is or wraps ErrNotConnected.
func IsNotConnectedError(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// IsNotFoundError checks if the error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDeliveryFailedError checks if the error is or wraps ErrDeliveryFailed.
func IsDeliveryFailedError(err error) bool {
	return errors.Is(err, ErrDeliveryFailed)
}

// IsCredentialFailureError checks if the error is or wraps ErrCredentialFailure.
func IsCredentialFailureError(err error) bool {
	return errors.Is(err, ErrCredentialFailure)
}

// IsValidationError checks if the error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDatabaseError checks if the error is or wraps ErrDatabase.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsDuplicateError checks if the error is or wraps ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsBadRequestError checks if the error is or wraps ErrBadRequest.
func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}
