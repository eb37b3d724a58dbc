package service

import (
	"errors"
	"fmt"
)

// Domain errors. Handlers map these to HTTP statuses; the service layer never
// retries a business-rule rejection.
var (
	// ErrCardNotFound covers both a missing card and a card that does not
	// belong to the acting user; callers cannot tell the two apart.
	ErrCardNotFound = errors.New("card not found")

	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientFunds means the source balance is lower than the
	// requested transfer amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotAuthenticated means no authenticated principal is available for
	// an operation that requires one.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// OperationError rejects an operation that violates a lifecycle or amount
// rule (inactive card, non-positive amount, invalid transition).
type OperationError struct {
	Reason string
}

func (e *OperationError) Error() string {
	return e.Reason
}

// EncryptionError wraps a cipher failure. It is fatal to the enclosing
// operation: a card is never persisted with a plaintext or half-encrypted
// sensitive field.
type EncryptionError struct {
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption failure: %v", e.Err)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}
