package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnauthenticated indicates a missing, invalid or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a valid credential without the required grant.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates an unknown user, view or resource.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a malformed request shape.
	ErrValidation = errors.New("validation failed")
	// ErrExecution indicates a persistence failure during query or write.
	ErrExecution = errors.New("execution failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ExecError wraps a persistence failure with an opaque correlation id. The
// underlying error is never serialized; only Detail leaves the process
// boundary.
type ExecError struct {
	Detail string
	Err    error
}

// NewExecError wraps err with a fresh correlation id.
func NewExecError(err error) *ExecError {
	return &ExecError{Detail: uuid.NewString(), Err: err}
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execution failed (detail %s): %v", e.Detail, e.Err)
}

// Unwrap makes errors.Is(err, ErrExecution) hold for every ExecError.
func (e *ExecError) Unwrap() error { return ErrExecution }

// Validationf builds a validation error with a caller-facing message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
