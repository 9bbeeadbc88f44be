package result

import (
	"errors"
	"fmt"
)

// Error is an error that carries a result code through Go error chains.
//
// Engine internals return *Error (or wrap one) so the boundary can report a
// precise code instead of the generic UnknownError.
type Error struct {
	// Code is the boundary code reported for this failure.
	Code Code

	// Op names the operation that failed (e.g. "create window").
	Op string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return e.Code.String()
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an *Error with a formatted cause.
func Errorf(code Code, op string, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a code to err. Returns nil if err is nil.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// FromError maps an error to its boundary code.
// nil maps to Success; errors without an attached code map to UnknownError.
// Uses errors.As so wrapped errors keep their code.
func FromError(err error) Code {
	if err == nil {
		return Success
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return UnknownError
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && FromError(err) == code
}
