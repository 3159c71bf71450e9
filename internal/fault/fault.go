// Package fault - error instances
//
// Provides single instances of the classified errors returned by the
// resolvers and their collaborators, so callers can compare them
// without partial string matches.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// error base
type GenericError string

// to allow for different classes of errors
type InvalidError GenericError
type MalformedError GenericError
type TimeoutError GenericError

// common errors - keep in alphabetic order
var (
	ErrInvalidAddress   = InvalidError("invalid address")
	ErrInvalidTxID      = InvalidError("invalid transaction id")
	ErrMalformedPointer = MalformedError("genesis document has no usable mda field")
	ErrTimeout          = TimeoutError("resolution timed out")
	ErrTooManyItems     = InvalidError("too many items in request")
)

// the error interface methods
func (e GenericError) Error() string   { return string(e) }
func (e InvalidError) Error() string   { return string(e) }
func (e MalformedError) Error() string { return string(e) }
func (e TimeoutError) Error() string   { return string(e) }

// TransientError reports a failure of a backing service (node or
// indexer). It is never a statement about the data being absent.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for the named operation.
// A nil err returns nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// determine the class of an error
func IsErrInvalid(e error) bool   { var t InvalidError; return errors.As(e, &t) }
func IsErrMalformed(e error) bool { var t MalformedError; return errors.As(e, &t) }
func IsErrTimeout(e error) bool   { var t TimeoutError; return errors.As(e, &t) }

// IsErrTransient reports whether e is retryable: a backing-service
// failure or a timeout.
func IsErrTransient(e error) bool {
	var t *TransientError
	return errors.As(e, &t) || IsErrTimeout(e)
}

// FromContext maps an expired or cancelled context to ErrTimeout,
// wrapping the cause so errors.Is still matches context.Canceled. It returns nil while ctx is still live. A
// cancelled scan is incomplete, so it is never reported as not found.
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return nil
}
