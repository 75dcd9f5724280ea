package errors

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrInvalidTarget is returned when a value cannot be decorated
	ErrInvalidTarget = errors.New("invalid decoration target")

	// ErrInvalidHook is returned when a method bag entry has the wrong hook type
	ErrInvalidHook = errors.New("invalid hook")

	// ErrNotSettable is returned when a wrapper cannot be installed on a member
	ErrNotSettable = errors.New("member is not settable")

	// ErrNotCallable is returned when a member that is invoked is not a function
	ErrNotCallable = errors.New("member is not callable")

	// ErrParamMismatch is returned when transformed params do not fit the wrapped signature
	ErrParamMismatch = errors.New("params do not match signature")

	// ErrInvalidDescriptor is returned when a property descriptor mixes accessor and value
	ErrInvalidDescriptor = errors.New("invalid property descriptor")

	// ErrNotConfigurable is returned when redefining a non-configurable property
	ErrNotConfigurable = errors.New("property is not configurable")

	// ErrNotWritable is returned when assigning to a read-only property
	ErrNotWritable = errors.New("property is not writable")

	// ErrPanic wraps a recovered panic raised by a hook or a wrapped call
	ErrPanic = errors.New("recovered panic")

	// ErrLuaExecution is returned when there's an error executing a Lua script
	ErrLuaExecution = errors.New("lua script execution error")

	// ErrJournalDisabled is returned when reading events without a journal
	ErrJournalDisabled = errors.New("journal disabled")

	// ErrRejectedNil marks a future rejected without an error
	ErrRejectedNil = errors.New("future rejected with nil error")
)

// Wrap wraps an error with additional context
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// FromPanic converts a recovered panic value into an error wrapping ErrPanic.
// Panics that already carry an error keep it in the chain.
func FromPanic(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience function that wraps errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if so, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a convenience function that wraps errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
