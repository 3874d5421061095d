package command

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes command and parser-loading failures.
type ErrorCode string

const (
	// ErrCodeUnsupportedCommand indicates an unknown command name.
	ErrCodeUnsupportedCommand ErrorCode = "UNSUPPORTED_COMMAND"

	// ErrCodeMissingIdentifier indicates no usable identifying attribute or argument.
	ErrCodeMissingIdentifier ErrorCode = "MISSING_IDENTIFIER"

	// ErrCodeResourceNotFound indicates the named bundled resource does not exist.
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// ErrCodeNoActiveBuild indicates a relative file path was given outside a build.
	ErrCodeNoActiveBuild ErrorCode = "NO_ACTIVE_BUILD"

	// ErrCodeFileNotFound indicates the parser file does not exist.
	ErrCodeFileNotFound ErrorCode = "FILE_NOT_FOUND"

	// ErrCodeIO wraps OS failures while checking, canonicalizing or reading a file.
	ErrCodeIO ErrorCode = "IO_ERROR"

	// ErrCodeInvalidDefinition indicates the parser definition could not be compiled.
	ErrCodeInvalidDefinition ErrorCode = "INVALID_DEFINITION"
)

// Error is the structured failure returned by Parse and by parser loading.
// None of these are retryable; the caller decides whether to report or drop
// the offending message.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the offending command name, for UNSUPPORTED_COMMAND.
	Name string

	// Path is the offending resource or file path, where one applies.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// NewUnsupportedCommandError creates an UNSUPPORTED_COMMAND error.
func NewUnsupportedCommandError(name string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedCommand,
		Message: fmt.Sprintf("unsupported command type %s", name),
		Name:    name,
	}
}

// NewResourceNotFoundError creates a RESOURCE_NOT_FOUND error.
func NewResourceNotFoundError(path string) *Error {
	return &Error{
		Code:    ErrCodeResourceNotFound,
		Message: fmt.Sprintf("cannot find parser for resource path '%s'", path),
		Path:    path,
	}
}

// NewNoActiveBuildError creates a NO_ACTIVE_BUILD error.
func NewNoActiveBuildError(path string) *Error {
	return &Error{
		Code:    ErrCodeNoActiveBuild,
		Message: fmt.Sprintf("cannot register parser from file: no running build found and not absolute path specified: %s", path),
		Path:    path,
	}
}

// NewFileNotFoundError creates a FILE_NOT_FOUND error.
func NewFileNotFoundError(path string) *Error {
	return &Error{
		Code:    ErrCodeFileNotFound,
		Message: fmt.Sprintf("cannot register parser from file: file not found: %s", path),
		Path:    path,
	}
}

// NewIOError wraps an OS failure for path.
func NewIOError(path string, err error) *Error {
	return &Error{
		Code:    ErrCodeIO,
		Message: fmt.Sprintf("cannot access parser file %s", path),
		Path:    path,
		Err:     err,
	}
}

// NewInvalidDefinitionError wraps a definition compile failure for path.
func NewInvalidDefinitionError(path string, err error) *Error {
	return &Error{
		Code:    ErrCodeInvalidDefinition,
		Message: fmt.Sprintf("cannot load parser definition %s", path),
		Path:    path,
		Err:     err,
	}
}
