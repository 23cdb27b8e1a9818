package core

import "github.com/pkg/errors"

var (
	// ErrConflict is returned by repositories when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflicting record")

	// ErrUpstreamUnavailable is returned when an external service cannot be reached or fails.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports an unresolvable reference to a stored entity.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (err *NotFoundError) Error() string {
	return err.Resource + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ArgumentError reports a malformed or out of range argument.
type ArgumentError struct {
	Arg string
	msg string
}

func NewArgumentError(arg, msg string) error {
	return &ArgumentError{Arg: arg, msg: msg}
}

// Reason is the message without the argument name.
func (err *ArgumentError) Reason() string { return err.msg }

func (err *ArgumentError) Error() string {
	if err.Arg == "" {
		return err.msg
	}
	return err.Arg + ": " + err.msg
}

func IsArgumentError(err error) bool {
	_, ok := errors.Cause(err).(*ArgumentError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
