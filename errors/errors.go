package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Class says how a caller should react to an error.
type Class int

const (
	// Transient errors may succeed on retry.
	Transient Class = iota
	// Invalid errors come from bad input or configuration.
	Invalid
	// Fatal errors stop the operation for good.
	Fatal
)

var classNames = map[Class]string{
	Transient: "transient",
	Invalid:   "invalid",
	Fatal:     "fatal",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// Sentinels shared by the gateway's packages.
var (
	ErrAlreadyStarted = errors.New("already started")
	ErrNotStarted     = errors.New("not started")

	ErrNoConnection = errors.New("no connection available")
	ErrUpstream     = errors.New("upstream unavailable")

	ErrInvalidData   = errors.New("invalid data format")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// transientHints are substrings that mark driver errors we cannot match by
// type, such as mongo server selection or grpc dial failures.
var transientHints = []string{"timeout", "connection", "network", "temporary", "unavailable"}

// ClassifiedError is an error tagged with a Class and the place it was
// raised.
type ClassifiedError struct {
	Class     Class
	Component string
	Operation string
	Err       error
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }

func (e *ClassifiedError) Unwrap() error { return e.Err }

func classOf(err error) (Class, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == Transient
	}
	if errors.Is(err, ErrNoConnection) || errors.Is(err, ErrUpstream) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range transientHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err should abort the operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == Fatal
	}
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrMissingConfig)
}

// IsInvalid reports whether err was caused by the caller's input. Query
// errors with an input code count.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == Invalid
	}
	if qe, ok := AsQueryError(err); ok {
		return qe.Code.isInput()
	}
	return errors.Is(err, ErrInvalidData)
}

// Wrap adds context in the form "component.method: action failed: err".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapAs(class Class, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:     class,
		Component: component,
		Operation: method,
		Err:       Wrap(err, component, method, action),
	}
}

// WrapTransient wraps err and marks it retryable.
func WrapTransient(err error, component, method, action string) error {
	return wrapAs(Transient, err, component, method, action)
}

// WrapFatal wraps err and marks it fatal.
func WrapFatal(err error, component, method, action string) error {
	return wrapAs(Fatal, err, component, method, action)
}

// WrapInvalid wraps err and marks it as bad input.
func WrapInvalid(err error, component, method, action string) error {
	return wrapAs(Invalid, err, component, method, action)
}
