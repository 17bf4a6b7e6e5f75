package core

import "github.com/pkg/errors"

// ErrPKCollision is returned by repositories when an insert hits an existing
// surrogate key, which happens when a sequence lags behind manually seeded rows.
var ErrPKCollision = errors.New("primary key collision")

func IsPKCollision(err error) bool {
	return err != nil && errors.Cause(err) == ErrPKCollision
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports bad client input. Nothing has been written when it is returned.
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

// RejectionError is an expected refusal of a business rule
// (duplicate exam import, rollover outside its window).
type RejectionError struct {
	Reason string
}

func NewRejectionError(reason string) error {
	return &RejectionError{Reason: reason}
}

func (err RejectionError) Error() string {
	return err.Reason
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsRejection(err error) bool {
	_, ok := errors.Cause(err).(*RejectionError)
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
