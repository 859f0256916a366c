package qerrors

import (
	"errors"
	"fmt"
)

var (
	// Course errors
	CourseNotFoundError = errors.New("course not found")
	CourseExistsError   = errors.New("a course with that code already exists")

	// Resource errors
	ResourceNotFoundError = errors.New("resource not found")
	DuplicateVideoError   = errors.New("video already added to this course")
	InvalidVideoURLError  = errors.New("invalid YouTube URL")
	BlobNotFoundError     = errors.New("file not found in storage")

	// User errors
	UserNotFoundError  = errors.New("user not found")
	EmailExistsError   = errors.New("email already exists")
	InvalidEmailError  = errors.New("email domain is not allowed")
	InvalidCredentials = errors.New("invalid email or password")

	// Session errors
	SessionRestoringError = errors.New("session is still being restored")
	UnauthenticatedError  = errors.New("you must be signed in to access this resource")
	ForbiddenError        = errors.New("you do not have access to this resource")

	ValidationError = errors.New("validation failed")
)

// ActionError names the user-facing action that failed, e.g. "failed to delete past paper". The
// wrapped error keeps the diagnostic cause.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return e.Action
	}
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Action wraps err with the action it interrupted. A nil err stays nil.
func Action(action string, err error) error {
	if err == nil {
		return nil
	}
	return &ActionError{Action: action, Err: err}
}

// Validation marks err as a local validation failure.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ValidationError, err)
}

// Known reports whether err wraps one of the sentinels above, i.e. whether its text is safe to show.
func Known(err error) (error, bool) {
	for _, sentinel := range []error{
		CourseNotFoundError, CourseExistsError, ResourceNotFoundError, DuplicateVideoError,
		InvalidVideoURLError, BlobNotFoundError, UserNotFoundError, EmailExistsError, InvalidEmailError,
		InvalidCredentials, SessionRestoringError, UnauthenticatedError, ForbiddenError, ValidationError,
	} {
		if errors.Is(err, sentinel) {
			return sentinel, true
		}
	}
	return nil, false
}
