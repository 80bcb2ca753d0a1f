package domain

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures so transports can map them to status codes.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation_failed"
	KindInternal   Kind = "internal_error"
)

// Error is a classified domain error. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = &Error{Kind: KindNotFound, Message: "activity not found"}
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = &Error{Kind: KindNotFound, Message: "user not found"}
	// ErrTagNotFound is returned when a referenced tag does not exist.
	ErrTagNotFound = &Error{Kind: KindNotFound, Message: "tag not found"}
	// ErrForbidden is returned when the principal may not perform the operation.
	ErrForbidden = &Error{Kind: KindForbidden, Message: "operation not permitted"}
	// ErrAlreadyJoined is returned when joining an activity twice.
	ErrAlreadyJoined = &Error{Kind: KindConflict, Message: "already joined"}
	// ErrActivityFull is returned when an activity has reached max_member.
	ErrActivityFull = &Error{Kind: KindConflict, Message: "activity is full"}
	// ErrNotJoined is returned when leaving an activity the user never joined.
	ErrNotJoined = &Error{Kind: KindConflict, Message: "not joined"}
	// ErrDuplicateTag is returned when a tag is bound to the same target twice.
	ErrDuplicateTag = &Error{Kind: KindConflict, Message: "tag already associated"}
	// ErrArtistExists is returned when an artist tag name is already taken.
	ErrArtistExists = &Error{Kind: KindConflict, Message: "artist tag already exists"}
	// ErrCapacityBelowParticipants is returned when max_member would drop below the participant count.
	ErrCapacityBelowParticipants = &Error{Kind: KindConflict, Message: "max_member is below current participant count"}
)

// NewValidationError wraps a validation failure.
func NewValidationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

// KindOf returns the classification of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// SafeMessage returns a message that can be exposed to clients.
func SafeMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "an unexpected error occurred"
}
