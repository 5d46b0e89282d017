package quiz

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for callers.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindValidation Kind = "validation_error"
	KindConflict   Kind = "conflict"

	// KindInternal is never carried by an *Error. It is what KindOf reports
	// for any other error.
	KindInternal Kind = "internal"
)

// Error is a domain error with a stable kind and a message that can be
// localized through MessageID.
type Error struct {
	Kind      Kind
	MessageID string
	Message   string
	Data      map[string]any
	Fields    map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the caller may safely repeat the request.
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict
}

// KindOf returns the kind of err, or KindInternal when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func notFoundErr(id, msg string) *Error {
	return &Error{Kind: KindNotFound, MessageID: id, Message: msg}
}

func forbiddenErr(id, msg string) *Error {
	return &Error{Kind: KindForbidden, MessageID: id, Message: msg}
}

var (
	errQuizNotFound     = notFoundErr("QuizNotFound", "quiz not found")
	errResultNotFound   = notFoundErr("ResultNotFound", "result not found")
	errCourseNotFound   = notFoundErr("CourseNotFound", "course not found")
	errQuizNotPublished = forbiddenErr("QuizNotPublished", "quiz is not published")
	errNotQuizOwner     = forbiddenErr("NotQuizOwner", "you do not own this quiz")
	errNotCourseOwner   = forbiddenErr("NotCourseOwner", "you do not own this course")
	errNotResultOwner   = forbiddenErr("NotResultOwner", "you may not view this result")
	errRoleNotAllowed   = forbiddenErr("RoleNotAllowed", "your role may not perform this action")

	errCannotUnpublish = &Error{
		Kind:      KindValidation,
		MessageID: "CannotUnpublish",
		Message:   "a published quiz cannot be unpublished",
		Fields:    map[string]string{"isPublished": "a published quiz cannot be unpublished"},
	}

	// Retry-safe: the retry observes the attempt that won.
	errAttemptConflict = &Error{
		Kind:      KindConflict,
		MessageID: "AttemptConflict",
		Message:   "another submission was recorded at the same time, please retry",
	}
)

func maxAttemptsErr(limit int) *Error {
	return &Error{
		Kind:      KindValidation,
		MessageID: "MaxAttemptsReached",
		Message:   fmt.Sprintf("maximum attempts reached (%d)", limit),
		Data:      map[string]any{"Count": limit},
	}
}
