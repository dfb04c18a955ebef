// Package apperr defines the error taxonomy shared by the HTTP handlers and
// the live-connection event handlers. Errors carry a Kind instead of relying
// on type identity; callers dispatch on the kind to pick a status code and a
// client-safe message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// KindStore marks a failed storage operation. Clients only ever see a
	// generic message for these.
	KindStore Kind = iota

	// KindValidation marks malformed or missing caller input.
	KindValidation

	// KindUnauthenticated marks a request without a resolvable session.
	KindUnauthenticated

	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound

	// KindPartialCascade marks a cascade delete that failed partway: the
	// chat is gone but its messages may not be. The system is inconsistent
	// and needs out-of-band cleanup, so this is kept distinct from KindStore.
	KindPartialCascade
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err. Unknown errors count as store failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Status maps err to the HTTP-like status code sent to clients. Missing
// entities surface as 400, matching the original "does not exist" responses.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindNotFound:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to show a client. Store failures
// and unrecognized errors are replaced with a generic message so internal
// detail never leaks.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation, KindUnauthenticated, KindNotFound:
			return e.Message
		}
	}
	return "A server error occurred"
}
