// Package apperr defines the typed error hierarchy surfaced at the HTTP
// boundary. The engine never normalizes an invalid request; every invalid
// action, vote or guess is rejected with one of these kinds.
package apperr

import "net/http"

type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	// KindState covers any request rejected because the game/player is in
	// the wrong state for it (already started, lobby full, not night,
	// dead player acting, duplicate nickname, ...). Ground truth maps all
	// of these to 400, never 403/409.
	KindState Kind = "state"
	// KindOwnership is reserved for the one genuine 403 case: the caller
	// is not a player in the game they are asking about.
	KindOwnership Kind = "ownership"
)

// Error is a structured application error carrying the HTTP status it
// should surface as.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindState:
		return http.StatusBadRequest
	case KindOwnership:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func Auth(msg string) *Error       { return &Error{Kind: KindAuth, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }
func State(msg string) *Error      { return &Error{Kind: KindState, Message: msg} }
func Ownership(msg string) *Error  { return &Error{Kind: KindOwnership, Message: msg} }

// As reports whether err is an *Error, returning it if so.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
