package apperr

import (
	"context"
	"errors"
	"net/http"
)

// Key identifies a normalized error class. Keys are stable strings that UI
// layers use to pick a user-facing message.
type Key string

const (
	KeyNotAuthorized   Key = "NOT_AUTHORIZED"
	KeyNoRefreshToken  Key = "NO_REFRESH_TOKEN"
	KeyUnauthorized    Key = "UNAUTHORIZED"
	KeyNetwork         Key = "NETWORK_ERROR"
	KeyBadRequest      Key = "BAD_REQUEST"
	KeyForbidden       Key = "FORBIDDEN"
	KeyNotFound        Key = "NOT_FOUND"
	KeyTooManyRequests Key = "TOO_MANY_REQUESTS"
	KeyServer          Key = "SERVER_ERROR"
	KeyUnknown         Key = "UNKNOWN_ERROR"
)

var defaultMessages = map[Key]string{
	KeyNotAuthorized:   "Your account is not allowed to use this application.",
	KeyNoRefreshToken:  "Your session has expired. Please sign in again.",
	KeyUnauthorized:    "Your session has expired. Please sign in again.",
	KeyNetwork:         "Unable to reach the server. Check your connection and try again.",
	KeyBadRequest:      "The request was invalid.",
	KeyForbidden:       "You do not have permission to perform this action.",
	KeyNotFound:        "The requested resource was not found.",
	KeyTooManyRequests: "Too many requests. Please wait and try again.",
	KeyServer:          "The server encountered an error. Please try again later.",
	KeyUnknown:         "An unexpected error occurred.",
}

// Message returns the default human-readable message for key.
func Message(key Key) string {
	if msg, ok := defaultMessages[key]; ok {
		return msg
	}
	return defaultMessages[KeyUnknown]
}

// Error is the normalized error crossing the auth core boundary. Transport
// and decoding failures are always wrapped into an Error before they reach
// callers.
type Error struct {
	Key     Key
	Message string
	// Status is the HTTP status that produced the error, 0 when none.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = Message(e.Key)
	}
	return string(e.Key) + ": " + msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports key equality so that errors.Is(err, apperr.ErrUnauthorized)
// matches any Error carrying the same key.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Key == t.Key
}

var (
	ErrNotAuthorized   = &Error{Key: KeyNotAuthorized}
	ErrNoRefreshToken  = &Error{Key: KeyNoRefreshToken}
	ErrUnauthorized    = &Error{Key: KeyUnauthorized}
	ErrNetwork         = &Error{Key: KeyNetwork}
	ErrBadRequest      = &Error{Key: KeyBadRequest}
	ErrForbidden       = &Error{Key: KeyForbidden}
	ErrNotFound        = &Error{Key: KeyNotFound}
	ErrTooManyRequests = &Error{Key: KeyTooManyRequests}
	ErrServer          = &Error{Key: KeyServer}
	ErrUnknown         = &Error{Key: KeyUnknown}
)

// ErrSessionChanged is the cause carried by UNAUTHORIZED errors whose
// refresh result was discarded because the session was logged out or
// replaced while the refresh was in flight. Such errors must not trigger
// another logout.
var ErrSessionChanged = errors.New("session changed while refresh was in flight")

// New builds an Error with the default message for key.
func New(key Key, cause error) *Error {
	return &Error{Key: key, Message: Message(key), Err: cause}
}

// KeyForStatus maps an HTTP status code to its error key.
func KeyForStatus(status int) Key {
	switch {
	case status == 0:
		return KeyNetwork
	case status == http.StatusBadRequest:
		return KeyBadRequest
	case status == http.StatusUnauthorized:
		return KeyUnauthorized
	case status == http.StatusForbidden:
		return KeyForbidden
	case status == http.StatusNotFound:
		return KeyNotFound
	case status == http.StatusTooManyRequests:
		return KeyTooManyRequests
	case status >= 500 && status <= 599:
		return KeyServer
	default:
		return KeyUnknown
	}
}

// FromStatus builds an Error for an HTTP failure. A non-empty serverMessage
// replaces the default message.
func FromStatus(status int, serverMessage string) *Error {
	key := KeyForStatus(status)
	msg := serverMessage
	if msg == "" {
		msg = Message(key)
	}
	return &Error{Key: key, Message: msg, Status: status}
}

// Normalize converts any error into an *Error. Errors that already are
// normalized pass through unchanged; everything else becomes
// NETWORK_ERROR (transport failures) or UNKNOWN_ERROR.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return New(KeyNetwork, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return New(KeyNetwork, err)
	}
	return New(KeyUnknown, err)
}

// KeyOf returns the key of err, or KeyUnknown when err is not normalized.
func KeyOf(err error) Key {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Key
	}
	return KeyUnknown
}
