package goAuthClient

import "github.com/MrEthical07/goAuthClient/apperr"

// AppError is the normalized error returned by every Client operation.
// Match it with errors.Is against the sentinels below; the key decides.
type AppError = apperr.Error

// ErrorKey is the stable class of an [AppError].
type ErrorKey = apperr.Key

var (
	ErrNotAuthorized   = apperr.ErrNotAuthorized
	ErrNoRefreshToken  = apperr.ErrNoRefreshToken
	ErrUnauthorized    = apperr.ErrUnauthorized
	ErrNetwork         = apperr.ErrNetwork
	ErrBadRequest      = apperr.ErrBadRequest
	ErrForbidden       = apperr.ErrForbidden
	ErrNotFound        = apperr.ErrNotFound
	ErrTooManyRequests = apperr.ErrTooManyRequests
	ErrServer          = apperr.ErrServer
	ErrUnknown         = apperr.ErrUnknown

	// ErrSessionChanged is the cause of UNAUTHORIZED errors whose refresh
	// result was dropped after a logout or a new login.
	ErrSessionChanged = apperr.ErrSessionChanged
)
