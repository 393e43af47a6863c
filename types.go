package goAuthClient

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goAuthClient/authapi"
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/session"
)

// Credentials are the values the user typed into the sign-in form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is an access/refresh token pair as returned by the backend.
type TokenPair = authapi.TokenPair

// LoginData is returned by a successful [Client.Login].
type LoginData struct {
	User  *session.User
	Token TokenPair
	// Roles are the normalized roles the login was admitted with.
	Roles []string
}

// User is the identity snapshot kept for the signed-in user.
type User = session.User

// SessionChange is delivered to [Client.Subscribe] callbacks.
type SessionChange = session.Change

// SessionSnapshot is a read-only view of the session.
type SessionSnapshot = session.Snapshot

// Reset, confirm and OTP payloads for the public endpoints.
type (
	ResetPasswordRequest = authapi.ResetPasswordRequest
	ConfirmEmailRequest  = authapi.ConfirmEmailRequest
	VerifyOTPRequest     = authapi.VerifyOTPRequest
)

// AuditEvent is one security-relevant client event.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the client's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MultiSink fans every event out to each of its sinks.
type MultiSink = internalaudit.MultiSink

// NewLogSink creates an [AuditSink] that records events through logger.
func NewLogSink(logger *slog.Logger) AuditSink {
	return internalaudit.NewLogSink(logger)
}
