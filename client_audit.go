package goAuthClient

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/apperr"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginNotAuthorized = "login_not_authorized"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshFailure     = "refresh_failure"
	auditEventRefreshDiscarded   = "refresh_discarded"
	auditEventLogout             = "logout"
	auditEventGuardDenied        = "guard_denied"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	user *session.User,
	target string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Target:    target,
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = user.ID
		event.TenantID = user.TenantID
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}

	c.audit.Emit(ctx, event)
}

// auditErrorCode reduces err to its lower-cased error key, e.g.
// "network_error".
func auditErrorCode(err error) string {
	return strings.ToLower(string(apperr.KeyOf(err)))
}
