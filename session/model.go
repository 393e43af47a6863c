package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// User is the identity snapshot returned by the login endpoint and
// persisted next to the tokens. It may go stale relative to the server.
//
// Role claims can arrive in three shapes: a list under "roles", a string
// or list under "role", or a legacy account "type" string.
type User struct {
	ID       string   `json:"id,omitempty"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name,omitempty"`
	TenantID string   `json:"tenantId,omitempty"`
	Type     string   `json:"type,omitempty"`
	Role     RoleList `json:"role,omitempty"`
	Roles    RoleList `json:"roles,omitempty"`
}

// Clone returns a deep copy of u, or nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Role = append(RoleList(nil), u.Role...)
	out.Roles = append(RoleList(nil), u.Roles...)
	return &out
}

// RoleValues returns the raw role values in preference order: roles, role,
// then type. Values are not normalized.
func (u *User) RoleValues() []string {
	if u == nil {
		return nil
	}
	if len(u.Roles) > 0 {
		return append([]string(nil), u.Roles...)
	}
	if len(u.Role) > 0 {
		return append([]string(nil), u.Role...)
	}
	if strings.TrimSpace(u.Type) != "" {
		return []string{u.Type}
	}
	return nil
}

// ResolveRoles applies the claim preference order: token claims first,
// then the user's roles, role and type fields. A token claim list holding
// only blanks counts as absent.
func ResolveRoles(tokenRoles []string, user *User) []string {
	for _, r := range tokenRoles {
		if strings.TrimSpace(r) != "" {
			return append([]string(nil), tokenRoles...)
		}
	}
	return user.RoleValues()
}

// RoleList decodes from either a JSON string or a JSON array of strings.
// Comma-separated strings are split.
type RoleList []string

func (r *RoleList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = splitRoles(s)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(RoleList, 0, len(items))
		for _, item := range items {
			out = append(out, splitRoles(item)...)
		}
		*r = out
		return nil
	default:
		return errors.New("role list must be a string or an array of strings")
	}
}

func splitRoles(s string) RoleList {
	if !strings.Contains(s, ",") {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return RoleList{s}
	}
	parts := strings.Split(s, ",")
	out := make(RoleList, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// Snapshot is a read-only view of the in-memory session.
type Snapshot struct {
	User          *User
	Authenticated bool
	Initialized   bool
	Generation    uint64
}

// ChangeReason tells subscribers why the session changed.
type ChangeReason string

const (
	ReasonInitialized ChangeReason = "initialized"
	ReasonLogin       ChangeReason = "login"
	ReasonRefresh     ChangeReason = "refresh"
	ReasonLogout      ChangeReason = "logout"
)

// Change is delivered to subscribers after every session mutation.
type Change struct {
	Reason   ChangeReason
	Snapshot Snapshot
}
