package permission

import (
	"errors"
	"strings"
	"sync"
)

// RoleManager holds the set of roles permitted to use the client.
//
// RoleManager instances are intended to be configured during initialization
// and then frozen.
type RoleManager struct {
	mu     sync.RWMutex
	names  []string
	roles  map[string]struct{}
	frozen bool
}

// NewRoleManager returns a manager seeded with roles. Invalid or duplicate
// names are rejected.
func NewRoleManager(roles ...string) (*RoleManager, error) {
	rm := &RoleManager{roles: make(map[string]struct{})}
	for _, role := range roles {
		if err := rm.RegisterRole(role); err != nil {
			return nil, err
		}
	}
	return rm, nil
}

// RegisterRole adds roleName to the allow-list.
func (rm *RoleManager) RegisterRole(roleName string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}

	name := strings.TrimSpace(roleName)
	if name == "" {
		return errors.New("role name empty")
	}
	key := strings.ToLower(name)
	if _, exists := rm.roles[key]; exists {
		return errors.New("role already registered: " + name)
	}

	rm.roles[key] = struct{}{}
	rm.names = append(rm.names, name)
	return nil
}

// Allowed reports whether role is registered, ignoring case.
func (rm *RoleManager) Allowed(role string) bool {
	key := strings.ToLower(strings.TrimSpace(role))
	if key == "" {
		return false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.roles[key]
	return ok
}

// AnyAllowed reports whether at least one of roles is registered.
func (rm *RoleManager) AnyAllowed(roles []string) bool {
	for _, role := range roles {
		if rm.Allowed(role) {
			return true
		}
	}
	return false
}

// Roles returns the registered names in registration order, with their
// original casing.
func (rm *RoleManager) Roles() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return append([]string(nil), rm.names...)
}

// Freeze prevents further registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
