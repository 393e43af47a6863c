package permission

import (
	"sort"
	"strings"
)

// DefaultAllowedRoles is the allow-list used when none is configured.
var DefaultAllowedRoles = []string{
	"Admin",
	"Manager",
	"Sales",
	"Accountant",
	"Operations",
	"Support",
	"Marketing",
	"Employee",
}

// Normalize lower-cases and trims every role and drops empty entries.
// Order is preserved and duplicates are removed.
func Normalize(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		r := strings.ToLower(strings.TrimSpace(role))
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Match reports whether any required role equals any user role, ignoring
// case and surrounding whitespace.
func Match(required, userRoles []string) bool {
	have := Normalize(userRoles)
	if len(have) == 0 {
		return false
	}
	for _, want := range Normalize(required) {
		for _, r := range have {
			if r == want {
				return true
			}
		}
	}
	return false
}

// SortedKey joins roles in sorted order with commas. Case is preserved so
// that callers asking for "Admin" and "admin" get distinct keys.
func SortedKey(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	sorted := append([]string(nil), roles...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
