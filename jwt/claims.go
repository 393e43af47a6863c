package jwt

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleClaimKeys lists the claim names searched for roles, in order. The
// URI form is what ASP.NET Core identity backends emit.
var RoleClaimKeys = []string{
	"role",
	"roles",
	"http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
}

// ParseUnverified decodes tokenStr without checking its signature. Clients
// use it to read claims from tokens the server already vouched for.
func ParseUnverified(tokenStr string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Claims parses tokenStr with m when it is non-nil, otherwise without
// verification.
func Claims(tokenStr string, m *Manager) (jwt.MapClaims, error) {
	if m == nil {
		return ParseUnverified(tokenStr)
	}
	return m.Parse(tokenStr)
}

// RoleClaims returns the raw role values carried by claims. Each role claim
// may be a string, a comma-separated string, or an array of strings.
func RoleClaims(claims jwt.MapClaims) []string {
	var out []string
	for _, key := range RoleClaimKeys {
		raw, ok := claims[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			out = append(out, strings.Split(v, ",")...)
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
		case []string:
			out = append(out, v...)
		}
	}
	return out
}

// Roles extracts role values from an access token. Unparseable tokens yield
// no roles and the parse error.
func Roles(tokenStr string, m *Manager) ([]string, error) {
	if tokenStr == "" {
		return nil, nil
	}
	claims, err := Claims(tokenStr, m)
	if err != nil {
		return nil, err
	}
	return RoleClaims(claims), nil
}

// ExpiresAt returns the exp claim of an unverified token.
func ExpiresAt(tokenStr string) (time.Time, bool) {
	claims, err := ParseUnverified(tokenStr)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
