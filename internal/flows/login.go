package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/authapi"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureNotReady
	LoginFailureRemote
	LoginFailureIncomplete
	LoginFailureNotAuthorized
	LoginFailurePersist
)

var errIncompleteLogin = errors.New("login response missing tokens or user")

// LoginResult carries either the committed record or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Record  tokenstore.Record
	// Roles are the raw role values the decision was based on.
	Roles []string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Authenticate func(ctx context.Context, email, password string) (authapi.LoginResponse, error)
	// TokenRoles extracts role claims from an access token. Unreadable
	// tokens yield nil.
	TokenRoles func(accessToken string) []string
	// TokenUser builds a user from token claims when the response has none.
	TokenUser   func(accessToken string) *session.User
	RoleAllowed func(roles []string) bool
	// Commit persists rec and flips the session to authenticated as one
	// step.
	Commit func(ctx context.Context, rec tokenstore.Record) error
	Purge  func(ctx context.Context) error
	Warn   func(string, ...any)
}

// RunLogin authenticates against the remote endpoint and commits the
// session when at least one resolved role is allowed.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	if deps.Authenticate == nil || deps.RoleAllowed == nil || deps.Commit == nil || deps.Purge == nil {
		return LoginResult{Failure: LoginFailureNotReady, Err: errors.New("login flow not configured")}
	}

	resp, err := deps.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{Failure: LoginFailureRemote, Err: err}
	}

	user := resp.User
	if user == nil && deps.TokenUser != nil && resp.Token.AccessToken != "" {
		user = deps.TokenUser(resp.Token.AccessToken)
	}
	rec := tokenstore.Record{
		AccessToken:  resp.Token.AccessToken,
		RefreshToken: resp.Token.RefreshToken,
		User:         user,
	}
	if !rec.Complete() {
		return LoginResult{Failure: LoginFailureIncomplete, Err: errIncompleteLogin}
	}

	var tokenRoles []string
	if deps.TokenRoles != nil {
		tokenRoles = deps.TokenRoles(rec.AccessToken)
	}
	roles := session.ResolveRoles(tokenRoles, user)

	if !deps.RoleAllowed(roles) {
		if err := deps.Purge(ctx); err != nil {
			warnf(deps.Warn, "goAuthClient: purge after rejected login failed: %v", err)
		}
		return LoginResult{Failure: LoginFailureNotAuthorized, Roles: roles}
	}

	if err := deps.Commit(ctx, rec); err != nil {
		if purgeErr := deps.Purge(ctx); purgeErr != nil {
			warnf(deps.Warn, "goAuthClient: purge after failed login commit failed: %v", purgeErr)
		}
		return LoginResult{Failure: LoginFailurePersist, Err: err, Roles: roles}
	}

	return LoginResult{Failure: LoginFailureNone, Record: rec, Roles: roles}
}
