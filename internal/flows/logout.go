package flows

import "context"

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	// ClearState signs the in-memory session out. It runs before the store
	// is purged so no reader sees an authenticated session without tokens.
	ClearState func()
	Purge      func(ctx context.Context) error
	Warn       func(string, ...any)
}

// RunLogout clears the session and purges the store. Store failures are
// reported through Warn and returned, but the in-memory session is always
// signed out.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.ClearState != nil {
		deps.ClearState()
	}
	if deps.Purge == nil {
		return nil
	}
	if err := deps.Purge(ctx); err != nil {
		warnf(deps.Warn, "goAuthClient: token store purge failed during logout: %v", err)
		return err
	}
	return nil
}
