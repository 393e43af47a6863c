package flows

import (
	"context"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

// HydrateResult describes what the stored record allows at boot.
type HydrateResult struct {
	Record tokenstore.Record
	// User is non-nil when the record can restore a session.
	User *session.User
	// NeedsRefresh is set when the refresh token and user survived but the
	// access token did not.
	NeedsRefresh bool
	// Stale is set for partial records that cannot restore a session.
	Stale bool
	Err   error
}

// HydrateDeps captures hydration dependencies.
type HydrateDeps struct {
	Load func(ctx context.Context) (tokenstore.Record, error)
	Warn func(string, ...any)
}

// RunHydrate reads the store once. Read failures are reported and treated
// as an empty store.
func RunHydrate(ctx context.Context, deps HydrateDeps) HydrateResult {
	if deps.Load == nil {
		return HydrateResult{}
	}
	rec, err := deps.Load(ctx)
	if err != nil {
		warnf(deps.Warn, "goAuthClient: token store read failed during initialize: %v", err)
		return HydrateResult{Err: err}
	}

	if rec.RefreshToken != "" && rec.User != nil {
		return HydrateResult{
			Record:       rec,
			User:         rec.User,
			NeedsRefresh: rec.AccessToken == "",
		}
	}
	return HydrateResult{Record: rec, Stale: !rec.Empty()}
}
