package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthClient/apperr"
	"github.com/MrEthical07/goAuthClient/authapi"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNotReady
	RefreshFailureStoreRead
	RefreshFailureNoRefreshToken
	RefreshFailureRemote
	// RefreshFailureSuperseded means a logout or login happened while the
	// exchange was in flight; the new tokens were dropped.
	RefreshFailureSuperseded
	RefreshFailurePersist
)

// ErrSuperseded is returned by Commit hooks when the session generation
// moved while a refresh was in flight.
var ErrSuperseded = apperr.ErrSessionChanged

// RefreshResult carries either the stored token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	AccessToken  string
	RefreshToken string
	Latency      time.Duration
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Load       func(ctx context.Context) (tokenstore.Record, error)
	Generation func() uint64
	Exchange   func(ctx context.Context, refreshToken string) (authapi.TokenPair, error)
	// Commit stores pair if the generation still equals gen, and returns
	// ErrSuperseded otherwise.
	Commit func(ctx context.Context, gen uint64, pair authapi.TokenPair) error
	Now    func() time.Time
	Warn   func(string, ...any)
}

// RunRefresh exchanges the stored refresh token for a new pair. It never
// logs the session out itself; the caller does that for every failure
// except RefreshFailureSuperseded.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	if deps.Load == nil || deps.Generation == nil || deps.Exchange == nil || deps.Commit == nil {
		return RefreshResult{Failure: RefreshFailureNotReady, Err: errors.New("refresh flow not configured")}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	gen := deps.Generation()

	rec, err := deps.Load(ctx)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStoreRead, Err: err}
	}
	if rec.RefreshToken == "" {
		return RefreshResult{Failure: RefreshFailureNoRefreshToken}
	}

	start := deps.Now()
	pair, err := deps.Exchange(ctx, rec.RefreshToken)
	latency := deps.Now().Sub(start)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRemote, Err: err, Latency: latency}
	}

	if err := deps.Commit(ctx, gen, pair); err != nil {
		if errors.Is(err, ErrSuperseded) {
			warnf(deps.Warn, "goAuthClient: refresh result discarded, session changed while in flight")
			return RefreshResult{Failure: RefreshFailureSuperseded, Err: err, Latency: latency}
		}
		return RefreshResult{Failure: RefreshFailurePersist, Err: err, Latency: latency}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Latency:      latency,
	}
}
