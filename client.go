package goAuthClient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/MrEthical07/goAuthClient/authapi"
	"github.com/MrEthical07/goAuthClient/guard"
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/sessionstate"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/MrEthical07/goAuthClient/transport"
	"github.com/redis/go-redis/v9"
)

// Client owns the session of one signed-in user: the token store, the
// in-memory session state, the authenticated HTTP client and the
// authorization decider.
//
// Client methods are safe for concurrent use after [Builder.Build].
type Client struct {
	config     Config
	logger     *slog.Logger
	store      tokenstore.Store
	ownedRedis *redis.Client
	state      *sessionstate.State
	roles      *permission.RoleManager
	verifier   *jwt.Manager

	api     *authapi.Client
	auth    *transport.Authenticator
	http    *http.Client
	rest    *transport.Client
	decider *guard.Decider

	// volatileStore is set when the store can drop the record on its own,
	// so IsAuthenticated has to look at it.
	volatileStore bool

	navigator guard.Navigator
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	flows     flows.Deps

	// writeMu serializes every store write together with the matching
	// session mutation, so readers never see the two disagree.
	writeMu  sync.Mutex
	initOnce sync.Once
}

// Close stops the audit dispatcher and closes a Redis client the Builder
// created itself. The Client must not be used afterwards.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.audit != nil {
		c.audit.Close()
	}
	if c.ownedRedis != nil {
		return c.ownedRedis.Close()
	}
	return nil
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) warn(format string, args ...any) {
	c.logger.Warn(fmt.Sprintf(format, args...))
}

// WaitInitialized blocks until Initialize has finished or ctx is done.
func (c *Client) WaitInitialized(ctx context.Context) error {
	return c.state.Wait(ctx)
}

// IsAuthenticated is false until Initialize has finished; after that it is
// true exactly when both tokens and the user are stored. With an expiring
// store (Redis with a TTL) it reads the store, and a session whose record
// expired is logged out on the spot.
func (c *Client) IsAuthenticated() bool {
	if !c.state.Authenticated() {
		return false
	}
	if c.volatileStore {
		if _, err := c.syncStore(context.Background()); err != nil {
			c.warn("goAuthClient: token store read failed: %v", err)
		}
	}
	return c.state.Authenticated()
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (c *Client) CurrentUser() *session.User {
	if !c.IsAuthenticated() {
		return nil
	}
	return c.state.User()
}

// Session returns a consistent view of the in-memory session.
func (c *Client) Session() SessionSnapshot {
	return c.state.Snapshot()
}

// Subscribe registers fn for session changes and returns a function that
// removes it. fn runs synchronously while the change is being applied, so
// it must not call Login, RefreshToken or Logout itself.
func (c *Client) Subscribe(fn func(SessionChange)) func() {
	return c.state.Subscribe(fn)
}

// AccessToken returns the stored access token, or "" when none is stored.
// Finding the record gone while signed in ends the session.
func (c *Client) AccessToken(ctx context.Context) string {
	rec, err := c.syncStore(ctx)
	if err != nil {
		c.warn("goAuthClient: token store read failed: %v", err)
		return ""
	}
	return rec.AccessToken
}

// HTTPClient returns the client that applies the bearer-token and
// refresh-on-401 policy to every request.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// API returns a JSON helper bound to the backend base URL and the
// authenticated HTTP client.
func (c *Client) API() *transport.Client {
	return c.rest
}

// Authenticator returns the RoundTripper behind HTTPClient.
func (c *Client) Authenticator() *transport.Authenticator {
	return c.auth
}

// Decider returns the authorization decider bound to this session.
func (c *Client) Decider() *guard.Decider {
	return c.decider
}

// Roles returns the login allow-list.
func (c *Client) Roles() []string {
	return c.roles.Roles()
}

// Config returns a copy of the effective configuration.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}
