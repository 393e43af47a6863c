package goAuthClient

import (
	"context"
	"strings"

	"github.com/MrEthical07/goAuthClient/apperr"
	"github.com/MrEthical07/goAuthClient/authapi"
	"github.com/MrEthical07/goAuthClient/guard"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

func (c *Client) buildFlowDeps() flows.Deps {
	return flows.Deps{
		Login: flows.LoginDeps{
			Authenticate: c.api.Login,
			TokenRoles:   c.tokenRoles,
			TokenUser:    c.tokenUser,
			RoleAllowed:  c.roles.AnyAllowed,
			Commit:       c.commitLogin,
			Purge:        c.purgeSession,
			Warn:         c.warn,
		},
		Refresh: flows.RefreshDeps{
			Load:       c.store.Get,
			Generation: c.state.Generation,
			Exchange:   c.api.Refresh,
			Commit:     c.commitRefresh,
			Warn:       c.warn,
		},
		Hydrate: flows.HydrateDeps{
			Load: c.store.Get,
			Warn: c.warn,
		},
		Logout: flows.LogoutDeps{
			ClearState: func() { c.state.Clear() },
			Purge:      c.store.Clear,
			Warn:       c.warn,
		},
	}
}

// Initialize restores the session from the token store. It runs once;
// later calls return immediately. When the stored access token is missing
// but the refresh token and user survived, one refresh is attempted before
// the session is marked initialized. Store failures are logged and treated
// as an empty store.
func (c *Client) Initialize(ctx context.Context) {
	c.initOnce.Do(func() {
		c.initialize(ctx)
	})
}

func (c *Client) initialize(ctx context.Context) {
	gen := c.state.Generation()
	res := flows.RunHydrate(ctx, c.flows.Hydrate)

	user := res.User
	switch {
	case res.Stale:
		c.warn("goAuthClient: discarding incomplete stored session")
		if err := c.store.Clear(ctx); err != nil {
			c.warn("goAuthClient: token store purge failed during initialize: %v", err)
		}
	case user != nil && res.NeedsRefresh:
		// Shares the cycle with any request already waiting on a 401. A
		// failed cycle has purged the store through endSession.
		if _, err := c.auth.Refresh(ctx); err != nil {
			c.warn("goAuthClient: could not restore session: %v", err)
			user = nil
		}
	}

	c.writeMu.Lock()
	if c.state.Generation() != gen {
		// A login or logout landed while hydrating; it wins.
		user = c.state.User()
	}
	c.state.MarkInitialized(user)
	c.writeMu.Unlock()
}

// Login signs in with creds. The session is committed only when at least
// one of the user's roles is on the allow-list; otherwise the store is
// purged and NOT_AUTHORIZED is returned.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginData, error) {
	res := flows.RunLogin(ctx, strings.TrimSpace(creds.Email), creds.Password, c.flows.Login)

	switch res.Failure {
	case flows.LoginFailureNone:
		c.metricInc(MetricLoginSuccess)
		c.emitAudit(ctx, auditEventLoginSuccess, true, res.Record.User, "", nil, nil)
		return &LoginData{
			User:  res.Record.User.Clone(),
			Token: TokenPair{AccessToken: res.Record.AccessToken, RefreshToken: res.Record.RefreshToken},
			Roles: permission.Normalize(res.Roles),
		}, nil

	case flows.LoginFailureNotAuthorized:
		c.metricInc(MetricLoginNotAuthorized)
		err := apperr.New(apperr.KeyNotAuthorized, nil)
		c.emitAudit(ctx, auditEventLoginNotAuthorized, false, nil, "", err, func() map[string]string {
			return map[string]string{"roles": strings.Join(permission.Normalize(res.Roles), ",")}
		})
		return nil, err

	case flows.LoginFailureRemote:
		c.metricInc(MetricLoginFailure)
		err := apperr.Normalize(res.Err)
		if err.Key == apperr.KeyNetwork {
			c.metricInc(MetricNetworkError)
		}
		c.emitAudit(ctx, auditEventLoginFailure, false, nil, "", err, nil)
		return nil, err

	default:
		c.metricInc(MetricLoginFailure)
		err := apperr.New(apperr.KeyUnknown, res.Err)
		c.emitAudit(ctx, auditEventLoginFailure, false, nil, "", err, nil)
		return nil, err
	}
}

// RefreshToken exchanges the stored refresh token for a new pair. Only the
// tokens are rewritten; the stored user is kept. It joins a refresh already
// started by a request that got a 401, so a refresh token is never sent
// twice. Any failure ends the session, except a result dropped because the
// session changed while the exchange was in flight.
func (c *Client) RefreshToken(ctx context.Context) (TokenPair, error) {
	access, err := c.auth.Refresh(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	rec, err := c.store.Get(ctx)
	if err != nil || rec.AccessToken == "" {
		return TokenPair{AccessToken: access}, nil
	}
	return TokenPair{AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken}, nil
}

// refreshAccessToken is the refresher handed to the Authenticator. It is
// only ever called from the Authenticator's cycle, which performs the
// logout itself.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	pair, err := c.refresh(ctx)
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

func (c *Client) refresh(ctx context.Context) (TokenPair, error) {
	res := flows.RunRefresh(ctx, c.flows.Refresh)
	if res.Latency > 0 && c.metrics != nil {
		c.metrics.Observe(MetricRefreshLatency, res.Latency)
	}

	var err *apperr.Error
	switch res.Failure {
	case flows.RefreshFailureNone:
		c.metricInc(MetricRefreshSuccess)
		c.emitAudit(ctx, auditEventRefreshSuccess, true, c.state.User(), "", nil, nil)
		return TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
	case flows.RefreshFailureSuperseded:
		c.metricInc(MetricRefreshDiscarded)
		err = apperr.New(apperr.KeyUnauthorized, apperr.ErrSessionChanged)
		c.emitAudit(ctx, auditEventRefreshDiscarded, false, nil, "", err, nil)
		return TokenPair{}, err
	case flows.RefreshFailureNoRefreshToken:
		err = apperr.New(apperr.KeyNoRefreshToken, nil)
	case flows.RefreshFailureRemote:
		err = apperr.Normalize(res.Err)
	default:
		err = apperr.New(apperr.KeyUnknown, res.Err)
	}

	c.metricInc(MetricRefreshFailure)
	c.emitAudit(ctx, auditEventRefreshFailure, false, c.state.User(), "", err, nil)
	return TokenPair{}, err
}

// Logout ends the session: the in-memory state is cleared first, then the
// store is purged. It never fails; store errors are logged. The navigator
// is always sent to the sign-in page.
func (c *Client) Logout(ctx context.Context) {
	c.logout(ctx, nil)
}

// logout runs Logout when still reports true under the write lock, or
// unconditionally when still is nil.
func (c *Client) logout(ctx context.Context, still func() bool) bool {
	user := c.state.User()

	c.writeMu.Lock()
	if still != nil && !still() {
		c.writeMu.Unlock()
		return false
	}
	err := flows.RunLogout(ctx, c.flows.Logout)
	c.writeMu.Unlock()

	c.metricInc(MetricLogout)
	c.emitAudit(ctx, auditEventLogout, err == nil, user, "", err, nil)
	c.navigate(ctx, guard.Redirect{Kind: guard.RedirectSignIn})
	return true
}

// endSession is the Authenticator's logout hook. Before Initialize has
// finished there is no session to announce, so the store is only purged.
func (c *Client) endSession(ctx context.Context) {
	if !c.state.Initialized() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		if err := c.store.Clear(ctx); err != nil {
			c.warn("goAuthClient: token store purge failed: %v", err)
		}
		return
	}
	c.Logout(ctx)
}

// syncStore reads the stored record and ends the session when the store
// lost part of it behind the client's back: Redis keys that expired, or
// another process clearing the namespace. Read failures are not taken as
// a loss.
func (c *Client) syncStore(ctx context.Context) (tokenstore.Record, error) {
	gen := c.state.Generation()
	rec, err := c.store.Get(ctx)
	if err != nil || rec.Complete() || !c.state.Authenticated() {
		return rec, err
	}

	lost := c.logout(ctx, func() bool {
		return c.state.Authenticated() && c.state.Generation() == gen
	})
	if lost {
		c.metricInc(MetricSessionLost)
		c.warn("goAuthClient: stored session disappeared, signed out")
		return tokenstore.Record{}, nil
	}
	return rec, nil
}

func (c *Client) commitLogin(ctx context.Context, rec tokenstore.Record) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.store.Set(ctx, rec); err != nil {
		return err
	}
	c.state.SetAuthenticated(rec.User)
	return nil
}

func (c *Client) commitRefresh(ctx context.Context, gen uint64, pair authapi.TokenPair) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.state.Generation() != gen {
		return flows.ErrSuperseded
	}
	rec, err := c.store.Get(ctx)
	if err != nil {
		return err
	}
	rec.AccessToken = pair.AccessToken
	rec.RefreshToken = pair.RefreshToken
	if err := c.store.Set(ctx, rec); err != nil {
		return err
	}
	if c.state.Authenticated() {
		c.state.Touch()
	}
	return nil
}

// purgeSession signs the session out after a rejected or failed login.
func (c *Client) purgeSession(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.state.Clear()
	return c.store.Clear(ctx)
}

func (c *Client) tokenRoles(accessToken string) []string {
	roles, err := jwt.Roles(accessToken, c.verifier)
	if err != nil {
		c.logger.Debug("goAuthClient: role claims unreadable", "error", err)
		return nil
	}
	return roles
}

// tokenUser builds a minimal user from token claims for backends whose
// login response carries no user object.
func (c *Client) tokenUser(accessToken string) *session.User {
	claims, err := jwt.Claims(accessToken, c.verifier)
	if err != nil {
		return nil
	}
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}

	u := &session.User{
		ID:       str("uid"),
		Email:    str("email"),
		Name:     str("name"),
		TenantID: str("tid"),
	}
	if u.ID == "" {
		u.ID, _ = claims.GetSubject()
	}
	if u.ID == "" && u.Email == "" {
		return nil
	}
	u.Roles = session.RoleList(jwt.RoleClaims(claims))
	return u
}

func (c *Client) navigate(ctx context.Context, r guard.Redirect) {
	if c.navigator == nil || r.Kind == guard.RedirectNone {
		return
	}
	c.navigator.Navigate(ctx, r)
}
