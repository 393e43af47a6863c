package guard

import (
	"context"
	"sync"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/session"
)

// RedirectKind names a navigation intent.
type RedirectKind int

const (
	RedirectNone RedirectKind = iota
	// RedirectSignIn sends the user to sign in, then back to ReturnTo.
	RedirectSignIn
	// RedirectUnauthorized sends the user to the not-authorized page.
	RedirectUnauthorized
)

func (k RedirectKind) String() string {
	switch k {
	case RedirectSignIn:
		return "sign_in"
	case RedirectUnauthorized:
		return "unauthorized"
	default:
		return "none"
	}
}

// Redirect is a navigation intent carried by a denial.
type Redirect struct {
	Kind     RedirectKind
	ReturnTo string
}

// Navigator performs redirects on behalf of the guard.
type Navigator interface {
	Navigate(ctx context.Context, r Redirect)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, r Redirect)

func (f NavigatorFunc) Navigate(ctx context.Context, r Redirect) { f(ctx, r) }

// Decision is the outcome of a check.
type Decision struct {
	Allowed  bool
	Redirect Redirect
	// Cached is set when the decision came from the memo.
	Cached bool
}

// SessionView is the read-only session surface the Decider needs.
type SessionView interface {
	WaitInitialized(ctx context.Context) error
	IsAuthenticated() bool
	CurrentUser() *session.User
	AccessToken(ctx context.Context) string
}

// Config configures a Decider.
type Config struct {
	// AllowedRoles is the required set used when a check names none.
	// Defaults to permission.DefaultAllowedRoles.
	AllowedRoles []string
	// TokenRoles extracts role claims from an access token. Defaults to an
	// unverified claim read.
	TokenRoles func(accessToken string) []string
	// OnDecision observes every decision, cached or not.
	OnDecision func(ctx context.Context, target string, d Decision)
}

// Decider is safe for concurrent use.
type Decider struct {
	view SessionView
	cfg  Config

	mu    sync.RWMutex
	cache map[string]bool
}

// NewDecider returns a Decider reading view.
func NewDecider(view SessionView, cfg Config) *Decider {
	if len(cfg.AllowedRoles) == 0 {
		cfg.AllowedRoles = permission.DefaultAllowedRoles
	}
	cfg.AllowedRoles = append([]string(nil), cfg.AllowedRoles...)
	if cfg.TokenRoles == nil {
		cfg.TokenRoles = func(token string) []string {
			roles, _ := jwt.Roles(token, nil)
			return roles
		}
	}
	return &Decider{
		view:  view,
		cfg:   cfg,
		cache: make(map[string]bool),
	}
}

// CacheKey returns the memo key for target and required. Role order does
// not matter; role case does.
func CacheKey(target string, required []string) string {
	return target + "|" + permission.SortedKey(required)
}

// Check decides whether the session may reach target. An empty required
// list means the configured allowed set. Check blocks until the session is
// initialized; if ctx ends first it returns a denial and ctx's error.
func (d *Decider) Check(ctx context.Context, target string, required ...string) (Decision, error) {
	if err := d.view.WaitInitialized(ctx); err != nil {
		return Decision{Redirect: Redirect{Kind: RedirectSignIn, ReturnTo: target}}, err
	}

	if !d.view.IsAuthenticated() {
		dec := Decision{Redirect: Redirect{Kind: RedirectSignIn, ReturnTo: target}}
		d.observe(ctx, target, dec)
		return dec, nil
	}

	if len(required) == 0 {
		required = d.cfg.AllowedRoles
	}
	key := CacheKey(target, required)

	d.mu.RLock()
	allowed, hit := d.cache[key]
	d.mu.RUnlock()

	if !hit {
		roles := d.UserRoles(ctx)
		if !d.view.IsAuthenticated() {
			// The session ended while its roles were read.
			dec := Decision{Redirect: Redirect{Kind: RedirectSignIn, ReturnTo: target}}
			d.observe(ctx, target, dec)
			return dec, nil
		}
		allowed = permission.Match(required, roles)
		d.mu.Lock()
		if prior, ok := d.cache[key]; ok {
			allowed, hit = prior, true
		} else {
			d.cache[key] = allowed
		}
		d.mu.Unlock()
	}

	dec := Decision{Allowed: allowed, Cached: hit}
	if !allowed {
		dec.Redirect = Redirect{Kind: RedirectUnauthorized}
	}
	d.observe(ctx, target, dec)
	return dec, nil
}

// UserRoles returns the current user's normalized roles: token claims
// first, then the user payload.
func (d *Decider) UserRoles(ctx context.Context) []string {
	var tokenRoles []string
	if token := d.view.AccessToken(ctx); token != "" {
		tokenRoles = d.cfg.TokenRoles(token)
	}
	return permission.Normalize(session.ResolveRoles(tokenRoles, d.view.CurrentUser()))
}

// Cached returns the memoized outcome for target and required.
func (d *Decider) Cached(target string, required ...string) (allowed, ok bool) {
	if len(required) == 0 {
		required = d.cfg.AllowedRoles
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	allowed, ok = d.cache[CacheKey(target, required)]
	return allowed, ok
}

// Len returns the number of memoized decisions.
func (d *Decider) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// Purge drops every memoized decision. Nothing calls it implicitly.
func (d *Decider) Purge() {
	d.mu.Lock()
	d.cache = make(map[string]bool)
	d.mu.Unlock()
}

func (d *Decider) observe(ctx context.Context, target string, dec Decision) {
	if d.cfg.OnDecision != nil {
		d.cfg.OnDecision(ctx, target, dec)
	}
}
