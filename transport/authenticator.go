package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/MrEthical07/goAuthClient/apperr"
	"github.com/google/uuid"
)

// RequestIDHeader is set on outgoing requests that do not carry one.
const RequestIDHeader = "X-Request-ID"

// CycleState is the state of the refresh cycle.
type CycleState int

const (
	Idle CycleState = iota
	Refreshing
)

func (s CycleState) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// Hooks observe protocol events. Every field is optional.
type Hooks struct {
	// Waiting runs when a request joins a refresh already in flight.
	Waiting func()
	// Replayed runs before a request is replayed with a refreshed token.
	Replayed func()
	// NetworkError runs for every transport failure.
	NetworkError func(error)
}

// Config wires an Authenticator to the session manager.
type Config struct {
	// Base performs the actual round trips. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// Token returns the current access token, or "" when none is stored.
	Token func(ctx context.Context) string
	// Refresh renews the token pair and returns the new access token. It
	// must not end the session itself; the Authenticator calls Logout when
	// it fails.
	Refresh func(ctx context.Context) (string, error)
	// Logout ends the session. It runs after a failed refresh and after a
	// 401 on a public endpoint.
	Logout func(ctx context.Context)
	// Public lists endpoint paths that never carry a token and never
	// trigger a refresh. A request matches when its path equals an entry or
	// ends with it.
	Public []string
	// RequestIDs sets X-Request-ID on requests that lack one.
	RequestIDs bool
	Hooks      Hooks
}

type refreshCycle struct {
	done  chan struct{}
	token string
	err   error
}

// Authenticator is an http.RoundTripper applying the bearer-token and
// refresh-on-401 policy. It is safe for concurrent use.
type Authenticator struct {
	cfg    Config
	public []string

	mu       sync.Mutex
	inflight *refreshCycle
	waiters  int
}

// NewAuthenticator returns an Authenticator for cfg.
func NewAuthenticator(cfg Config) *Authenticator {
	if cfg.Base == nil {
		cfg.Base = http.DefaultTransport
	}
	public := make([]string, 0, len(cfg.Public))
	for _, p := range cfg.Public {
		p = "/" + strings.Trim(strings.TrimSpace(p), "/")
		if p != "/" {
			public = append(public, p)
		}
	}
	return &Authenticator{cfg: cfg, public: public}
}

// IsPublic reports whether req targets a public endpoint.
func (a *Authenticator) IsPublic(req *http.Request) bool {
	if req == nil || req.URL == nil {
		return false
	}
	path := "/" + strings.Trim(req.URL.Path, "/")
	for _, p := range a.public {
		if path == p || strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// State returns the current refresh cycle state.
func (a *Authenticator) State() CycleState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight != nil {
		return Refreshing
	}
	return Idle
}

// Pending returns the number of requests suspended on the current refresh
// cycle, including the one that started it.
func (a *Authenticator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waiters
}

// RoundTrip implements http.RoundTripper.
func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	public := a.IsPublic(req)

	body, err := replayableBody(req)
	if err != nil {
		return nil, a.networkError(err)
	}

	first, err := cloneRequest(req, body, false)
	if err != nil {
		return nil, a.networkError(err)
	}
	if a.cfg.RequestIDs && first.Header.Get(RequestIDHeader) == "" {
		first.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if !public && a.cfg.Token != nil {
		if token := a.cfg.Token(ctx); token != "" {
			first.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := a.cfg.Base.RoundTrip(first)
	if err != nil {
		return nil, a.networkError(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if public {
		a.logout(ctx)
		return resp, nil
	}
	if a.cfg.Refresh == nil {
		return resp, nil
	}
	drain(resp)

	token, err := a.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	if a.cfg.Hooks.Replayed != nil {
		a.cfg.Hooks.Replayed()
	}
	replay, err := cloneRequest(req, body, true)
	if err != nil {
		return nil, a.networkError(err)
	}
	if id := first.Header.Get(RequestIDHeader); id != "" {
		replay.Header.Set(RequestIDHeader, id)
	}
	replay.Header.Set("Authorization", "Bearer "+token)

	resp, err = a.cfg.Base.RoundTrip(replay)
	if err != nil {
		return nil, a.networkError(err)
	}
	return resp, nil
}

// Refresh joins the in-flight cycle or starts one, and returns the new
// access token. Every refresh of the session must go through here so that
// one refresh token is never exchanged twice. The exchange runs detached
// from ctx; ctx only bounds how long this caller waits. A failed cycle
// ends the session once, whoever started it.
func (a *Authenticator) Refresh(ctx context.Context) (string, error) {
	if a.cfg.Refresh == nil {
		return "", apperr.New(apperr.KeyUnknown, errors.New("no refresher configured"))
	}

	a.mu.Lock()
	c := a.inflight
	joined := c != nil
	if !joined {
		c = &refreshCycle{done: make(chan struct{})}
		a.inflight = c
		go a.runCycle(context.WithoutCancel(ctx), c)
	}
	a.waiters++
	a.mu.Unlock()

	if joined && a.cfg.Hooks.Waiting != nil {
		a.cfg.Hooks.Waiting()
	}

	defer func() {
		a.mu.Lock()
		a.waiters--
		a.mu.Unlock()
	}()

	select {
	case <-c.done:
		return c.token, c.err
	case <-ctx.Done():
		return "", apperr.New(apperr.KeyNetwork, ctx.Err())
	}
}

func (a *Authenticator) runCycle(ctx context.Context, c *refreshCycle) {
	token, err := a.cfg.Refresh(ctx)
	if err == nil && token == "" {
		err = apperr.New(apperr.KeyUnauthorized, errors.New("refresh returned no access token"))
	}
	if err != nil {
		err = apperr.Normalize(err)
		if !errors.Is(err, apperr.ErrSessionChanged) {
			a.logout(ctx)
		}
	}
	c.token, c.err = token, err

	a.mu.Lock()
	a.inflight = nil
	a.mu.Unlock()
	close(c.done)
}

func (a *Authenticator) logout(ctx context.Context) {
	if a.cfg.Logout != nil {
		a.cfg.Logout(context.WithoutCancel(ctx))
	}
}

func (a *Authenticator) networkError(err error) error {
	if a.cfg.Hooks.NetworkError != nil {
		a.cfg.Hooks.NetworkError(err)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.New(apperr.KeyNetwork, err)
}

// replayableBody returns a factory producing fresh copies of req's body, or
// nil when req has none. Bodies without GetBody are read into memory.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

// cloneRequest copies req. The first send keeps req.Body when req came
// with GetBody; every other send takes a fresh body from the factory.
func cloneRequest(req *http.Request, body func() (io.ReadCloser, error), replay bool) (*http.Request, error) {
	out := req.Clone(req.Context())
	if body == nil {
		return out, nil
	}
	out.GetBody = body
	if !replay && req.GetBody != nil {
		out.Body = req.Body
		return out, nil
	}
	rc, err := body()
	if err != nil {
		return nil, err
	}
	out.Body = rc
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
