package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
)

type fakeView struct {
	mu      sync.Mutex
	ready   chan struct{}
	authed  bool
	user    *session.User
	token   string
	readies sync.Once
}

func newFakeView(authed bool, user *session.User) *fakeView {
	v := &fakeView{ready: make(chan struct{}), authed: authed, user: user}
	v.markReady()
	return v
}

func (v *fakeView) markReady() { v.readies.Do(func() { close(v.ready) }) }

func (v *fakeView) WaitInitialized(ctx context.Context) error {
	select {
	case <-v.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *fakeView) IsAuthenticated() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.authed
}

func (v *fakeView) CurrentUser() *session.User {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.user.Clone()
}

func (v *fakeView) AccessToken(context.Context) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.token
}

func (v *fakeView) signIn(user *session.User) {
	v.mu.Lock()
	v.authed = true
	v.user = user
	v.mu.Unlock()
}

func TestCheckRoleMatchIsCaseInsensitive(t *testing.T) {
	d := NewDecider(newFakeView(true, &session.User{Roles: session.RoleList{"admin"}}), Config{})
	dec, err := d.Check(context.Background(), "/customers", "Admin")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !dec.Allowed || dec.Redirect.Kind != RedirectNone {
		t.Fatalf("expected allow, got %+v", dec)
	}
}

func TestCheckReportsDeniedAndCached(t *testing.T) {
	d := NewDecider(newFakeView(true, &session.User{Roles: session.RoleList{"manager"}}), Config{})

	dec, err := d.Check(context.Background(), "/reports", "Admin")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Allowed || dec.Redirect.Kind != RedirectUnauthorized || dec.Cached {
		t.Fatalf("expected fresh unauthorized denial, got %+v", dec)
	}

	allowed, ok := d.Cached("/reports", "Admin")
	if !ok || allowed {
		t.Fatalf("expected cached denial under (/reports, [Admin]), got allowed=%v ok=%v", allowed, ok)
	}
	if CacheKey("/reports", []string{"Admin"}) != "/reports|Admin" {
		t.Fatalf("unexpected key %q", CacheKey("/reports", []string{"Admin"}))
	}

	dec, _ = d.Check(context.Background(), "/reports", "Admin")
	if !dec.Cached || dec.Allowed {
		t.Fatalf("expected cached denial on second check, got %+v", dec)
	}
}

func TestCheckWaitsForInitialization(t *testing.T) {
	v := &fakeView{ready: make(chan struct{}), authed: true, user: &session.User{Roles: session.RoleList{"Admin"}}}
	d := NewDecider(v, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	dec, err := d.Check(ctx, "/customers", "Admin")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the check to wait and time out, got %v", err)
	}
	if dec.Allowed {
		t.Fatal("a check before initialization must never allow")
	}
	if d.Len() != 0 {
		t.Fatal("nothing may be cached before initialization")
	}

	result := make(chan Decision, 1)
	go func() {
		dec, _ := d.Check(context.Background(), "/customers", "Admin")
		result <- dec
	}()
	select {
	case <-result:
		t.Fatal("check resolved before initialization")
	case <-time.After(20 * time.Millisecond):
	}

	v.markReady()
	select {
	case dec := <-result:
		if !dec.Allowed {
			t.Fatalf("expected allow after initialization, got %+v", dec)
		}
	case <-time.After(time.Second):
		t.Fatal("check did not resolve after initialization")
	}
}

func TestCheckUnauthenticatedRedirectsToSignIn(t *testing.T) {
	d := NewDecider(newFakeView(false, nil), Config{})
	dec, err := d.Check(context.Background(), "/invoices/42", "Accountant")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Allowed || dec.Redirect.Kind != RedirectSignIn || dec.Redirect.ReturnTo != "/invoices/42" {
		t.Fatalf("expected sign-in redirect, got %+v", dec)
	}
	if d.Len() != 0 {
		t.Fatal("sign-in redirects must not be cached")
	}
}

func TestCheckDefaultsToAllowedSet(t *testing.T) {
	d := NewDecider(newFakeView(true, &session.User{Type: " support "}), Config{})
	if dec, _ := d.Check(context.Background(), "/dashboard"); !dec.Allowed {
		t.Fatalf("support must pass the default allow-list, got %+v", dec)
	}

	d = NewDecider(newFakeView(true, &session.User{Type: "Guest"}), Config{})
	if dec, _ := d.Check(context.Background(), "/dashboard"); dec.Allowed {
		t.Fatal("guest must not pass the default allow-list")
	}

	d = NewDecider(newFakeView(true, &session.User{Roles: session.RoleList{"Auditor"}}), Config{AllowedRoles: []string{"auditor"}})
	if dec, _ := d.Check(context.Background(), "/audit"); !dec.Allowed {
		t.Fatal("configured allow-list must be used")
	}
}

func TestCheckPrefersTokenRoles(t *testing.T) {
	v := newFakeView(true, &session.User{Roles: session.RoleList{"Admin"}})
	v.token = "opaque"
	d := NewDecider(v, Config{TokenRoles: func(string) []string { return []string{"Sales"} }})

	if dec, _ := d.Check(context.Background(), "/settings", "Admin"); dec.Allowed {
		t.Fatal("token claim must win over the user payload")
	}
	if dec, _ := d.Check(context.Background(), "/leads", "sales"); !dec.Allowed {
		t.Fatal("expected token role to allow")
	}
}

func TestCheckNoRolesDenies(t *testing.T) {
	d := NewDecider(newFakeView(true, &session.User{Roles: session.RoleList{" ", ""}}), Config{})
	if dec, _ := d.Check(context.Background(), "/customers", "Admin"); dec.Allowed {
		t.Fatal("a user without roles must be denied")
	}
}

// The cache outlives the session that produced it. A second user on the
// same Decider inherits the first user's decisions until Purge.
func TestCacheIsNotInvalidatedOnSessionChange(t *testing.T) {
	v := newFakeView(true, &session.User{Roles: session.RoleList{"Admin"}})
	d := NewDecider(v, Config{})

	if dec, _ := d.Check(context.Background(), "/reports", "Admin"); !dec.Allowed {
		t.Fatal("admin must be allowed")
	}

	v.signIn(&session.User{Roles: session.RoleList{"Sales"}})
	dec, _ := d.Check(context.Background(), "/reports", "Admin")
	if !dec.Allowed || !dec.Cached {
		t.Fatalf("expected stale cached allow for the second user, got %+v", dec)
	}

	d.Purge()
	dec, _ = d.Check(context.Background(), "/reports", "Admin")
	if dec.Allowed || dec.Cached {
		t.Fatalf("expected fresh denial after purge, got %+v", dec)
	}
}

func TestCacheKeyIgnoresRoleOrder(t *testing.T) {
	d := NewDecider(newFakeView(true, &session.User{Roles: session.RoleList{"Manager"}}), Config{})
	_, _ = d.Check(context.Background(), "/orders", "Sales", "Manager")
	dec, _ := d.Check(context.Background(), "/orders", "Manager", "Sales")
	if !dec.Cached || !dec.Allowed {
		t.Fatalf("expected cache hit regardless of order, got %+v", dec)
	}
	if d.Len() != 1 {
		t.Fatalf("expected one cache entry, got %d", d.Len())
	}
}

func TestOnDecisionObservesEveryCheck(t *testing.T) {
	var got []Decision
	d := NewDecider(newFakeView(true, &session.User{Type: "Employee"}), Config{
		OnDecision: func(_ context.Context, _ string, dec Decision) { got = append(got, dec) },
	})
	_, _ = d.Check(context.Background(), "/a", "Admin")
	_, _ = d.Check(context.Background(), "/a", "Admin")
	if len(got) != 2 || got[0].Cached || !got[1].Cached {
		t.Fatalf("unexpected observations %+v", got)
	}
}
