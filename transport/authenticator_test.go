package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/apperr"
)

type tokenBox struct {
	mu    sync.Mutex
	token string
}

func (b *tokenBox) get(context.Context) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

func (b *tokenBox) set(token string) {
	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
}

// protectedServer answers 200 with the request body for "Bearer fresh" and
// 401 otherwise. Paths under /auth/ are public and always answer 401.
func protectedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/auth/") {
			if r.Header.Get("Authorization") != "" {
				t.Errorf("public endpoint received a bearer token")
			}
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write([]byte("ok:" + string(body)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSingleFlightRefreshReplaysAllCallers(t *testing.T) {
	srv := protectedServer(t)
	box := &tokenBox{token: "expired"}
	release := make(chan struct{})
	var refreshCalls, replays, waits atomic.Int32

	a := NewAuthenticator(Config{
		Token: box.get,
		Refresh: func(context.Context) (string, error) {
			refreshCalls.Add(1)
			<-release
			box.set("fresh")
			return "fresh", nil
		},
		Logout: func(context.Context) { t.Error("unexpected logout") },
		Hooks: Hooks{
			Waiting:  func() { waits.Add(1) },
			Replayed: func() { replays.Add(1) },
		},
	})
	client := &http.Client{Transport: a}

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(srv.URL + "/api/customers")
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			results[i] = string(body)
		}(i)
	}

	waitFor(t, func() bool { return a.Pending() == callers })
	if a.State() != Refreshing {
		t.Fatalf("expected refreshing state, got %v", a.State())
	}
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i] != "ok:" {
			t.Fatalf("caller %d got %q", i, results[i])
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh, got %d", got)
	}
	if replays.Load() != callers || waits.Load() != callers-1 {
		t.Fatalf("unexpected hook counts replays=%d waits=%d", replays.Load(), waits.Load())
	}
	if a.State() != Idle || a.Pending() != 0 {
		t.Fatalf("cycle must reset, state=%v pending=%d", a.State(), a.Pending())
	}
}

func TestRefreshFailureFailsEveryCallerAndLogsOut(t *testing.T) {
	srv := protectedServer(t)
	box := &tokenBox{token: "expired"}
	release := make(chan struct{})
	var logouts atomic.Int32

	a := NewAuthenticator(Config{
		Token: box.get,
		Refresh: func(context.Context) (string, error) {
			<-release
			return "", apperr.FromStatus(http.StatusUnauthorized, "")
		},
		Logout: func(context.Context) {
			logouts.Add(1)
			box.set("")
		},
	})
	client := &http.Client{Transport: a}

	const callers = 3
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(srv.URL + "/api/invoices")
			if err == nil {
				resp.Body.Close()
			}
			errs[i] = err
		}(i)
	}
	waitFor(t, func() bool { return a.Pending() == callers })
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("caller %d: expected UNAUTHORIZED, got %v", i, err)
		}
	}
	if logouts.Load() != 1 {
		t.Fatalf("expected one logout, got %d", logouts.Load())
	}
	if box.get(context.Background()) != "" {
		t.Fatal("token must be cleared")
	}
}

func TestSupersededRefreshDoesNotLogOut(t *testing.T) {
	srv := protectedServer(t)
	a := NewAuthenticator(Config{
		Token: func(context.Context) string { return "expired" },
		Refresh: func(context.Context) (string, error) {
			return "", apperr.New(apperr.KeyUnauthorized, apperr.ErrSessionChanged)
		},
		Logout: func(context.Context) { t.Error("superseded refresh must not log out") },
	})
	_, err := (&http.Client{Transport: a}).Get(srv.URL + "/api/orders")
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestNoGraceWindowBetweenCycles(t *testing.T) {
	srv := protectedServer(t)
	var refreshCalls atomic.Int32
	a := NewAuthenticator(Config{
		// the store never picks up the new token, so every call 401s first
		Token: func(context.Context) string { return "stale" },
		Refresh: func(context.Context) (string, error) {
			refreshCalls.Add(1)
			return "fresh", nil
		},
	})
	client := &http.Client{Transport: a}
	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL + "/api/leads")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		resp.Body.Close()
	}
	if refreshCalls.Load() != 2 {
		t.Fatalf("expected a new cycle per sequential 401, got %d", refreshCalls.Load())
	}
}

func TestPublicEndpoint401LogsOutWithoutRefresh(t *testing.T) {
	srv := protectedServer(t)
	var logouts atomic.Int32
	a := NewAuthenticator(Config{
		Token: func(context.Context) string { return "expired" },
		Refresh: func(context.Context) (string, error) {
			t.Error("public endpoint must not refresh")
			return "", nil
		},
		Logout: func(context.Context) { logouts.Add(1) },
		Public: []string{"/auth/login", "auth/refresh-token"},
	})

	resp, err := (&http.Client{Transport: a}).Post(srv.URL+"/auth/login", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected the 401 to pass through, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "bad credentials") {
		t.Fatalf("public 401 body must be intact, got %q", body)
	}
	if logouts.Load() != 1 {
		t.Fatalf("expected logout, got %d", logouts.Load())
	}
}

func TestIsPublicMatchesPathSuffix(t *testing.T) {
	a := NewAuthenticator(Config{Public: []string{"/auth/login", " /auth/refresh-token/ ", ""}})
	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://crm.example.com/auth/login", want: true},
		{url: "https://crm.example.com/api/auth/refresh-token", want: true},
		{url: "https://crm.example.com/api/customers", want: false},
		{url: "https://crm.example.com/", want: false},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
		if got := a.IsPublic(req); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.url, tt.want, got)
		}
	}
}

type onlyReader struct{ io.Reader }

func TestReplayResendsBody(t *testing.T) {
	srv := protectedServer(t)
	box := &tokenBox{token: "expired"}
	a := NewAuthenticator(Config{
		Token: box.get,
		Refresh: func(context.Context) (string, error) {
			box.set("fresh")
			return "fresh", nil
		},
	})
	client := &http.Client{Transport: a}

	t.Run("with GetBody", func(t *testing.T) {
		box.set("expired")
		resp, err := client.Post(srv.URL+"/api/orders", "text/plain", strings.NewReader("order-1"))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "ok:order-1" {
			t.Fatalf("unexpected body %q", body)
		}
	})

	t.Run("buffered", func(t *testing.T) {
		box.set("expired")
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/orders", onlyReader{strings.NewReader("order-2")})
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "ok:order-2" {
			t.Fatalf("unexpected body %q", body)
		}
	})
}

func TestRefreshSurvivesLeaderCancellation(t *testing.T) {
	srv := protectedServer(t)
	box := &tokenBox{token: "expired"}
	release := make(chan struct{})
	refreshErr := make(chan error, 1)

	a := NewAuthenticator(Config{
		Token: box.get,
		Refresh: func(ctx context.Context) (string, error) {
			<-release
			refreshErr <- ctx.Err()
			box.set("fresh")
			return "fresh", nil
		},
	})
	client := &http.Client{Transport: a}

	ctx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/reports", nil)
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
		}
		leaderDone <- err
	}()

	waitFor(t, func() bool { return a.Pending() == 1 })
	cancel()
	if err := <-leaderDone; !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("cancelled leader should stop waiting with NETWORK_ERROR, got %v", err)
	}

	close(release)
	if err := <-refreshErr; err != nil {
		t.Fatalf("refresh must not inherit the leader's cancellation: %v", err)
	}
	waitFor(t, func() bool { return a.State() == Idle })

	resp, err := client.Get(srv.URL + "/api/reports")
	if err != nil {
		t.Fatalf("follow-up call: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with refreshed token, got %d", resp.StatusCode)
	}
}

func TestNetworkErrorIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	var seen atomic.Int32
	a := NewAuthenticator(Config{Hooks: Hooks{NetworkError: func(error) { seen.Add(1) }}})
	_, err := (&http.Client{Transport: a}).Get(addr + "/api/customers")
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("expected NETWORK_ERROR, got %v", err)
	}
	if seen.Load() != 1 {
		t.Fatalf("expected network hook, got %d", seen.Load())
	}
}

func TestRequestIDIsSetAndKeptOnReplay(t *testing.T) {
	var ids []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get(RequestIDHeader))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	a := NewAuthenticator(Config{
		Token:      func(context.Context) string { return "stale" },
		Refresh:    func(context.Context) (string, error) { return "fresh", nil },
		RequestIDs: true,
	})
	resp, err := (&http.Client{Transport: a}).Get(srv.URL + "/api/customers")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if len(ids) != 2 || ids[0] == "" || ids[0] != ids[1] {
		t.Fatalf("expected one request id reused on replay, got %v", ids)
	}
}
