//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

func TestRedisSessionSurvivesRestart(t *testing.T) {
	env := newIntegrationEnv(t)

	first := env.newClient(t, "desk-1", nil)
	login(t, first)
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !env.mr.Exists("it:desk-1:access") || !env.mr.Exists("it:desk-1:refresh") || !env.mr.Exists("it:desk-1:user") {
		t.Fatalf("expected three session keys, got %v", env.mr.Keys())
	}

	second := env.newClient(t, "desk-1", nil)
	if !second.IsAuthenticated() {
		t.Fatal("a new client on the same namespace should restore the session")
	}
	if u := second.CurrentUser(); u == nil || u.ID != "user-1" || u.TenantID != "acme" {
		t.Fatalf("unexpected restored user: %+v", u)
	}

	other := env.newClient(t, "desk-2", nil)
	if other.IsAuthenticated() {
		t.Fatal("namespaces must not share sessions")
	}

	second.Logout(context.Background())
	if len(env.mr.Keys()) != 0 {
		t.Fatalf("logout should delete every key, left %v", env.mr.Keys())
	}
}

func TestRedisTTLAppliesToEveryKey(t *testing.T) {
	env := newIntegrationEnv(t)
	client := env.newClient(t, "ttl", func(cfg *goAuthClient.Config) {
		cfg.Store.Redis.TTL = time.Hour
	})
	login(t, client)

	for _, key := range []string{"it:ttl:access", "it:ttl:refresh", "it:ttl:user"} {
		if ttl := env.mr.TTL(key); ttl != time.Hour {
			t.Fatalf("expected %s ttl 1h, got %s", key, ttl)
		}
	}

	env.mr.FastForward(2 * time.Hour)
	restarted := env.newClient(t, "ttl", nil)
	if restarted.IsAuthenticated() {
		t.Fatal("expired keys must not restore a session")
	}
}

func TestRedisExpiryEndsLiveSession(t *testing.T) {
	env := newIntegrationEnv(t)
	client := env.newClient(t, "live", func(cfg *goAuthClient.Config) {
		cfg.Store.Redis.TTL = time.Minute
	})
	login(t, client)

	env.mr.FastForward(2 * time.Minute)

	if client.IsAuthenticated() {
		t.Fatal("a running client must notice its keys expired")
	}
	if client.AccessToken(context.Background()) != "" {
		t.Fatal("no access token after expiry")
	}
	if got := client.MetricsSnapshot().Counters[goAuthClient.MetricSessionLost]; got != 1 {
		t.Fatalf("expected one lost session, got %d", got)
	}
}
