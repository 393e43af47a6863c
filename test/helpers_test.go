//go:build integration
// +build integration

package test

import (
	"context"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type integrationEnv struct {
	server *authtest.Server
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	srv := authtest.NewServer(authtest.Options{Envelope: true})
	srv.AddAccount(authtest.Account{
		Password: "correct-horse",
		User: session.User{
			ID:       "user-1",
			Email:    "alice@example.com",
			TenantID: "acme",
			Roles:    session.RoleList{"Manager"},
		},
	})

	t.Cleanup(func() {
		srv.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return &integrationEnv{server: srv, mr: mr, rdb: rdb}
}

// newClient builds a Redis-backed client for namespace and initializes it.
func (e *integrationEnv) newClient(t *testing.T, namespace string, configure func(*goAuthClient.Config)) *goAuthClient.Client {
	t.Helper()

	cfg := goAuthClient.DefaultConfig()
	cfg.API.BaseURL = e.server.URL
	cfg.Store.Kind = goAuthClient.StoreRedis
	cfg.Store.Redis.Prefix = "it"
	cfg.Store.Redis.Namespace = namespace
	cfg.Metrics.Enabled = true
	if configure != nil {
		configure(&cfg)
	}

	client, err := goAuthClient.New().WithConfig(cfg).WithRedis(e.rdb).Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	client.Initialize(context.Background())
	return client
}

func login(t *testing.T, c *goAuthClient.Client) {
	t.Helper()
	if _, err := c.Login(context.Background(), goAuthClient.Credentials{Email: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}
