package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/session"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginStatusGetLogout(t *testing.T) {
	srv := authtest.NewServer(authtest.Options{})
	defer srv.Close()
	srv.AddAccount(authtest.Account{
		Password: "s3cret",
		User:     session.User{ID: "u-1", Email: "sales@crm.test", Name: "Sam", TenantID: "t-9", Roles: session.RoleList{"Sales"}},
	})

	common := []string{"--base-url", srv.URL, "--store", filepath.Join(t.TempDir(), "session.json")}
	with := func(args ...string) []string { return append(append([]string(nil), args...), common...) }

	out, err := run(t, "s3cret\n", with("login", "--email", "sales@crm.test", "--password-stdin")...)
	if err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Signed in as Sam <sales@crm.test> (sales)") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out, err = run(t, "", with("status")...)
	if err != nil || !strings.Contains(out, "Tenant: t-9") {
		t.Fatalf("status: %v\n%s", err, out)
	}

	srv.ExpireAccessTokens()
	out, err = run(t, "", with("get", "/api/orders")...)
	if err != nil || !strings.Contains(out, `"user": "u-1"`) {
		t.Fatalf("get: %v\n%s", err, out)
	}
	if srv.RefreshCalls() != 1 {
		t.Fatalf("expected the expired token to be refreshed once, got %d", srv.RefreshCalls())
	}

	if _, err := run(t, "", with("check", "/reports", "--role", "Admin")...); err == nil {
		t.Fatal("check should fail for a missing role")
	}
	if out, err := run(t, "", with("check", "/orders")...); err != nil || !strings.Contains(out, "allowed") {
		t.Fatalf("check: %v\n%s", err, out)
	}

	if _, err := run(t, "", with("logout")...); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out, err = run(t, "", with("status")...)
	if err != nil || !strings.Contains(out, "Not signed in") {
		t.Fatalf("status after logout: %v\n%s", err, out)
	}
}

func TestLoginRequiresBaseURL(t *testing.T) {
	t.Setenv("CRMAUTH_BASE_URL", "")
	_, err := run(t, "pw\n", "login", "--email", "a@b.c", "--password-stdin", "--store", filepath.Join(t.TempDir(), "s.json"))
	if err == nil || !strings.Contains(err.Error(), "no base URL") {
		t.Fatalf("expected base url error, got %v", err)
	}
}

func TestAuditLogRecordsLogin(t *testing.T) {
	srv := authtest.NewServer(authtest.Options{})
	defer srv.Close()
	srv.AddAccount(authtest.Account{
		Password: "s3cret",
		User:     session.User{ID: "u-2", Email: "ops@crm.test", Roles: session.RoleList{"Manager"}},
	})

	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.jsonl")
	_, err := run(t, "s3cret\n", "login", "--email", "ops@crm.test", "--password-stdin",
		"--base-url", srv.URL, "--store", filepath.Join(dir, "session.json"), "--audit-log", auditPath)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(data), `"event_type":"login_success"`) || strings.Contains(string(data), "s3cret") {
		t.Fatalf("unexpected audit log: %s", data)
	}
}
