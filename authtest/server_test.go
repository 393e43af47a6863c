package authtest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/session"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestServerLoginRefreshAndExpiry(t *testing.T) {
	srv := NewServer(Options{})
	defer srv.Close()
	srv.AddAccount(Account{
		Password:   "pw",
		User:       session.User{ID: "u-1", Email: "ada@crm.test"},
		TokenRoles: []string{"Admin"},
	})

	resp := postJSON(t, srv.URL+"/auth/login", map[string]string{"email": "ADA@crm.test", "password": "pw"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login 200, got %d", resp.StatusCode)
	}
	var login struct {
		Token struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"token"`
		User session.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	roles, err := jwt.Roles(login.Token.AccessToken, nil)
	if err != nil || len(roles) != 1 || roles[0] != "Admin" {
		t.Fatalf("unexpected token roles %v (%v)", roles, err)
	}

	get := func(token string) int {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/customers", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get(login.Token.AccessToken); code != http.StatusOK {
		t.Fatalf("expected 200 with fresh token, got %d", code)
	}
	srv.ExpireAccessTokens()
	if code := get(login.Token.AccessToken); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after expiry, got %d", code)
	}

	refresh := postJSON(t, srv.URL+"/auth/refresh-token", map[string]string{"refreshToken": login.Token.RefreshToken})
	refresh.Body.Close()
	if refresh.StatusCode != http.StatusOK {
		t.Fatalf("expected refresh 200, got %d", refresh.StatusCode)
	}
	reuse := postJSON(t, srv.URL+"/auth/refresh-token", map[string]string{"refreshToken": login.Token.RefreshToken})
	reuse.Body.Close()
	if reuse.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh tokens must rotate, got %d on reuse", reuse.StatusCode)
	}
	if srv.RefreshCalls() != 2 || srv.LoginCalls() != 1 {
		t.Fatalf("unexpected counters: login=%d refresh=%d", srv.LoginCalls(), srv.RefreshCalls())
	}
}

func TestServerRejectsBadPassword(t *testing.T) {
	srv := NewServer(Options{Envelope: true})
	defer srv.Close()
	srv.AddAccount(Account{Password: "pw", User: session.User{ID: "u-1", Email: "ada@crm.test"}})

	resp := postJSON(t, srv.URL+"/auth/login", map[string]string{"email": "ada@crm.test", "password": "nope"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestBearerToken(t *testing.T) {
	if _, ok := BearerToken("Basic abc"); ok {
		t.Fatal("expected non-bearer header to be rejected")
	}
	if _, ok := BearerToken("Bearer "); ok {
		t.Fatal("expected empty bearer token to be rejected")
	}
	if tok, ok := BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("unexpected token %q", tok)
	}
}
