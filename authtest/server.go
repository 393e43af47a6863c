package authtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/google/uuid"
)

// Secret is the HS256 key the server signs access tokens with.
const Secret = "crm-authtest-secret-0123456789ab"

// Issuer is the iss claim of every issued token.
const Issuer = "crm-authtest"

// Account is a user the server accepts.
type Account struct {
	Password string
	User     session.User
	// TokenRoles, when set, go into the access token's role claim.
	TokenRoles []string
}

// Options tune a Server. The zero value is usable.
type Options struct {
	// AccessTTL defaults to 15 minutes.
	AccessTTL time.Duration
	// Envelope wraps success payloads in {"data": ...}.
	Envelope bool
	// OmitUser leaves the user object out of login responses.
	OmitUser bool
}

// Server is a fake CRM backend exposing the auth endpoints and a few
// protected resources under /api/.
type Server struct {
	*httptest.Server

	opts Options
	jwt  *jwt.Manager

	mu       sync.Mutex
	accounts map[string]Account
	refresh  map[string]string   // refresh token -> email
	live     map[string]struct{} // jti of access tokens still accepted
	hook     func(ctx context.Context) error

	loginCalls     atomic.Int64
	refreshCalls   atomic.Int64
	protectedCalls atomic.Int64

	reqMu      sync.Mutex
	requestIDs []string
}

// NewServer starts a server. Close it when done.
func NewServer(opts Options) *Server {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     opts.AccessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(Secret),
		Issuer:        Issuer,
	})
	if err != nil {
		panic("authtest: " + err.Error())
	}

	s := &Server{
		opts:     opts,
		jwt:      m,
		accounts: make(map[string]Account),
		refresh:  make(map[string]string),
		live:     make(map[string]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh-token", s.handleRefresh)
	for _, p := range []string{"forgot-password", "reset-password", "confirm-email", "resend-otp", "verify-otp"} {
		mux.HandleFunc("POST /auth/"+p, s.handleAccepted)
	}
	mux.HandleFunc("/api/", s.handleProtected)

	s.Server = httptest.NewServer(mux)
	return s
}

// AddAccount registers an account under its email.
func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(a.User.Email)] = a
}

// SetRefreshHook installs fn to run before every refresh exchange. A
// non-nil error answers 401 with the error text. fn may block.
func (s *Server) SetRefreshHook(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Issue mints a token pair for email without going through login.
func (s *Server) Issue(email string) (access, refresh string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(strings.ToLower(email))
}

// ExpireAccessTokens makes every access token issued so far fail on the
// protected endpoints.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = make(map[string]struct{})
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

func (s *Server) LoginCalls() int64     { return s.loginCalls.Load() }
func (s *Server) RefreshCalls() int64   { return s.refreshCalls.Load() }
func (s *Server) ProtectedCalls() int64 { return s.protectedCalls.Load() }

// RequestIDs returns the X-Request-ID values seen on protected calls.
func (s *Server) RequestIDs() []string {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

func (s *Server) issueLocked(email string) (string, string, error) {
	a, ok := s.accounts[email]
	if !ok {
		return "", "", errors.New("unknown account")
	}
	claims := jwt.AccessClaims{
		UserID:   a.User.ID,
		TenantID: a.User.TenantID,
		Email:    a.User.Email,
		Roles:    a.TokenRoles,
	}
	claims.Subject = a.User.ID
	claims.ID = uuid.NewString()
	access, err := s.jwt.Issue(claims)
	if err != nil {
		return "", "", err
	}
	s.live[claims.ID] = struct{}{}
	refresh := uuid.NewString()
	s.refresh[refresh] = email
	return access, refresh, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)

	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	s.mu.Lock()
	a, ok := s.accounts[email]
	if !ok || a.Password != in.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	access, refresh, err := s.issueLocked(email)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := map[string]any{
		"token": map[string]string{"accessToken": access, "refreshToken": refresh},
	}
	if !s.opts.OmitUser {
		out["user"] = a.User
	}
	s.writeOK(w, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		if err := hook(r.Context()); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}

	s.mu.Lock()
	email, ok := s.refresh[in.RefreshToken]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Refresh token is invalid")
		return
	}
	delete(s.refresh, in.RefreshToken)
	access, refresh, err := s.issueLocked(email)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeOK(w, map[string]any{
		"token": map[string]string{"accessToken": access, "refreshToken": refresh},
	})
}

func (s *Server) handleAccepted(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if len(in) == 0 {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}
	s.writeOK(w, map[string]any{"message": "ok"})
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	s.protectedCalls.Add(1)

	if id := r.Header.Get("X-Request-ID"); id != "" {
		s.reqMu.Lock()
		s.requestIDs = append(s.requestIDs, id)
		s.reqMu.Unlock()
	}

	claims, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	out := map[string]any{
		"path":   r.URL.Path,
		"method": r.Method,
		"user":   claims.UserID,
	}
	if r.Body != nil && r.Method != http.MethodGet {
		var body any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			out["body"] = body
		}
	}
	s.writeOK(w, out)
}

type protectedClaims struct {
	UserID string
}

func (s *Server) authorize(r *http.Request) (protectedClaims, bool) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return protectedClaims{}, false
	}
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return protectedClaims{}, false
	}
	uid, _ := claims["uid"].(string)
	jti, _ := claims["jti"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[jti]; !ok {
		return protectedClaims{}, false
	}
	return protectedClaims{UserID: uid}, true
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func (s *Server) writeOK(w http.ResponseWriter, payload any) {
	if s.opts.Envelope {
		payload = map[string]any{"data": payload}
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
