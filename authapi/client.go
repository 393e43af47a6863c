package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/goAuthClient/apperr"
	"github.com/MrEthical07/goAuthClient/session"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// TokenPair is the token object returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the decoded login payload.
type LoginResponse struct {
	Token TokenPair     `json:"token"`
	User  *session.User `json:"user"`
}

// ResetPasswordRequest is the body of the reset-password call.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token,omitempty"`
	OTP         string `json:"otp,omitempty"`
	NewPassword string `json:"newPassword"`
}

// ConfirmEmailRequest is the body of the confirm-email call.
type ConfirmEmailRequest struct {
	Email string `json:"email,omitempty"`
	Token string `json:"token"`
}

// VerifyOTPRequest is the body of the verify-otp call.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Client talks to the auth endpoints.
type Client struct {
	base      *url.URL
	endpoints Endpoints
	http      *http.Client
}

// New returns a Client for baseURL. Empty endpoint paths take their
// defaults; a nil httpClient uses http.DefaultClient.
func New(baseURL string, endpoints Endpoints, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("base url must be http or https")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:      base,
		endpoints: endpoints.withDefaults(),
		http:      httpClient,
	}, nil
}

// Endpoints returns the effective paths.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

// Login posts credentials and returns the issued tokens and user.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, c.endpoints.Login, body, &out); err != nil {
		return LoginResponse{}, err
	}
	return out, nil
}

// Refresh exchanges refreshToken for a new pair. When the server does not
// rotate the refresh token, the old one is returned in the pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var out struct {
		Token TokenPair `json:"token"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.post(ctx, c.endpoints.Refresh, body, &out); err != nil {
		return TokenPair{}, err
	}
	if out.Token.AccessToken == "" {
		return TokenPair{}, apperr.New(apperr.KeyUnauthorized, errors.New("refresh response carried no access token"))
	}
	if out.Token.RefreshToken == "" {
		out.Token.RefreshToken = refreshToken
	}
	return out.Token, nil
}

// ForgotPassword asks the server to send a reset link or code to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.post(ctx, c.endpoints.ForgotPassword, map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password using a reset token or OTP.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.post(ctx, c.endpoints.ResetPassword, req, nil)
}

// ConfirmEmail confirms an email address.
func (c *Client) ConfirmEmail(ctx context.Context, req ConfirmEmailRequest) error {
	return c.post(ctx, c.endpoints.ConfirmEmail, req, nil)
}

// ResendOTP asks the server to send a new one-time code.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.post(ctx, c.endpoints.ResendOTP, map[string]string{"email": email}, nil)
}

// VerifyOTP submits a one-time code.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	return c.post(ctx, c.endpoints.VerifyOTP, req, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return apperr.New(apperr.KeyUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(payload))
	if err != nil {
		return apperr.New(apperr.KeyUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Normalize(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apperr.New(apperr.KeyNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.FromStatus(resp.StatusCode, ErrorMessage(body))
	}
	if out == nil {
		return nil
	}
	if err := DecodeEnvelope(body, out); err != nil {
		return apperr.New(apperr.KeyUnknown, fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

// DecodeEnvelope decodes body into out, unwrapping a {"data": ...}
// envelope when present.
func DecodeEnvelope(body []byte, out any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return errors.New("empty body")
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		body = env.Data
	}
	return json.Unmarshal(body, out)
}

// ErrorMessage extracts a human-readable message from an error body, or
// returns "" when none is present.
func ErrorMessage(body []byte) string {
	var fields struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Title   string `json:"title"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &fields); err != nil {
		return ""
	}
	for _, msg := range []string{fields.Message, fields.Error, fields.Title} {
		if msg = strings.TrimSpace(msg); msg != "" {
			return msg
		}
	}
	return ""
}
