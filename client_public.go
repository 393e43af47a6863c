package goAuthClient

import (
	"context"
	"strings"
)

// The calls below hit public endpoints. They never carry a token and
// never touch the session; failures come back as *AppError.

// ForgotPassword asks the backend to mail a reset link or code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.api.ForgotPassword(ctx, strings.TrimSpace(email))
}

// ResetPassword sets a new password using the code from ForgotPassword.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.api.ResetPassword(ctx, req)
}

// ConfirmEmail confirms an address with the token from the welcome mail.
func (c *Client) ConfirmEmail(ctx context.Context, req ConfirmEmailRequest) error {
	return c.api.ConfirmEmail(ctx, req)
}

// ResendOTP asks the backend to send a fresh one-time code.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.api.ResendOTP(ctx, strings.TrimSpace(email))
}

// VerifyOTP submits a one-time code.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	return c.api.VerifyOTP(ctx, req)
}
