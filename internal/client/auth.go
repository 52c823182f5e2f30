package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/carrent-dev/carrent/internal/authn"
	"github.com/carrent-dev/carrent/internal/session"
)

var _ session.AuthService = (*Client)(nil)

// Login authenticates with email and password. The request is sent without
// credentials, so a rejected login never evicts the current session.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (*session.Session, error) {
	if err := Validate(creds); err != nil {
		return nil, err
	}

	data, err := c.raw(authn.Anonymous(ctx), http.MethodPost, "/auth/login", creds)
	if err != nil {
		return nil, err
	}
	sess, err := session.FromPayload(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return sess, nil
}

// Register creates an account. The returned session may lack a token when
// the API does not log new users in.
func (c *Client) Register(ctx context.Context, reg session.Registration) (*session.Session, error) {
	if reg.Role == "" {
		reg.Role = session.RoleUser
	}
	if err := Validate(reg); err != nil {
		return nil, err
	}

	data, err := c.raw(authn.Anonymous(ctx), http.MethodPost, "/auth/register", reg)
	if err != nil {
		return nil, err
	}
	sess, err := session.FromPayload(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode registration response: %w", err)
	}
	return sess, nil
}

// ForgotPasswordRequest asks for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword requests a password reset link for email and returns the
// API's confirmation message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	req := ForgotPasswordRequest{Email: email}
	if err := Validate(req); err != nil {
		return "", err
	}
	return c.message(authn.Anonymous(ctx), http.MethodPost, "/auth/forgotpassword", req)
}

// PasswordReset is the new-password form.
type PasswordReset struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" form:"confirmPassword" validate:"eqfield=Password"`
}

// ResetPassword sets a new password using the token from a reset link.
func (c *Client) ResetPassword(ctx context.Context, resetToken string, form PasswordReset) (string, error) {
	if resetToken == "" {
		return "", &ValidationError{Fields: []string{"token"}, Reason: "reset token is required"}
	}
	if err := Validate(form); err != nil {
		return "", err
	}
	path := "/auth/resetpassword/" + url.PathEscape(resetToken)
	return c.message(authn.Anonymous(ctx), http.MethodPut, path, form)
}
