package client

import (
	"context"
	"net/http"
)

// User is the authenticated profile returned by the backend.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// Login authenticates with email and password. On success the access
// token is stored and the refresh cookie lands in the cookie jar. Bad
// credentials come back as a 401 *APIError; the login endpoint never
// enters the refresh protocol.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp authResponse
	err := c.PostJSON(ctx, loginPath, loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	c.tokens.SetAccessToken(ctx, resp.AccessToken)
	c.logger.Info().Str("user", resp.User.Username).Msg("Logged in")
	return &resp.User, nil
}

// Refresh manually mints a new access token from the refresh cookie.
// The interceptor pipeline calls the same single-flight path on 401, so
// an explicit Refresh never races a pipeline-triggered one.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refreshToken(ctx)
	return err
}

// Logout ends the session. The server call is best-effort: a failure is
// logged and ignored, local session state is cleared regardless.
func (c *Client) Logout(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.path(logoutPath), nil)
	if err == nil {
		if resp, doErr := c.send(req, c.tokens.AccessToken(ctx)); doErr != nil {
			c.logger.Warn().Err(doErr).Msg("Logout request failed")
		} else {
			resp.Body.Close()
		}
	}

	c.tokens.Clear(ctx)
	c.logger.Info().Msg("Logged out")
}

// Me fetches the authenticated profile. Called at startup to validate
// an existing token; an expired token recovers through the normal
// refresh protocol.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.GetJSON(ctx, mePath, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
