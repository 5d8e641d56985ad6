package spotify

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// AuthURL returns the authorize URL for the authorization-code flow.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			msg := retrieveErr.ErrorDescription
			if msg == "" {
				msg = retrieveErr.ErrorCode
			}
			return "", fmt.Errorf("spotify adapter: token exchange: %w", &ports.APIError{
				Status:  retrieveErr.Response.StatusCode,
				Message: msg,
			})
		}
		return "", fmt.Errorf("spotify adapter: token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("spotify adapter: token exchange returned no access token")
	}
	return tok.AccessToken, nil
}
