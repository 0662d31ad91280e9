package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// GoogleExchanger implements Exchanger against Google's OAuth endpoints.
type GoogleExchanger struct {
	conf *oauth2.Config
}

// NewGoogleExchanger creates an exchanger for the given OAuth client.
func NewGoogleExchanger(clientID, clientSecret, redirectURL string) *GoogleExchanger {
	return &GoogleExchanger{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes: []string{
				gmail.GmailModifyScope, // read, label and modify messages
			},
		},
	}
}

// AuthURL returns the consent URL the user visits to authorize mailbox
// access. AccessTypeOffline is required so Google issues a refresh token.
func (g *GoogleExchanger) AuthURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token pair.
func (g *GoogleExchanger) Exchange(ctx context.Context, authCode string) (*oauth2.Token, error) {
	tok, err := g.conf.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}
	return tok, nil
}

// Refresh trades a refresh token for a new access token. The expired
// placeholder Expiry forces the token source to hit the refresh endpoint.
func (g *GoogleExchanger) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ts := g.conf.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token exchange failed: %w", err)
	}
	return tok, nil
}
