package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// OOBRedirectURL is the out-of-band redirect used by the CLI connect flow,
// where the user pastes the authorization code back into the terminal.
const OOBRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// DefaultOAuthScopes are the Google OAuth scopes requested when connecting
// an account. Calendar access plus enough identity to label the account.
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/calendar",
}

// OAuth wraps an oauth2.Config for the Google consent flow.
type OAuth struct {
	conf *oauth2.Config
}

// NewOAuth builds the OAuth helper from client credentials. redirectURL may
// be empty, in which case the out-of-band flow is used.
func NewOAuth(clientID, clientSecret, redirectURL string) (*OAuth, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("google client id and secret are required")
	}
	if redirectURL == "" {
		redirectURL = OOBRedirectURL
	}
	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       DefaultOAuthScopes,
		},
	}, nil
}

// AuthURL returns the consent URL for user authorization. Offline access and
// forced consent ensure Google issues a refresh token even for accounts that
// granted access before.
func (o *OAuth) AuthURL(state string) string {
	return o.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token set.
func (o *OAuth) Exchange(ctx context.Context, authCode string) (*oauth2.Token, error) {
	t, err := o.conf.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return t, nil
}

// Refresh obtains a fresh access token from a refresh token. The returned
// token may carry a rotated refresh token, which callers must persist.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ts := o.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return ts.Token()
}

// FetchEmail resolves the email address of the account a token belongs to.
// Used once at connect time to label the account.
func (o *OAuth) FetchEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	return info.Email, nil
}

// Scopes returns the scopes this configuration requests.
func (o *OAuth) Scopes() []string {
	return o.conf.Scopes
}
