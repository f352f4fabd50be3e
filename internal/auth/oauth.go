package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hugh/zenshin-chart/pkg/config"
	"golang.org/x/oauth2"
)

var ErrOAuthDisabled = errors.New("oauth login is not configured")

const oauthProviderName = "oauth"

// OAuthProvider runs the authorization code flow against a generic provider
// and reads identity from its userinfo endpoint.
type OAuthProvider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

func NewOAuthProvider(cfg config.OAuthConfig) (*OAuthProvider, error) {
	if !cfg.Enabled() {
		return nil, ErrOAuthDisabled
	}
	if cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("oauth userinfo url is required")
	}

	return &OAuthProvider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
	}, nil
}

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token and fetches the user.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*ExternalUser, error) {
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}

	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}

	resp, err := p.cfg.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		Sub   string `json:"sub"`
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding user info: %w", err)
	}

	externalID := info.Sub
	if externalID == "" {
		externalID = info.ID
	}
	if externalID == "" {
		return nil, fmt.Errorf("missing user id in user info response")
	}
	if info.Email == "" {
		return nil, fmt.Errorf("missing email in user info response")
	}

	return &ExternalUser{
		Provider:   oauthProviderName,
		ExternalID: externalID,
		Email:      info.Email,
		Name:       info.Name,
	}, nil
}
