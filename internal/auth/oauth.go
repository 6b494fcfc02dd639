package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mailmind/backend/internal/config"
	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/store"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

const (
	googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	graphMeURL        = "https://graph.microsoft.com/v1.0/me"

	profileFetchTimeout = 10 * time.Second
)

// OAuthFlow holds the per-provider OAuth2 configuration. The consent screen
// redirect and callback exchange live here; everything downstream only sees
// the resulting store.ProviderLogin.
type OAuthFlow struct {
	configs map[models.ProviderKind]*oauth2.Config
}

func NewOAuthFlow(cfg *config.Config) *OAuthFlow {
	return &OAuthFlow{
		configs: map[models.ProviderKind]*oauth2.Config{
			models.ProviderGoogle: {
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.GoogleRedirectURL,
				Scopes: []string{
					"profile",
					"email",
					"https://www.googleapis.com/auth/gmail.readonly",
				},
				Endpoint: google.Endpoint,
			},
			models.ProviderMicrosoft: {
				ClientID:     cfg.MicrosoftClientID,
				ClientSecret: cfg.MicrosoftClientSecret,
				RedirectURL:  cfg.MicrosoftRedirectURL,
				Scopes: []string{
					"openid",
					"profile",
					"email",
					"offline_access",
					"User.Read",
					"Mail.Read",
				},
				Endpoint: microsoft.AzureADEndpoint("common"),
			},
		},
	}
}

// Config returns the oauth2 configuration for the given provider.
func (f *OAuthFlow) Config(kind models.ProviderKind) (*oauth2.Config, bool) {
	cfg, ok := f.configs[kind]
	return cfg, ok
}

// AuthCodeURL builds the consent screen URL. Offline access is requested so
// the provider hands back a refresh token on first consent.
func (f *OAuthFlow) AuthCodeURL(kind models.ProviderKind, state string) (string, error) {
	cfg, ok := f.configs[kind]
	if !ok {
		return "", fmt.Errorf("unknown provider kind %q", kind)
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades the callback code for a token pair and fetches the
// provider profile, producing the login record the credential store consumes.
func (f *OAuthFlow) Exchange(ctx context.Context, kind models.ProviderKind, code string) (store.ProviderLogin, error) {
	cfg, ok := f.configs[kind]
	if !ok {
		return store.ProviderLogin{}, fmt.Errorf("unknown provider kind %q", kind)
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return store.ProviderLogin{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	login, err := f.fetchProfile(ctx, kind, cfg, token)
	if err != nil {
		return store.ProviderLogin{}, err
	}

	login.AccessToken = token.AccessToken
	login.RefreshToken = token.RefreshToken
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		login.ExpiresAt = &expiry
	}

	return login, nil
}

func (f *OAuthFlow) fetchProfile(ctx context.Context, kind models.ProviderKind, cfg *oauth2.Config, token *oauth2.Token) (store.ProviderLogin, error) {
	ctx, cancel := context.WithTimeout(ctx, profileFetchTimeout)
	defer cancel()

	client := cfg.Client(ctx, token)

	switch kind {
	case models.ProviderGoogle:
		return fetchGoogleProfile(ctx, client)
	case models.ProviderMicrosoft:
		return fetchMicrosoftProfile(ctx, client)
	default:
		return store.ProviderLogin{}, fmt.Errorf("unknown provider kind %q", kind)
	}
}

func fetchGoogleProfile(ctx context.Context, client *http.Client) (store.ProviderLogin, error) {
	var profile struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}

	if err := getJSON(ctx, client, googleUserinfoURL, &profile); err != nil {
		return store.ProviderLogin{}, fmt.Errorf("failed to fetch Google profile: %w", err)
	}
	if profile.Email == "" {
		return store.ProviderLogin{}, fmt.Errorf("google profile carries no email")
	}

	return store.ProviderLogin{
		Kind:           models.ProviderGoogle,
		ProviderUserID: profile.ID,
		Email:          profile.Email,
		DisplayName:    profile.Name,
	}, nil
}

func fetchMicrosoftProfile(ctx context.Context, client *http.Client) (store.ProviderLogin, error) {
	var profile struct {
		ID                string `json:"id"`
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}

	if err := getJSON(ctx, client, graphMeURL, &profile); err != nil {
		return store.ProviderLogin{}, fmt.Errorf("failed to fetch Microsoft profile: %w", err)
	}

	// Personal accounts often carry no "mail"; the UPN is the address then.
	email := profile.Mail
	if email == "" {
		email = profile.UserPrincipalName
	}
	if email == "" {
		return store.ProviderLogin{}, fmt.Errorf("microsoft profile carries no email")
	}

	return store.ProviderLogin{
		Kind:           models.ProviderMicrosoft,
		ProviderUserID: profile.ID,
		Email:          email,
		DisplayName:    profile.DisplayName,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
