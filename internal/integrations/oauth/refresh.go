// Package oauth refreshes provider access tokens using stored refresh
// tokens.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aurix/internal/domain"
	"aurix/internal/ingestion"
	"aurix/internal/integrations/httpretry"
)

// Provider token endpoints.
const (
	GoogleTokenURL = "https://oauth2.googleapis.com/token"
	IntuitTokenURL = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
)

// ClientCredentials identifies an OAuth application with a provider.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// Refresher exchanges expired access tokens for fresh ones per provider.
// Implements ingestion.TokenRefresher.
type Refresher struct {
	google ClientCredentials
	intuit ClientCredentials

	googleTokenURL string
	intuitTokenURL string

	rc  *httpretry.Client
	now func() time.Time
}

// RefresherOption configures Refresher.
type RefresherOption func(*Refresher)

// WithGoogleTokenURL overrides the Google token endpoint, mainly for tests.
func WithGoogleTokenURL(u string) RefresherOption {
	return func(r *Refresher) {
		r.googleTokenURL = u
	}
}

// WithIntuitTokenURL overrides the Intuit token endpoint, mainly for tests.
func WithIntuitTokenURL(u string) RefresherOption {
	return func(r *Refresher) {
		r.intuitTokenURL = u
	}
}

// WithRetryOptions configures the underlying HTTP executor.
func WithRetryOptions(opts ...httpretry.Option) RefresherOption {
	return func(r *Refresher) {
		r.rc = httpretry.New(opts...)
	}
}

// WithNow overrides the clock used for expiry computation, for tests.
func WithNow(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		r.now = now
	}
}

// NewRefresher creates a token refresher with per-provider app credentials.
func NewRefresher(google, intuit ClientCredentials, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		google:         google,
		intuit:         intuit,
		googleTokenURL: GoogleTokenURL,
		intuitTokenURL: IntuitTokenURL,
		rc:             httpretry.New(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ingestion.TokenRefresher = (*Refresher)(nil)

// tokenResponse is the standard OAuth token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

type tokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Refresh exchanges the data source's refresh token for a new access
// token. The returned token keeps the stored identity fields; the refresh
// token is carried over when the provider omits it from the response.
func (r *Refresher) Refresh(ctx context.Context, ds *domain.DataSource, token *domain.OAuthToken) (*domain.OAuthToken, error) {
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token stored for datasource %s", ds.ID)
	}

	var resp *tokenResponse
	var err error

	switch ds.Kind {
	case domain.SourceKindSheets:
		resp, err = r.refreshGoogle(ctx, token.RefreshToken)
	case domain.SourceKindQuickBooks:
		resp, err = r.refreshIntuit(ctx, token.RefreshToken)
	default:
		return nil, fmt.Errorf("datasource kind %q does not support token refresh", ds.Kind)
	}
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()

	refreshed := *token
	refreshed.AccessToken = resp.AccessToken
	refreshed.TokenType = resp.TokenType
	refreshed.UpdatedAt = now
	if resp.RefreshToken != "" {
		refreshed.RefreshToken = resp.RefreshToken
	}
	if resp.Scope != "" {
		refreshed.Scope = resp.Scope
	}
	if resp.ExpiresIn > 0 {
		refreshed.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return &refreshed, nil
}

func (r *Refresher) refreshGoogle(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", r.google.ClientID)
	form.Set("client_secret", r.google.ClientSecret)

	return r.postForm(ctx, r.googleTokenURL, form, func(req *http.Request) {})
}

func (r *Refresher) refreshIntuit(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return r.postForm(ctx, r.intuitTokenURL, form, func(req *http.Request) {
		req.SetBasicAuth(r.intuit.ClientID, r.intuit.ClientSecret)
	})
}

func (r *Refresher) postForm(ctx context.Context, endpoint string, form url.Values, auth func(*http.Request)) (*tokenResponse, error) {
	body, status, err := r.rc.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		auth(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		var tokenErr tokenError
		if json.Unmarshal(body, &tokenErr) == nil && tokenErr.Error != "" {
			return nil, fmt.Errorf("token refresh failed (%s): %s", tokenErr.Error, tokenErr.ErrorDescription)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", status, string(body))
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal token response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &resp, nil
}
