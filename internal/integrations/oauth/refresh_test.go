package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aurix/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRefresher(t *testing.T, googleURL, intuitURL string) *Refresher {
	t.Helper()
	return NewRefresher(
		ClientCredentials{ClientID: "gid", ClientSecret: "gsecret"},
		ClientCredentials{ClientID: "iid", ClientSecret: "isecret"},
		WithGoogleTokenURL(googleURL),
		WithIntuitTokenURL(intuitURL),
		WithNow(func() time.Time { return fixedNow }),
	)
}

func TestRefresh_Google(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("Unexpected grant_type %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "rt_old" {
			t.Errorf("Unexpected refresh_token %q", r.PostForm.Get("refresh_token"))
		}
		if r.PostForm.Get("client_id") != "gid" || r.PostForm.Get("client_secret") != "gsecret" {
			t.Errorf("Unexpected client credentials")
		}
		fmt.Fprint(w, `{"access_token":"at_new","expires_in":3600,"token_type":"Bearer","scope":"spreadsheets.readonly"}`)
	}))
	defer server.Close()

	refresher := testRefresher(t, server.URL, "")
	ds := &domain.DataSource{ID: "ds1", Kind: domain.SourceKindSheets}
	token := &domain.OAuthToken{
		ID:           "tok1",
		DataSourceID: "ds1",
		AccessToken:  "at_old",
		RefreshToken: "rt_old",
		ExpiresAt:    fixedNow.Add(-time.Hour),
	}

	refreshed, err := refresher.Refresh(context.Background(), ds, token)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if refreshed.AccessToken != "at_new" {
		t.Errorf("Unexpected access token %q", refreshed.AccessToken)
	}
	// Google omits the refresh token on renewal; the stored one is kept.
	if refreshed.RefreshToken != "rt_old" {
		t.Errorf("Expected stored refresh token kept, got %q", refreshed.RefreshToken)
	}
	if !refreshed.ExpiresAt.Equal(fixedNow.Add(time.Hour)) {
		t.Errorf("Unexpected expiry %s", refreshed.ExpiresAt)
	}
	if refreshed.ID != "tok1" || refreshed.DataSourceID != "ds1" {
		t.Errorf("Identity fields not preserved: %+v", refreshed)
	}
}

func TestRefresh_Intuit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "iid" || pass != "isecret" {
			t.Errorf("Expected basic auth with app credentials")
		}
		fmt.Fprint(w, `{"access_token":"at_new","refresh_token":"rt_new","expires_in":3600,"token_type":"bearer"}`)
	}))
	defer server.Close()

	refresher := testRefresher(t, "", server.URL)
	ds := &domain.DataSource{ID: "ds1", Kind: domain.SourceKindQuickBooks}
	token := &domain.OAuthToken{RefreshToken: "rt_old"}

	refreshed, err := refresher.Refresh(context.Background(), ds, token)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.AccessToken != "at_new" || refreshed.RefreshToken != "rt_new" {
		t.Errorf("Unexpected tokens: %q %q", refreshed.AccessToken, refreshed.RefreshToken)
	}
}

func TestRefresh_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
	}))
	defer server.Close()

	refresher := testRefresher(t, server.URL, "")
	ds := &domain.DataSource{ID: "ds1", Kind: domain.SourceKindSheets}
	_, err := refresher.Refresh(context.Background(), ds, &domain.OAuthToken{RefreshToken: "rt_revoked"})
	if err == nil {
		t.Fatal("Expected invalid_grant error")
	}
}

func TestRefresh_UnsupportedKind(t *testing.T) {
	refresher := testRefresher(t, "", "")
	ds := &domain.DataSource{ID: "ds1", Kind: domain.SourceKindStripe}
	_, err := refresher.Refresh(context.Background(), ds, &domain.OAuthToken{RefreshToken: "rt"})
	if err == nil {
		t.Fatal("Expected error for kind without refresh support")
	}
}

func TestRefresh_MissingRefreshToken(t *testing.T) {
	refresher := testRefresher(t, "", "")
	ds := &domain.DataSource{ID: "ds1", Kind: domain.SourceKindSheets}
	_, err := refresher.Refresh(context.Background(), ds, &domain.OAuthToken{})
	if err == nil {
		t.Fatal("Expected error when no refresh token is stored")
	}
}
