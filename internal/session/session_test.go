package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/arena2036-x/emc/internal/config"
	"github.com/arena2036-x/emc/internal/edc"
	"golang.org/x/oauth2"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func oauthCtx(rt roundTripperFunc) context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: rt})
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"zero expiry never refreshes", time.Time{}, false},
		{"far from expiry", now.Add(5 * time.Minute), false},
		{"inside the window", now.Add(10 * time.Second), true},
		{"already expired", now.Add(-time.Minute), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := TokenSet{Expiry: tc.expiry}
			if got := ts.NeedsRefresh(now); got != tc.want {
				t.Fatalf("NeedsRefresh() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRefreshSkippedWhenFresh(t *testing.T) {
	a := &Authenticator{}
	in := TokenSet{AccessToken: "current", Expiry: time.Now().Add(time.Hour)}

	out, refreshed, err := a.Refresh(context.Background(), in)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed {
		t.Fatal("token outside the window should not be refreshed")
	}
	if out.AccessToken != "current" {
		t.Fatalf("token set changed: %+v", out)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	a := &Authenticator{}
	in := TokenSet{AccessToken: "stale", Expiry: time.Now().Add(-time.Minute)}

	_, _, err := a.Refresh(context.Background(), in)
	if !edc.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	a := &Authenticator{oauth: oauth2.Config{
		ClientID: "console",
		Endpoint: oauth2.Endpoint{TokenURL: "https://idp.example/token"},
	}}
	ctx := oauthCtx(func(r *http.Request) (*http.Response, error) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Fatalf("grant_type = %q", got)
		}
		if got := r.Form.Get("refresh_token"); got != "old-refresh" {
			t.Fatalf("refresh_token = %q", got)
		}
		return jsonResponse(http.StatusOK, `{"access_token":"fresh","refresh_token":"new-refresh","token_type":"Bearer","expires_in":300}`), nil
	})

	in := TokenSet{AccessToken: "stale", RefreshToken: "old-refresh", Expiry: time.Now().Add(-time.Minute), Username: "alice"}
	out, refreshed, err := a.Refresh(ctx, in)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !refreshed {
		t.Fatal("expected a refresh to happen")
	}
	if out.AccessToken != "fresh" || out.RefreshToken != "new-refresh" {
		t.Fatalf("unexpected token set: %+v", out)
	}
	if out.Username != "alice" {
		t.Fatal("identity claims must survive a refresh")
	}
	if !out.Expiry.After(time.Now()) {
		t.Fatalf("expiry not advanced: %v", out.Expiry)
	}
}

func TestRefreshFailureIsAuthError(t *testing.T) {
	a := &Authenticator{oauth: oauth2.Config{
		Endpoint: oauth2.Endpoint{TokenURL: "https://idp.example/token"},
	}}
	ctx := oauthCtx(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"error":"invalid_grant"}`), nil
	})

	in := TokenSet{RefreshToken: "revoked", Expiry: time.Now().Add(-time.Minute)}
	_, _, err := a.Refresh(ctx, in)
	if !edc.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestTokenSourceReportsRefresh(t *testing.T) {
	a := &Authenticator{oauth: oauth2.Config{
		Endpoint: oauth2.Endpoint{TokenURL: "https://idp.example/token"},
	}}
	var updated TokenSet
	src := a.TokenSource(
		TokenSet{AccessToken: "stale", RefreshToken: "r1", Expiry: time.Now().Add(-time.Minute)},
		func(ts TokenSet) { updated = ts },
	)

	ctx := oauthCtx(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"access_token":"fresh","token_type":"Bearer","expires_in":300}`), nil
	})
	got, err := src.Token(ctx)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "fresh" {
		t.Fatalf("access token = %q", got)
	}
	if updated.AccessToken != "fresh" {
		t.Fatal("onUpdate was not invoked with the refreshed set")
	}
	if updated.RefreshToken != "r1" {
		t.Fatal("refresh token must be retained when the provider omits it")
	}
}

func TestIssuerURL(t *testing.T) {
	cfg := config.Config{KeycloakURL: "https://auth.example", KeycloakRealm: "CX-Central"}
	got, err := IssuerURL(cfg)
	if err != nil {
		t.Fatalf("IssuerURL: %v", err)
	}
	if got != "https://auth.example/realms/CX-Central" {
		t.Fatalf("issuer = %q", got)
	}

	if _, err := IssuerURL(config.Config{}); err == nil {
		t.Fatal("expected an error without KEYCLOAK_URL")
	}
}

func TestClientCredentialsRequiresSecret(t *testing.T) {
	_, err := ClientCredentials(config.Config{KeycloakURL: "https://auth.example", KeycloakRealm: "r", KeycloakClientID: "c"})
	if err == nil {
		t.Fatal("expected an error without a client secret")
	}
}

func TestClientCredentialsFailureIsAuthError(t *testing.T) {
	src, err := ClientCredentials(config.Config{
		KeycloakURL:          "https://auth.example",
		KeycloakRealm:        "r",
		KeycloakClientID:     "c",
		KeycloakClientSecret: "s",
	})
	if err != nil {
		t.Fatalf("ClientCredentials: %v", err)
	}

	ctx := oauthCtx(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("idp unreachable")
	})
	if _, err := src.Token(ctx); !edc.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}
