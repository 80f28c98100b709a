// Package session owns the console's identity lifecycle: browser login via
// the dataspace identity provider (authorization code + PKCE), server-side
// storage of the issued token set, and proactive refresh before expiry.
//
// The token never lives in ambient global state; it is carried in an
// explicit TokenSet passed from the HTTP session to the backend client.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arena2036-x/emc/internal/config"
	"github.com/arena2036-x/emc/internal/edc"
	"github.com/arena2036-x/emc/internal/metrics"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// RefreshWindow is how long before expiry a token is refreshed proactively.
const RefreshWindow = 30 * time.Second

// TokenSet is the session-scoped identity state. It serializes to JSON for
// storage in the server-side session store.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
}

// NeedsRefresh reports whether the access token is inside the refresh window.
func (t TokenSet) NeedsRefresh(now time.Time) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return now.After(t.Expiry.Add(-RefreshWindow))
}

// Authenticator performs the redirect-based login flow against the
// OpenID-Connect provider and refreshes issued tokens.
type Authenticator struct {
	provider *oidc.Provider
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// New discovers the realm's OIDC endpoints and prepares the code flow.
// redirectURL is the console's /auth/callback absolute URL.
func New(ctx context.Context, cfg config.Config, redirectURL string) (*Authenticator, error) {
	issuer, err := IssuerURL(cfg)
	if err != nil {
		return nil, err
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &Authenticator{
		provider: provider,
		oauth: oauth2.Config{
			ClientID:     cfg.KeycloakClientID,
			ClientSecret: cfg.KeycloakClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.KeycloakClientID}),
	}, nil
}

// IssuerURL builds the realm issuer from configuration.
func IssuerURL(cfg config.Config) (string, error) {
	if cfg.KeycloakURL == "" {
		return "", errors.New("KEYCLOAK_URL is required for authentication")
	}
	return cfg.KeycloakURL + "/realms/" + cfg.KeycloakRealm, nil
}

// GenerateVerifier creates a fresh PKCE code verifier for one login attempt.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// LoginURL is the provider redirect target for one login attempt. state and
// pkceVerifier must be stashed in the session for the callback.
func (a *Authenticator) LoginURL(state, pkceVerifier string) string {
	return a.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(pkceVerifier))
}

// Exchange redeems the authorization code, verifies the ID token, and
// returns the session token set.
func (a *Authenticator) Exchange(ctx context.Context, code, pkceVerifier string) (TokenSet, error) {
	tok, err := a.oauth.Exchange(ctx, code, oauth2.VerifierOption(pkceVerifier))
	if err != nil {
		return TokenSet{}, &edc.AuthError{Reason: "code exchange failed", Err: err}
	}

	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		return TokenSet{}, &edc.AuthError{Reason: "provider response is missing the id token"}
	}
	idToken, err := a.verifier.Verify(ctx, rawID)
	if err != nil {
		return TokenSet{}, &edc.AuthError{Reason: "id token verification failed", Err: err}
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return TokenSet{}, &edc.AuthError{Reason: "id token claims", Err: err}
	}

	username := strings.TrimSpace(claims.PreferredUsername)
	if username == "" {
		username = "User"
	}
	return TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Username:     username,
		Email:        claims.Email,
	}, nil
}

// Refresh returns a fresh token set when the current one is inside the
// refresh window. The second result reports whether a refresh happened.
// A failed refresh is an AuthError: the caller must drop the session and
// force re-login.
func (a *Authenticator) Refresh(ctx context.Context, ts TokenSet) (TokenSet, bool, error) {
	if !ts.NeedsRefresh(time.Now()) {
		return ts, false, nil
	}
	if ts.RefreshToken == "" {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return ts, false, &edc.AuthError{Reason: "access token expired and no refresh token is available"}
	}

	src := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: ts.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return ts, false, &edc.AuthError{Reason: "token refresh failed", Err: err}
	}
	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()

	ts.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		ts.RefreshToken = tok.RefreshToken
	}
	ts.Expiry = tok.Expiry
	return ts, true, nil
}

// TokenSource adapts a token set to the backend client. onUpdate is invoked
// after a successful proactive refresh so the session copy stays current.
func (a *Authenticator) TokenSource(ts TokenSet, onUpdate func(TokenSet)) edc.TokenSource {
	return &setSource{auth: a, set: ts, onUpdate: onUpdate}
}

type setSource struct {
	auth     *Authenticator
	set      TokenSet
	onUpdate func(TokenSet)
}

func (s *setSource) Token(ctx context.Context) (string, error) {
	fresh, refreshed, err := s.auth.Refresh(ctx, s.set)
	if err != nil {
		return "", err
	}
	if refreshed {
		s.set = fresh
		if s.onUpdate != nil {
			s.onUpdate(fresh)
		}
	}
	return s.set.AccessToken, nil
}

// ClientCredentials builds a service-account token source for operation
// without a browser session (CLI commands, headless mode).
func ClientCredentials(cfg config.Config) (edc.TokenSource, error) {
	issuer, err := IssuerURL(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.KeycloakClientSecret == "" {
		return nil, errors.New("KEYCLOAK_CLIENT_SECRET is required for service authentication")
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.KeycloakClientID,
		ClientSecret: cfg.KeycloakClientSecret,
		TokenURL:     issuer + "/protocol/openid-connect/token",
	}
	return &ccSource{cfg: cc}, nil
}

type ccSource struct {
	cfg clientcredentials.Config
}

func (s *ccSource) Token(ctx context.Context) (string, error) {
	tok, err := s.cfg.TokenSource(ctx).Token()
	if err != nil {
		return "", &edc.AuthError{Reason: "client credentials grant failed", Err: err}
	}
	return tok.AccessToken, nil
}
