package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arena2036-x/emc/internal/edc"
)

// AuthMode selects how the console authenticates against a wizard
// sub-resource (submodel service or digital twin registry).
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apiKey"
	AuthBearer AuthMode = "bearer"
	AuthOAuth2 AuthMode = "oauth2"
)

// ParseAuthMode validates a mode string from form input.
func ParseAuthMode(v string) (AuthMode, error) {
	switch strings.TrimSpace(v) {
	case "", string(AuthNone):
		return AuthNone, nil
	case string(AuthAPIKey), "apikey", "api_key":
		return AuthAPIKey, nil
	case string(AuthBearer):
		return AuthBearer, nil
	case string(AuthOAuth2):
		return AuthOAuth2, nil
	default:
		return "", fmt.Errorf("unknown auth mode %q", v)
	}
}

// Credentials carries the fields for the selected auth mode. Only the fields
// matching Mode are consulted; the rest are ignored on submit.
type Credentials struct {
	Mode         AuthMode `json:"mode"`
	APIKey       string   `json:"api_key,omitempty"`
	Token        string   `json:"token,omitempty"`
	TokenURL     string   `json:"token_url,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
}

// Validate checks that the fields required by the selected mode are present.
func (c Credentials) Validate() error {
	switch c.Mode {
	case "", AuthNone:
		return nil
	case AuthAPIKey:
		if strings.TrimSpace(c.APIKey) == "" {
			return errors.New("api key is required for apiKey auth")
		}
	case AuthBearer:
		if strings.TrimSpace(c.Token) == "" {
			return errors.New("token is required for bearer auth")
		}
	case AuthOAuth2:
		if strings.TrimSpace(c.TokenURL) == "" || strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
			return errors.New("token url, client id and client secret are required for oauth2 auth")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Mode)
	}
	return nil
}

// Set reports whether any credential field is populated.
func (c Credentials) Set() bool {
	return c.APIKey != "" || c.Token != "" || c.TokenURL != "" || c.ClientID != "" || c.ClientSecret != ""
}

// apply copies the selected mode and its fields into the wire sub-resource.
func (c Credentials) apply(sr *edc.SubResource) {
	mode := c.Mode
	if mode == "" {
		mode = AuthNone
	}
	sr.AuthMode = string(mode)
	switch mode {
	case AuthAPIKey:
		sr.APIKey = c.APIKey
		sr.Credentials = c.APIKey
	case AuthBearer:
		sr.Token = c.Token
		sr.Credentials = c.Token
	case AuthOAuth2:
		sr.TokenURL = c.TokenURL
		sr.ClientID = c.ClientID
		sr.ClientSecret = c.ClientSecret
	}
}
