package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr      = ":5000"
	defaultPollInterval  = 30 * time.Second
	defaultActivityLimit = 20
	defaultRevision      = "v1"
	defaultEDCDomain     = "arena2036-x.de"
	defaultRealm         = "CX-Central"
	defaultClientID      = "CX-EDC"
)

type Config struct {
	BackendURL      string
	APIKey          string
	BackendRevision string
	HTTPAddr        string
	MetricsAddr     string
	PublicURL       string

	PollInterval  time.Duration
	ActivityLimit int
	MaxConnectors int
	EDCDomain     string

	KeycloakURL          string
	KeycloakRealm        string
	KeycloakClientID     string
	KeycloakClientSecret string
	AuthDisabled         bool
	AuthCookieSecure     bool
}

type LoadOptions struct {
	RequireBackendURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireBackendURL: true})
}

func LoadOptionalBackend() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireBackendURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		BackendURL:           strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_URL")), "/"),
		APIKey:               os.Getenv("API_KEY"),
		BackendRevision:      strings.ToLower(strings.TrimSpace(getenvDefault("BACKEND_REVISION", defaultRevision))),
		HTTPAddr:             getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
		PublicURL:            strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_URL")), "/"),
		PollInterval:         defaultPollInterval,
		ActivityLimit:        getenvIntDefault("ACTIVITY_LIMIT", defaultActivityLimit),
		MaxConnectors:        getenvIntDefault("MAX_CONNECTORS", 0),
		EDCDomain:            getenvDefault("EDC_DOMAIN", defaultEDCDomain),
		KeycloakURL:          strings.TrimRight(strings.TrimSpace(os.Getenv("KEYCLOAK_URL")), "/"),
		KeycloakRealm:        getenvDefault("KEYCLOAK_REALM", defaultRealm),
		KeycloakClientID:     getenvDefault("KEYCLOAK_CLIENT_ID", defaultClientID),
		KeycloakClientSecret: os.Getenv("KEYCLOAK_CLIENT_SECRET"),
		AuthDisabled:         getenvBoolDefault("AUTH_DISABLED", false),
		AuthCookieSecure:     getenvBoolDefault("AUTH_COOKIE_SECURE", false),
	}

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}

	switch cfg.BackendRevision {
	case "legacy", "v1", "v2":
	default:
		return cfg, errors.New("BACKEND_REVISION must be one of: legacy, v1, v2")
	}

	if opts.RequireBackendURL && cfg.BackendURL == "" {
		return cfg, errors.New("BACKEND_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
