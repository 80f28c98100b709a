package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/spf13/cobra"

	"github.com/arena2036-x/emc/internal/config"
	"github.com/arena2036-x/emc/internal/edc"
	httpapp "github.com/arena2036-x/emc/internal/http"
	"github.com/arena2036-x/emc/internal/logging"
	"github.com/arena2036-x/emc/internal/metrics"
	"github.com/arena2036-x/emc/internal/session"
	"github.com/arena2036-x/emc/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console HTTP server and the snapshot poll loop.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: "serve"})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}

	st := store.New(client, cfg.ActivityLimit, logger)
	go st.Run(ctx, cfg.PollInterval)

	metricsErr := metrics.ListenAndServe(ctx, cfg.MetricsAddr, logger)

	sessions := scs.New()
	sessions.Lifetime = 12 * time.Hour
	sessions.Cookie.Secure = cfg.AuthCookieSecure
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	var auth *session.Authenticator
	if !cfg.AuthDisabled {
		redirect := strings.TrimRight(cfg.PublicURL, "/") + "/auth/callback"
		auth, err = session.New(ctx, cfg, redirect)
		if err != nil {
			return err
		}
	}

	srv, err := httpapp.NewEchoServer(cfg, st, client, sessions, auth)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- srv.StartServer(httpServer)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-metricsErr:
		return err
	}
}

// buildClient assembles the backend client. Service credentials are the API
// key when configured, otherwise a client-credentials token source against
// the identity provider.
func buildClient(ctx context.Context, cfg config.Config) (*edc.Client, error) {
	rev, err := edc.ParseRevision(cfg.BackendRevision)
	if err != nil {
		return nil, err
	}
	client, err := edc.New(cfg.BackendURL, cfg.APIKey, rev)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" && cfg.KeycloakURL != "" {
		tokens, err := session.ClientCredentials(cfg)
		if err != nil {
			return nil, err
		}
		client.Tokens = tokens
	}
	return client, nil
}
