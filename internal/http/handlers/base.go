// Package handlers contains HTTP handler logic split by domain.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"

	"github.com/arena2036-x/emc/internal/config"
	"github.com/arena2036-x/emc/internal/edc"
	"github.com/arena2036-x/emc/internal/session"
	"github.com/arena2036-x/emc/internal/store"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// ContextKeyUser stores the display name of the signed-in user.
	ContextKeyUser = "auth_user"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// Gateway is the slice of the backend client the handlers call directly,
// bypassing the snapshot store.
type Gateway interface {
	GetConnector(ctx context.Context, id int64) (edc.Connector, error)
	Health(ctx context.Context) (edc.HealthStatus, error)
	EDCHealth(ctx context.Context) (edc.HealthStatus, error)
	GetDataspace(ctx context.Context) (edc.DataspaceSettings, error)
	DeploySubmodel(ctx context.Context, req edc.SubmodelDeployRequest) (edc.SubmodelStatus, error)
	ConnectSubmodel(ctx context.Context, req edc.SubmodelConnectRequest) (edc.SubmodelStatus, error)
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg      config.Config
	Store    *store.Store
	Gateway  Gateway
	Sessions *scs.SessionManager
	Auth     *session.Authenticator
}

// HandleHealthz reports process liveness. It says nothing about the
// management backend; that is the dashboard's health widget.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Respond wraps a successful payload in the response envelope.
func Respond(c *echo.Context, status int, payload any) error {
	return c.JSON(status, map[string]any{"data": payload})
}

// RespondError maps a backend error onto the client-facing response.
// Anything outside the known taxonomy bubbles up to the server's generic
// error handler.
func (h *Handlers) RespondError(c *echo.Context, err error) error {
	var authErr *edc.AuthError
	if errors.As(err, &authErr) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authentication with the management backend failed, sign in again",
			"login": "/auth/login",
		})
	}

	var httpErr *edc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == http.StatusNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		msg := httpErr.Message
		if msg == "" {
			msg = fmt.Sprintf("backend returned status %d", httpErr.Status)
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": msg})
	}

	var netErr *edc.NetworkError
	if errors.As(err, &netErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "the management backend is unreachable"})
	}

	return err
}

// BadRequest returns a 400 with the given message.
func BadRequest(c *echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

// PathID parses the :id route parameter.
func PathID(c *echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid connector id %q", c.Param("id"))
	}
	return id, nil
}
