// Package httpapp wires the console's HTTP surface: routing, sessions, and
// the error boundary.
package httpapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/arena2036-x/emc/internal/config"
	"github.com/arena2036-x/emc/internal/http/handlers"
	"github.com/arena2036-x/emc/internal/session"
	"github.com/arena2036-x/emc/internal/store"
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h   *handlers.Handlers
	e   *echo.Echo
	srv *http.Server
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(cfg config.Config, st *store.Store, gw handlers.Gateway, sessions *scs.SessionManager, auth *session.Authenticator) (*EchoServer, error) {
	h := &handlers.Handlers{Cfg: cfg, Store: st, Gateway: gw, Sessions: sessions, Auth: auth}
	es := &EchoServer{h: h, e: echo.New()}
	es.e.HTTPErrorHandler = es.httpErrorHandler
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.Use(requestID)
	if es.h.Sessions != nil {
		es.e.Use(echo.WrapMiddleware(es.h.Sessions.LoadAndSave))
	}

	es.e.GET("/healthz", es.h.HandleHealthz)
	es.e.GET("/auth/login", es.h.HandleLogin)
	es.e.GET("/auth/callback", es.h.HandleCallback)
	es.e.POST("/auth/logout", es.h.HandleLogout)

	api := es.e.Group("/api")
	api.Use(es.h.RequireSession)
	api.GET("/session", es.h.HandleSession)
	api.GET("/dashboard", es.h.HandleDashboard)
	api.GET("/activity", es.h.HandleActivity)
	api.GET("/health", es.h.HandleHealth)
	api.GET("/dataspace", es.h.HandleDataspace)
	api.GET("/connectors", es.h.HandleConnectors)
	api.POST("/refresh", es.h.HandleConnectorsRefresh)
	api.POST("/connectors/refresh", es.h.HandleConnectorsRefresh)
	api.GET("/connectors/:id", es.h.HandleConnectorShow)
	api.GET("/connectors/:id/yaml", es.h.HandleConnectorYAML)
	api.PUT("/connectors/:id", es.h.HandleConnectorUpdate)
	api.PATCH("/connectors/:id", es.h.HandleConnectorUpdate)
	api.DELETE("/connectors/:id", es.h.HandleConnectorDelete)
	api.POST("/wizard", es.h.HandleWizardOpen)
	api.GET("/wizard", es.h.HandleWizardGet)
	api.PATCH("/wizard", es.h.HandleWizardPatch)
	api.POST("/wizard/next", es.h.HandleWizardNext)
	api.POST("/wizard/back", es.h.HandleWizardBack)
	api.POST("/wizard/submodel/deploy", es.h.HandleWizardSubmodelDeploy)
	api.POST("/wizard/submodel/connect", es.h.HandleWizardSubmodelConnect)
	api.POST("/wizard/deploy", es.h.HandleWizardDeploy)
	api.DELETE("/wizard", es.h.HandleWizardCancel)
}

func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	if r, _ := echo.UnwrapResponse(c.Response()); r != nil && r.Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Code {
		case http.StatusNotFound:
			_ = c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		case http.StatusMethodNotAllowed:
			_ = c.JSON(http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		default:
			_ = c.JSON(httpErr.Code, map[string]string{"error": http.StatusText(httpErr.Code)})
		}
		return
	}

	requestID, _ := c.Get(handlers.ContextKeyRequestID).(string)
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, handlers.InternalErrorCode)
	_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": msg})
}

// Start starts the HTTP server.
func (es *EchoServer) Start(addr string) error {
	return es.StartServer(&http.Server{Addr: addr})
}

// StartServer starts the HTTP server with a custom http.Server.
func (es *EchoServer) StartServer(server *http.Server) error {
	server.Handler = es.e
	es.srv = server
	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (es *EchoServer) Shutdown(ctx context.Context) error {
	if es.srv == nil {
		return nil
	}
	return es.srv.Shutdown(ctx)
}
