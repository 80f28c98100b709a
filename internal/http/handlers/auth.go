package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/arena2036-x/emc/internal/session"
)

const (
	sessionKeyTokens   = "auth_tokens"
	sessionKeyState    = "auth_state"
	sessionKeyVerifier = "auth_verifier"
	sessionKeyNext     = "auth_next"
)

// HandleLogin starts a provider login. One state and PKCE verifier per
// attempt; both live in the session until the callback consumes them.
func (h *Handlers) HandleLogin(c *echo.Context) error {
	if h.Cfg.AuthDisabled || h.Auth == nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	ctx := c.Request().Context()
	state := uuid.NewString()
	verifier := session.GenerateVerifier()

	h.Sessions.Put(ctx, sessionKeyState, state)
	h.Sessions.Put(ctx, sessionKeyVerifier, verifier)
	if next := sanitizeNext(c.QueryParam("next")); next != "" {
		h.Sessions.Put(ctx, sessionKeyNext, next)
	}

	return c.Redirect(http.StatusSeeOther, h.Auth.LoginURL(state, verifier))
}

// HandleCallback finishes the login: state check, code exchange, session
// rotation. The provider's error responses surface as 401.
func (h *Handlers) HandleCallback(c *echo.Context) error {
	if h.Sessions == nil || h.Auth == nil {
		return errors.New("auth sessions not configured")
	}
	ctx := c.Request().Context()

	if provErr := c.QueryParam("error"); provErr != "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "login refused: " + provErr})
	}

	state := h.Sessions.PopString(ctx, sessionKeyState)
	verifier := h.Sessions.PopString(ctx, sessionKeyVerifier)
	if state == "" || verifier == "" || c.QueryParam("state") != state {
		return BadRequest(c, "login state mismatch, start over at /auth/login")
	}

	tokens, err := h.Auth.Exchange(ctx, c.QueryParam("code"), verifier)
	if err != nil {
		return h.RespondError(c, err)
	}

	if err := h.Sessions.RenewToken(ctx); err != nil {
		return err
	}
	if err := h.putTokens(c, tokens); err != nil {
		return err
	}

	next := h.Sessions.PopString(ctx, sessionKeyNext)
	if next == "" {
		next = "/"
	}
	return c.Redirect(http.StatusSeeOther, next)
}

// HandleLogout drops the session.
func (h *Handlers) HandleLogout(c *echo.Context) error {
	if h.Sessions != nil {
		if err := h.Sessions.Destroy(c.Request().Context()); err != nil {
			return err
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSession reports who is signed in.
func (h *Handlers) HandleSession(c *echo.Context) error {
	if h.Cfg.AuthDisabled || h.Auth == nil {
		return Respond(c, http.StatusOK, map[string]any{"authenticated": true, "username": "anonymous"})
	}
	tokens, ok := h.currentTokens(c)
	if !ok {
		return Respond(c, http.StatusOK, map[string]any{"authenticated": false})
	}
	return Respond(c, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      tokens.Username,
		"email":         tokens.Email,
	})
}

// RequireSession guards a route group. Tokens inside the refresh window are
// refreshed in place; a failed refresh drops the session and forces a new
// login.
func (h *Handlers) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if h.Cfg.AuthDisabled || h.Auth == nil {
			return next(c)
		}
		if h.Sessions == nil {
			return errors.New("auth sessions not configured")
		}

		tokens, ok := h.currentTokens(c)
		if !ok {
			return h.unauthorized(c)
		}

		fresh, refreshed, err := h.Auth.Refresh(c.Request().Context(), tokens)
		if err != nil {
			_ = h.Sessions.Destroy(c.Request().Context())
			return h.unauthorized(c)
		}
		if refreshed {
			if err := h.putTokens(c, fresh); err != nil {
				return err
			}
		}

		c.Set(ContextKeyUser, fresh.Username)
		return next(c)
	}
}

func (h *Handlers) unauthorized(c *echo.Context) error {
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unauthorized",
			"login": "/auth/login",
		})
	}
	location := "/auth/login"
	if c.Request().Method == http.MethodGet {
		if next := sanitizeNext(c.Request().URL.RequestURI()); next != "" {
			location = "/auth/login?next=" + url.QueryEscape(next)
		}
	}
	return c.Redirect(http.StatusSeeOther, location)
}

func (h *Handlers) currentTokens(c *echo.Context) (session.TokenSet, bool) {
	raw := h.Sessions.GetString(c.Request().Context(), sessionKeyTokens)
	if raw == "" {
		return session.TokenSet{}, false
	}
	var tokens session.TokenSet
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return session.TokenSet{}, false
	}
	if tokens.AccessToken == "" {
		return session.TokenSet{}, false
	}
	return tokens, true
}

func (h *Handlers) putTokens(c *echo.Context, tokens session.TokenSet) error {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	h.Sessions.Put(c.Request().Context(), sessionKeyTokens, string(raw))
	return nil
}

func sanitizeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || len(next) > 2048 {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}

	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || u.Scheme != "" {
		return ""
	}
	if u.Path == "/auth/login" || strings.HasPrefix(u.Path, "/auth/") {
		return ""
	}
	if strings.Contains(next, "\\") {
		return ""
	}
	return next
}
