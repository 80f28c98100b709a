package edc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 1 << 20 // 1 MiB
)

// TokenSource supplies a bearer token for outgoing requests. Implementations
// are expected to refresh proactively; a failed acquisition is an auth
// failure, not a transport failure.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the EDC management backend. Every request carries the
// static API key header and, when a token source is set, a bearer token.
// The client performs no retries: a failed call surfaces to the caller once.
type Client struct {
	BaseURL  string
	APIKey   string
	Revision Revision
	Tokens   TokenSource
	HTTP     *http.Client
}

// New creates a backend client. baseURL must include the API prefix,
// e.g. "http://localhost:8001/api".
func New(baseURL, apiKey string, rev Revision) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("edc backend base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("edc backend base URL: %w", err)
	}
	if rev == "" {
		rev = RevisionV1
	}
	return &Client{
		BaseURL:  base,
		APIKey:   apiKey,
		Revision: rev,
		HTTP:     &http.Client{Timeout: defaultTimeout},
	}, nil
}

// ListConnectors fetches the full connector snapshot.
func (c *Client) ListConnectors(ctx context.Context) ([]Connector, error) {
	var out []Connector
	if err := c.do(ctx, http.MethodGet, "/connectors", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConnector fetches one connector by id.
func (c *Client) GetConnector(ctx context.Context, id int64) (Connector, error) {
	var out Connector
	err := c.do(ctx, http.MethodGet, "/connectors/"+strconv.FormatInt(id, 10), nil, nil, &out)
	return out, err
}

// CreateConnector provisions a new connector. The backend emits an activity
// log entry as a side effect.
func (c *Client) CreateConnector(ctx context.Context, req CreateConnectorRequest) (Connector, error) {
	var out Connector
	err := c.do(ctx, http.MethodPost, c.Revision.CreatePath(), nil, c.Revision.createBody(req), &out)
	return out, err
}

// UpdateConnector applies a partial update to a connector.
func (c *Client) UpdateConnector(ctx context.Context, id int64, req UpdateConnectorRequest) (Connector, error) {
	var out Connector
	err := c.do(ctx, http.MethodPut, "/connectors/"+strconv.FormatInt(id, 10), nil, req, &out)
	return out, err
}

// DeleteConnector removes a connector. The path key (id or name) follows the
// configured backend revision.
func (c *Client) DeleteConnector(ctx context.Context, ref ConnectorRef) error {
	key := c.Revision.DeleteKey(ref)
	return c.do(ctx, http.MethodDelete, "/connectors/"+url.PathEscape(key), nil, nil, nil)
}

// RecentActivity fetches the newest activity log entries, most recent first
// as ordered by the backend. The caller sees at most limit entries.
func (c *Client) RecentActivity(ctx context.Context, limit int) ([]ActivityLog, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []ActivityLog
	if err := c.do(ctx, http.MethodGet, c.Revision.ActivityPath(), q, nil, &out); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Health reports the management backend's own health.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out)
	if err == nil && !out.Healthy {
		out.Healthy = strings.EqualFold(out.Status, "RUNNING") || strings.EqualFold(out.Status, "healthy")
	}
	return out, err
}

// EDCHealth reports the health of the managed EDC deployment.
func (c *Client) EDCHealth(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.do(ctx, http.MethodGet, "/edc/health", nil, nil, &out)
	if err == nil && !out.Healthy {
		out.Healthy = strings.EqualFold(out.Status, "RUNNING") || strings.EqualFold(out.Status, "healthy")
	}
	return out, err
}

// GetConfig fetches the raw backend settings bag.
func (c *Client) GetConfig(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/config", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDataspace fetches the read-only dataspace settings.
func (c *Client) GetDataspace(ctx context.Context) (DataspaceSettings, error) {
	var out DataspaceSettings
	err := c.do(ctx, http.MethodGet, "/dataspace", nil, nil, &out)
	return out, err
}

// DeploySubmodel provisions a standalone submodel service. Fire-and-forget
// from the wizard's perspective.
func (c *Client) DeploySubmodel(ctx context.Context, req SubmodelDeployRequest) (SubmodelStatus, error) {
	if req.Type == "" {
		req.Type = "submodel-service"
	}
	var out SubmodelStatus
	err := c.do(ctx, http.MethodPost, "/submodel/deploy", nil, req, &out)
	return out, err
}

// ConnectSubmodel registers an existing submodel service.
func (c *Client) ConnectSubmodel(ctx context.Context, req SubmodelConnectRequest) (SubmodelStatus, error) {
	var out SubmodelStatus
	err := c.do(ctx, http.MethodPost, "/submodel/connect", nil, req, &out)
	return out, err
}

// envelope is the backend response wrapper. Every endpoint nests its result
// under "data"; errors arrive as {"message": ...} or {"detail": ...}.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	op := method + " " + path

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("edc %s: encode request: %w", op, err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("edc %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "emc")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	if c.Tokens != nil {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return &AuthError{Reason: "acquire token", Err: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &NetworkError{Op: op, URL: endpoint, Err: err}
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	resp.Body.Close()
	if readErr != nil {
		return &NetworkError{Op: op, URL: endpoint, Err: readErr}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Reason: fmt.Sprintf("backend rejected credentials (status %d)", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Op: op, URL: endpoint, Status: resp.StatusCode, Message: extractMessage(raw)}
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && !bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("edc %s: decode response: %w", op, err)
	}
	return nil
}

func extractMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := strings.TrimSpace(env.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(env.Detail); msg != "" {
			return msg
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "<") {
		return ""
	}
	msg = strings.Join(strings.Fields(msg), " ")
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}
	return msg
}
