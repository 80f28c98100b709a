package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"

	"github.com/arena2036-x/emc/internal/config"
	"github.com/arena2036-x/emc/internal/edc"
	"github.com/arena2036-x/emc/internal/session"
	"github.com/arena2036-x/emc/internal/store"
)

type fakeBackend struct {
	connectors []edc.Connector
	activity   []edc.ActivityLog
	listErr    error

	created []edc.CreateConnectorRequest
	deleted []edc.ConnectorRef

	health    edc.HealthStatus
	healthErr error
	dataspace edc.DataspaceSettings
	submodel  edc.SubmodelStatus
}

func (f *fakeBackend) ListConnectors(context.Context) ([]edc.Connector, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]edc.Connector, len(f.connectors))
	copy(out, f.connectors)
	return out, nil
}

func (f *fakeBackend) RecentActivity(_ context.Context, limit int) ([]edc.ActivityLog, error) {
	logs := f.activity
	if limit > 0 && limit < len(logs) {
		logs = logs[:limit]
	}
	return logs, nil
}

func (f *fakeBackend) CreateConnector(_ context.Context, req edc.CreateConnectorRequest) (edc.Connector, error) {
	f.created = append(f.created, req)
	c := edc.Connector{ID: int64(len(f.connectors) + 1), Name: req.Name, URL: req.URL, Status: "healthy"}
	f.connectors = append(f.connectors, c)
	return c, nil
}

func (f *fakeBackend) UpdateConnector(_ context.Context, id int64, req edc.UpdateConnectorRequest) (edc.Connector, error) {
	for i, c := range f.connectors {
		if c.ID == id {
			if req.Name != nil {
				f.connectors[i].Name = *req.Name
			}
			return f.connectors[i], nil
		}
	}
	return edc.Connector{}, &edc.HTTPError{Status: http.StatusNotFound}
}

func (f *fakeBackend) DeleteConnector(_ context.Context, ref edc.ConnectorRef) error {
	f.deleted = append(f.deleted, ref)
	kept := f.connectors[:0]
	for _, c := range f.connectors {
		if c.ID != ref.ID {
			kept = append(kept, c)
		}
	}
	f.connectors = kept
	return nil
}

func (f *fakeBackend) GetConnector(_ context.Context, id int64) (edc.Connector, error) {
	for _, c := range f.connectors {
		if c.ID == id {
			return c, nil
		}
	}
	return edc.Connector{}, &edc.HTTPError{Status: http.StatusNotFound}
}

func (f *fakeBackend) Health(context.Context) (edc.HealthStatus, error) {
	return f.health, f.healthErr
}

func (f *fakeBackend) EDCHealth(context.Context) (edc.HealthStatus, error) {
	return f.health, f.healthErr
}

func (f *fakeBackend) GetDataspace(context.Context) (edc.DataspaceSettings, error) {
	return f.dataspace, nil
}

func (f *fakeBackend) DeploySubmodel(_ context.Context, req edc.SubmodelDeployRequest) (edc.SubmodelStatus, error) {
	if f.submodel.URL == "" {
		f.submodel = edc.SubmodelStatus{URL: req.URL, Status: "deployed"}
	}
	return f.submodel, nil
}

func (f *fakeBackend) ConnectSubmodel(_ context.Context, req edc.SubmodelConnectRequest) (edc.SubmodelStatus, error) {
	return edc.SubmodelStatus{URL: req.URL, BPN: req.BPN, Status: "connected"}, nil
}

type harness struct {
	h        *Handlers
	backend  *fakeBackend
	sessions *scs.SessionManager

	// sessionCtx is one loaded session shared by every request in a test,
	// standing in for the session cookie a browser would carry.
	sessionCtx context.Context
}

func newHarness(t *testing.T, backend *fakeBackend, cfg config.Config) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(backend, 20, logger)
	if err := st.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	sessions := scs.New()
	sessionCtx, err := sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return &harness{
		h:          &Handlers{Cfg: cfg, Store: st, Gateway: backend, Sessions: sessions},
		backend:    backend,
		sessions:   sessions,
		sessionCtx: sessionCtx,
	}
}

// newContext builds an echo context whose request carries the shared session.
func (hr *harness) newContext(t *testing.T, method, target, body string) (*echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(hr.sessionCtx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, envelope.Data)
	}
}

func seededBackend() *fakeBackend {
	return &fakeBackend{
		connectors: []edc.Connector{
			{ID: 1, Name: "Alpha", URL: "https://alpha.arena2036-x.de", Status: "healthy", Version: "0.9.0"},
			{ID: 2, Name: "Beta", URL: "https://beta.arena2036-x.de", Status: "error"},
		},
		activity: []edc.ActivityLog{
			{ID: 10, ConnectorName: "Alpha", Action: "create", Status: "success"},
		},
		health: edc.HealthStatus{Healthy: true},
	}
}

func TestHandleConnectorsListsSnapshot(t *testing.T) {
	hr := newHarness(t, seededBackend(), config.Config{AuthDisabled: true})

	c, rec := hr.newContext(t, http.MethodGet, "/api/connectors", "")
	if err := hr.h.HandleConnectors(c); err != nil {
		t.Fatalf("HandleConnectors: %v", err)
	}

	var data struct {
		Items []struct {
			Name        string `json:"name"`
			StatusLabel string `json:"status_label"`
		} `json:"items"`
		Total  int    `json:"total"`
		Notice string `json:"notice"`
	}
	decodeData(t, rec, &data)

	if data.Total != 2 {
		t.Fatalf("total = %d", data.Total)
	}
	if data.Items[0].StatusLabel != "Connected" || data.Items[1].StatusLabel != "Disconnected" {
		t.Fatalf("status labels: %+v", data.Items)
	}
	if data.Notice != "" {
		t.Fatalf("unexpected notice %q", data.Notice)
	}
}

func TestHandleDashboardCounts(t *testing.T) {
	hr := newHarness(t, seededBackend(), config.Config{AuthDisabled: true, MaxConnectors: 5})

	c, rec := hr.newContext(t, http.MethodGet, "/api/dashboard", "")
	if err := hr.h.HandleDashboard(c); err != nil {
		t.Fatalf("HandleDashboard: %v", err)
	}

	var data struct {
		Total        int `json:"total"`
		Connected    int `json:"connected"`
		Disconnected int `json:"disconnected"`
		Backend      struct {
			Healthy bool `json:"healthy"`
		} `json:"backend"`
		Activity []struct {
			Action string `json:"action"`
		} `json:"activity"`
	}
	decodeData(t, rec, &data)
	if data.Total != 2 || data.Connected != 1 || data.Disconnected != 1 {
		t.Fatalf("counts: %+v", data)
	}
	if !data.Backend.Healthy {
		t.Fatal("backend should report healthy")
	}
	if len(data.Activity) != 1 || data.Activity[0].Action != "create" {
		t.Fatalf("activity: %+v", data.Activity)
	}
}

func TestHandleActivityLimit(t *testing.T) {
	backend := seededBackend()
	backend.activity = []edc.ActivityLog{
		{ID: 1, Action: "create"},
		{ID: 2, Action: "update"},
		{ID: 3, Action: "delete"},
	}
	hr := newHarness(t, backend, config.Config{AuthDisabled: true})

	c, rec := hr.newContext(t, http.MethodGet, "/api/activity?limit=2", "")
	if err := hr.h.HandleActivity(c); err != nil {
		t.Fatalf("HandleActivity: %v", err)
	}

	var items []struct {
		ID int64 `json:"id"`
	}
	decodeData(t, rec, &items)
	if len(items) != 2 || items[0].ID != 1 {
		t.Fatalf("items: %+v", items)
	}
}

func TestHandleWizardOpenRefusedAtCeiling(t *testing.T) {
	hr := newHarness(t, seededBackend(), config.Config{AuthDisabled: true, MaxConnectors: 2})

	c, rec := hr.newContext(t, http.MethodPost, "/api/wizard", "")
	if err := hr.h.HandleWizardOpen(c); err != nil {
		t.Fatalf("HandleWizardOpen: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestWizardFlowDeploysConnector(t *testing.T) {
	backend := seededBackend()
	hr := newHarness(t, backend, config.Config{AuthDisabled: true, EDCDomain: "arena2036-x.de"})

	c, rec := hr.newContext(t, http.MethodPost, "/api/wizard", "")
	if err := hr.h.HandleWizardOpen(c); err != nil {
		t.Fatalf("open: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status = %d", rec.Code)
	}

	var view struct {
		Step int    `json:"step"`
		URL  string `json:"url"`
	}
	decodeData(t, rec, &view)
	if view.Step != 1 {
		t.Fatalf("opened at step %d", view.Step)
	}

	// Submodel and registry steps are left empty and skipped.
	for i := 0; i < 2; i++ {
		c, rec = hr.newContext(t, http.MethodPost, "/api/wizard/next", "")
		if err := hr.h.HandleWizardNext(c); err != nil {
			t.Fatalf("next: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("next status = %d: %s", rec.Code, rec.Body.String())
		}
	}

	// The connector step blocks until a name is present.
	c, rec = hr.newContext(t, http.MethodPost, "/api/wizard/next", "")
	if err := hr.h.HandleWizardNext(c); err != nil {
		t.Fatalf("next: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("nameless advance status = %d", rec.Code)
	}

	c, rec = hr.newContext(t, http.MethodPatch, "/api/wizard", `{"name":"Gamma","bpn":"BPNL000000000003"}`)
	if err := hr.h.HandleWizardPatch(c); err != nil {
		t.Fatalf("patch: %v", err)
	}
	decodeData(t, rec, &view)
	if view.URL != "https://gamma.arena2036-x.de" {
		t.Fatalf("derived url = %q", view.URL)
	}

	c, rec = hr.newContext(t, http.MethodPost, "/api/wizard/next", "")
	if err := hr.h.HandleWizardNext(c); err != nil {
		t.Fatalf("next to review: %v", err)
	}
	decodeData(t, rec, &view)
	if view.Step != 4 {
		t.Fatalf("step = %d, want review", view.Step)
	}

	c, rec = hr.newContext(t, http.MethodPost, "/api/wizard/deploy", "")
	if err := hr.h.HandleWizardDeploy(c); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("deploy status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(backend.created) != 1 || backend.created[0].Name != "Gamma" {
		t.Fatalf("created: %+v", backend.created)
	}
	if backend.created[0].Submodel != nil || backend.created[0].Registry != nil {
		t.Fatal("skipped sub-resources must be absent from the submission")
	}

	// The wizard is closed after deploy.
	c, rec = hr.newContext(t, http.MethodGet, "/api/wizard", "")
	if err := hr.h.HandleWizardGet(c); err != nil {
		t.Fatalf("get after deploy: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after deploy = %d", rec.Code)
	}
}

func TestHandleWizardPatchRejectsUnknownVersion(t *testing.T) {
	hr := newHarness(t, seededBackend(), config.Config{AuthDisabled: true})

	c, _ := hr.newContext(t, http.MethodPost, "/api/wizard", "")
	if err := hr.h.HandleWizardOpen(c); err != nil {
		t.Fatalf("open: %v", err)
	}

	c, rec := hr.newContext(t, http.MethodPatch, "/api/wizard", `{"version":"13.3.7"}`)
	if err := hr.h.HandleWizardPatch(c); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleWizardYAMLNeverLeaksSecrets(t *testing.T) {
	hr := newHarness(t, seededBackend(), config.Config{AuthDisabled: true, EDCDomain: "arena2036-x.de"})

	c, _ := hr.newContext(t, http.MethodPost, "/api/wizard", "")
	if err := hr.h.HandleWizardOpen(c); err != nil {
		t.Fatalf("open: %v", err)
	}

	c, rec := hr.newContext(t, http.MethodPatch, "/api/wizard",
		`{"registry":{"url":"https://registry.example.com","auth_mode":"apiKey","api_key":"registry-secret"}}`)
	if err := hr.h.HandleWizardPatch(c); err != nil {
		t.Fatalf("patch: %v", err)
	}

	var view struct {
		YAML string `json:"yaml"`
	}
	decodeData(t, rec, &view)
	if strings.Contains(view.YAML, "registry-secret") {
		t.Fatalf("yaml leaked the api key:\n%s", view.YAML)
	}
	if !strings.Contains(view.YAML, "******") {
		t.Fatalf("yaml missing mask:\n%s", view.YAML)
	}
}

func TestRequireSessionDisabledPassesThrough(t *testing.T) {
	hr := newHarness(t, seededBackend(), config.Config{AuthDisabled: true})

	called := false
	mw := hr.h.RequireSession(func(c *echo.Context) error {
		called = true
		return nil
	})

	c, _ := hr.newContext(t, http.MethodGet, "/api/connectors", "")
	if err := mw(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if !called {
		t.Fatal("next handler not reached")
	}
}

func TestRequireSessionWithoutTokensIsUnauthorized(t *testing.T) {
	hr := newHarness(t, seededBackend(), config.Config{})
	hr.h.Auth = &session.Authenticator{}

	mw := hr.h.RequireSession(func(c *echo.Context) error {
		t.Fatal("handler must not run without a session")
		return nil
	})

	c, rec := hr.newContext(t, http.MethodGet, "/api/connectors", "")
	if err := mw(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/auth/login") {
		t.Fatalf("body missing login hint: %s", rec.Body.String())
	}
}
