package handlers

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/arena2036-x/emc/internal/edc"
	"github.com/arena2036-x/emc/internal/http/viewmodels"
	"github.com/arena2036-x/emc/internal/metrics"
	"github.com/arena2036-x/emc/internal/wizard"
)

const sessionKeyWizard = "wizard_draft"

// wizardPatch is the partial update payload for the draft. Absent fields are
// left untouched; a field set to the empty string clears it.
type wizardPatch struct {
	Name     *string       `json:"name,omitempty"`
	BPN      *string       `json:"bpn,omitempty"`
	Version  *string       `json:"version,omitempty"`
	Submodel *servicePatch `json:"submodel,omitempty"`
	Registry *servicePatch `json:"registry,omitempty"`
}

type servicePatch struct {
	URL          *string `json:"url,omitempty"`
	AuthMode     *string `json:"auth_mode,omitempty"`
	APIKey       *string `json:"api_key,omitempty"`
	Token        *string `json:"token,omitempty"`
	TokenURL     *string `json:"token_url,omitempty"`
	ClientID     *string `json:"client_id,omitempty"`
	ClientSecret *string `json:"client_secret,omitempty"`
}

// HandleWizardOpen starts a deployment wizard, or returns the one already in
// progress. Opening is refused when the connector ceiling is reached.
func (h *Handlers) HandleWizardOpen(c *echo.Context) error {
	if draft, ok := h.currentDraft(c); ok {
		return h.respondWizard(c, http.StatusOK, draft)
	}

	if h.Cfg.MaxConnectors > 0 && h.Store.ConnectorCount() >= h.Cfg.MaxConnectors {
		metrics.WizardOpensRefusedTotal.Inc()
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "the connector limit for this environment is reached",
		})
	}

	rev, err := edc.ParseRevision(h.Cfg.BackendRevision)
	if err != nil {
		return err
	}
	draft := wizard.NewDraft(h.Cfg.EDCDomain, rev.DefaultVersion())
	if err := h.putDraft(c, draft); err != nil {
		return err
	}
	return h.respondWizard(c, http.StatusCreated, draft)
}

// HandleWizardGet returns the draft plus its YAML preview.
func (h *Handlers) HandleWizardGet(c *echo.Context) error {
	draft, ok := h.currentDraft(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no wizard in progress"})
	}
	return h.respondWizard(c, http.StatusOK, draft)
}

// HandleWizardPatch merges edited fields into the draft. Step transitions
// stay with next/back; patching never moves the step.
func (h *Handlers) HandleWizardPatch(c *echo.Context) error {
	draft, ok := h.currentDraft(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no wizard in progress"})
	}

	var patch wizardPatch
	if err := c.Bind(&patch); err != nil {
		return BadRequest(c, "invalid wizard payload")
	}

	if patch.Name != nil {
		draft.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.BPN != nil {
		draft.BPN = strings.TrimSpace(*patch.BPN)
	}
	if patch.Version != nil {
		rev, err := edc.ParseRevision(h.Cfg.BackendRevision)
		if err != nil {
			return err
		}
		version := strings.TrimSpace(*patch.Version)
		if !slices.Contains(rev.VersionChoices(), version) {
			return BadRequest(c, "unsupported connector version "+version)
		}
		draft.Version = version
	}
	if patch.Submodel != nil {
		if err := applyServicePatch(&draft.Submodel, patch.Submodel); err != nil {
			return BadRequest(c, "submodel: "+err.Error())
		}
	}
	if patch.Registry != nil {
		if err := applyServicePatch(&draft.Registry, patch.Registry); err != nil {
			return BadRequest(c, "registry: "+err.Error())
		}
	}

	if err := h.putDraft(c, draft); err != nil {
		return err
	}
	return h.respondWizard(c, http.StatusOK, draft)
}

// HandleWizardNext advances the wizard one step.
func (h *Handlers) HandleWizardNext(c *echo.Context) error {
	return h.transition(c, wizard.Draft.Next)
}

// HandleWizardBack returns to the previous step.
func (h *Handlers) HandleWizardBack(c *echo.Context) error {
	return h.transition(c, wizard.Draft.Back)
}

func (h *Handlers) transition(c *echo.Context, move func(wizard.Draft) (wizard.Draft, error)) error {
	draft, ok := h.currentDraft(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no wizard in progress"})
	}

	next, err := move(draft)
	if err != nil {
		return BadRequest(c, err.Error())
	}
	if err := h.putDraft(c, next); err != nil {
		return err
	}
	return h.respondWizard(c, http.StatusOK, next)
}

// HandleWizardSubmodelDeploy provisions a fresh submodel service and records
// its URL in the draft.
func (h *Handlers) HandleWizardSubmodelDeploy(c *echo.Context) error {
	draft, ok := h.currentDraft(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no wizard in progress"})
	}

	var req edc.SubmodelDeployRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid submodel payload")
	}

	status, err := h.Gateway.DeploySubmodel(c.Request().Context(), req)
	if err != nil {
		return h.RespondError(c, err)
	}

	draft.Submodel.URL = status.URL
	draft.Submodel.Deployed = true
	if req.APIKey != "" {
		draft.Submodel.Credentials = wizard.Credentials{Mode: wizard.AuthAPIKey, APIKey: req.APIKey}
	}
	if err := h.putDraft(c, draft); err != nil {
		return err
	}
	return h.respondWizard(c, http.StatusOK, draft)
}

// HandleWizardSubmodelConnect registers an existing submodel service.
func (h *Handlers) HandleWizardSubmodelConnect(c *echo.Context) error {
	draft, ok := h.currentDraft(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no wizard in progress"})
	}

	var req edc.SubmodelConnectRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid submodel payload")
	}
	if strings.TrimSpace(req.URL) == "" {
		return BadRequest(c, "submodel url is required")
	}

	status, err := h.Gateway.ConnectSubmodel(c.Request().Context(), req)
	if err != nil {
		return h.RespondError(c, err)
	}

	draft.Submodel.URL = status.URL
	if err := h.putDraft(c, draft); err != nil {
		return err
	}
	return h.respondWizard(c, http.StatusOK, draft)
}

// HandleWizardDeploy submits the draft as a new connector and closes the
// wizard. Nothing was persisted backend-side before this call.
func (h *Handlers) HandleWizardDeploy(c *echo.Context) error {
	draft, ok := h.currentDraft(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no wizard in progress"})
	}

	if err := draft.ValidateForDeploy(); err != nil {
		return BadRequest(c, err.Error())
	}
	if h.Cfg.MaxConnectors > 0 && h.Store.ConnectorCount() >= h.Cfg.MaxConnectors {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "the connector limit for this environment is reached",
		})
	}

	created, err := h.Store.Create(c.Request().Context(), draft.CreateRequest())
	if err != nil {
		metrics.WizardDeploysTotal.WithLabelValues("error").Inc()
		return h.RespondError(c, err)
	}
	metrics.WizardDeploysTotal.WithLabelValues("ok").Inc()

	h.Sessions.Remove(c.Request().Context(), sessionKeyWizard)
	return Respond(c, http.StatusCreated, viewmodels.NewConnectorDetail(created))
}

// HandleWizardCancel discards the draft.
func (h *Handlers) HandleWizardCancel(c *echo.Context) error {
	h.Sessions.Remove(c.Request().Context(), sessionKeyWizard)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) respondWizard(c *echo.Context, status int, draft wizard.Draft) error {
	rev, err := edc.ParseRevision(h.Cfg.BackendRevision)
	if err != nil {
		return err
	}
	preview, err := draft.YAMLPreview()
	if err != nil {
		return err
	}
	return Respond(c, status, viewmodels.NewWizardView(draft, rev.VersionChoices(), preview))
}

func (h *Handlers) currentDraft(c *echo.Context) (wizard.Draft, bool) {
	raw := h.Sessions.GetString(c.Request().Context(), sessionKeyWizard)
	if raw == "" {
		return wizard.Draft{}, false
	}
	var draft wizard.Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return wizard.Draft{}, false
	}
	return draft, draft.ID != ""
}

func (h *Handlers) putDraft(c *echo.Context, draft wizard.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	h.Sessions.Put(c.Request().Context(), sessionKeyWizard, string(raw))
	return nil
}

func applyServicePatch(target *wizard.ServiceDraft, patch *servicePatch) error {
	if patch.URL != nil {
		target.URL = strings.TrimSpace(*patch.URL)
	}
	creds := target.Credentials
	if patch.AuthMode != nil {
		mode, err := wizard.ParseAuthMode(*patch.AuthMode)
		if err != nil {
			return err
		}
		creds.Mode = mode
	}
	if patch.APIKey != nil {
		creds.APIKey = *patch.APIKey
	}
	if patch.Token != nil {
		creds.Token = *patch.Token
	}
	if patch.TokenURL != nil {
		creds.TokenURL = strings.TrimSpace(*patch.TokenURL)
	}
	if patch.ClientID != nil {
		creds.ClientID = strings.TrimSpace(*patch.ClientID)
	}
	if patch.ClientSecret != nil {
		creds.ClientSecret = *patch.ClientSecret
	}
	target.Credentials = creds
	return nil
}
