package viewmodels

import (
	"github.com/arena2036-x/emc/internal/wizard"
)

// WizardViewData is the deployment wizard state shown to the client. Secret
// values are reduced to a set/unset flag; the derived URL is recomputed from
// the current name on every render.
type WizardViewData struct {
	ID             string           `json:"id"`
	Step           int              `json:"step"`
	StepName       string           `json:"step_name"`
	TotalSteps     int              `json:"total_steps"`
	Name           string           `json:"name,omitempty"`
	BPN            string           `json:"bpn,omitempty"`
	Version        string           `json:"version"`
	VersionChoices []string         `json:"version_choices"`
	URL            string           `json:"url,omitempty"`
	Submodel       *SubResourceView `json:"submodel,omitempty"`
	Registry       *SubResourceView `json:"registry,omitempty"`
	YAML           string           `json:"yaml,omitempty"`
}

// NewWizardView projects a draft for the client. yamlPreview may be empty
// when the caller does not need the preview on this render.
func NewWizardView(d wizard.Draft, versionChoices []string, yamlPreview string) WizardViewData {
	view := WizardViewData{
		ID:             d.ID,
		Step:           int(d.Step),
		StepName:       d.Step.String(),
		TotalSteps:     wizard.TotalSteps,
		Name:           d.Name,
		BPN:            d.BPN,
		Version:        d.Version,
		VersionChoices: versionChoices,
		URL:            d.URL(),
		YAML:           yamlPreview,
	}
	if !d.Submodel.Empty() {
		view.Submodel = newServiceView(d.Submodel)
	}
	if !d.Registry.Empty() {
		view.Registry = newServiceView(d.Registry)
	}
	return view
}

func newServiceView(s wizard.ServiceDraft) *SubResourceView {
	return &SubResourceView{
		URL:            s.URL,
		AuthMode:       string(s.Credentials.Mode),
		CredentialsSet: s.Credentials.Set(),
	}
}
