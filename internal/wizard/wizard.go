// Package wizard implements the deployment wizard as an explicit state
// machine: a step tag plus a draft, with pure transition functions. The
// browser console this replaces scattered the same logic across boolean
// flags; here every transition and its guard is independently testable.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arena2036-x/emc/internal/edc"
	"github.com/google/uuid"
)

// Step is the wizard position. Transitions are linear, forward/back only.
type Step int

const (
	StepSubmodel Step = iota + 1
	StepRegistry
	StepConnector
	StepReview
)

const TotalSteps = 4

func (s Step) String() string {
	switch s {
	case StepSubmodel:
		return "submodel"
	case StepRegistry:
		return "registry"
	case StepConnector:
		return "connector"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ServiceDraft is the in-progress configuration of an optional sub-resource.
type ServiceDraft struct {
	URL         string      `json:"url"`
	Credentials Credentials `json:"credentials"`
	Deployed    bool        `json:"deployed,omitempty"`
}

// Empty reports whether the step was left untouched. An empty sub-resource
// step may be skipped; the sub-resource is then absent from the submission.
func (d ServiceDraft) Empty() bool {
	return strings.TrimSpace(d.URL) == "" && !d.Credentials.Set()
}

func (d ServiceDraft) validate(label string) error {
	if d.Empty() {
		return nil
	}
	if strings.TrimSpace(d.URL) == "" {
		return fmt.Errorf("%s: url is required when credentials are set", label)
	}
	if err := d.Credentials.Validate(); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

// subResource builds the wire payload, or nil when the step was skipped.
func (d ServiceDraft) subResource() *edc.SubResource {
	if d.Empty() {
		return nil
	}
	sr := &edc.SubResource{URL: strings.TrimSpace(d.URL)}
	d.Credentials.apply(sr)
	return sr
}

// Draft is the transient, uncommitted input state for a new connector.
// Nothing is persisted backend-side until Deploy.
type Draft struct {
	ID        string       `json:"id"`
	Step      Step         `json:"step"`
	Submodel  ServiceDraft `json:"submodel"`
	Registry  ServiceDraft `json:"registry"`
	Name      string       `json:"name"`
	BPN       string       `json:"bpn"`
	Version   string       `json:"version"`
	Domain    string       `json:"domain"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewDraft opens a wizard at step 1.
func NewDraft(domain, defaultVersion string) Draft {
	return Draft{
		ID:        uuid.NewString(),
		Step:      StepSubmodel,
		Version:   defaultVersion,
		Domain:    domain,
		CreatedAt: time.Now().UTC(),
	}
}

// URL derives the connector endpoint from the name. Recomputed on every
// read, so it tracks every name change.
func (d Draft) URL() string {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.%s", strings.ToLower(name), d.Domain)
}

// Next advances one step when the current step's guard passes.
func (d Draft) Next() (Draft, error) {
	if err := d.validateStep(d.Step); err != nil {
		return d, err
	}
	if d.Step >= StepReview {
		return d, errors.New("already at the review step")
	}
	d.Step++
	return d, nil
}

// Back moves one step back. Entered values are kept.
func (d Draft) Back() (Draft, error) {
	if d.Step <= StepSubmodel {
		return d, errors.New("already at the first step")
	}
	d.Step--
	return d, nil
}

func (d Draft) validateStep(step Step) error {
	switch step {
	case StepSubmodel:
		return d.Submodel.validate("submodel service")
	case StepRegistry:
		return d.Registry.validate("registry")
	case StepConnector:
		if strings.TrimSpace(d.Name) == "" {
			return errors.New("connector name is required")
		}
		if strings.TrimSpace(d.Version) == "" {
			return errors.New("connector version is required")
		}
		return nil
	case StepReview:
		return nil
	default:
		return fmt.Errorf("invalid step %d", int(step))
	}
}

// ValidateForDeploy checks that the wizard is at the review step and every
// step's guard passes.
func (d Draft) ValidateForDeploy() error {
	if d.Step != StepReview {
		return fmt.Errorf("deploy is only available from the review step, currently at %s", d.Step)
	}
	for step := StepSubmodel; step <= StepReview; step++ {
		if err := d.validateStep(step); err != nil {
			return err
		}
	}
	return nil
}

// CreateRequest assembles the single creation payload from the accumulated
// draft. Skipped sub-resource steps are simply absent.
func (d Draft) CreateRequest() edc.CreateConnectorRequest {
	return edc.CreateConnectorRequest{
		Name:     strings.TrimSpace(d.Name),
		URL:      d.URL(),
		BPN:      strings.TrimSpace(d.BPN),
		Version:  strings.TrimSpace(d.Version),
		Registry: d.Registry.subResource(),
		Submodel: d.Submodel.subResource(),
	}
}
