package edc

import (
	"fmt"
	"strings"
)

// Revision selects the wire dialect of the backend. The observed backend
// generations disagree on the create path, the delete key, the activity
// endpoint, and where the connector version lives in the payload. The
// revision is configuration, never guessed from responses.
type Revision string

const (
	// RevisionLegacy: POST /connector, delete by id, GET /logs,
	// version nested under config, default version 0.6.0.
	RevisionLegacy Revision = "legacy"
	// RevisionV1: POST /connectors, delete by id, GET /activity-logs,
	// version nested under config.
	RevisionV1 Revision = "v1"
	// RevisionV2: POST /connectors, delete by name, GET /activity-logs,
	// top-level version.
	RevisionV2 Revision = "v2"
)

// ParseRevision validates a revision string from configuration.
func ParseRevision(v string) (Revision, error) {
	switch Revision(strings.ToLower(strings.TrimSpace(v))) {
	case RevisionLegacy:
		return RevisionLegacy, nil
	case RevisionV1, "":
		return RevisionV1, nil
	case RevisionV2:
		return RevisionV2, nil
	default:
		return "", fmt.Errorf("unknown backend revision %q", v)
	}
}

// CreatePath is the connector creation endpoint.
func (r Revision) CreatePath() string {
	if r == RevisionLegacy {
		return "/connector"
	}
	return "/connectors"
}

// ActivityPath is the activity log endpoint.
func (r Revision) ActivityPath() string {
	if r == RevisionLegacy {
		return "/logs"
	}
	return "/activity-logs"
}

// DeleteKey returns the path key identifying a connector on DELETE.
func (r Revision) DeleteKey(ref ConnectorRef) string {
	if r == RevisionV2 && ref.Name != "" {
		return ref.Name
	}
	return fmt.Sprintf("%d", ref.ID)
}

// DefaultVersion is the connector version assumed when none is chosen.
func (r Revision) DefaultVersion() string {
	if r == RevisionLegacy {
		return "0.6.0"
	}
	return "0.9.0"
}

// VersionChoices are the connector versions the backend can provision.
func (r Revision) VersionChoices() []string {
	if r == RevisionLegacy {
		return []string{"0.6.0"}
	}
	return []string{"0.9.0", "0.10.0", "0.11.0"}
}

// createBody places the version field where this revision expects it.
func (r Revision) createBody(req CreateConnectorRequest) any {
	version := req.Version
	if version == "" {
		version = r.DefaultVersion()
	}
	if r == RevisionV2 {
		req.Version = version
		return req
	}

	// Older backends read the version (and sub-resources) from a nested
	// config object.
	req.Version = ""
	type legacyCreate struct {
		CreateConnectorRequest
		Config *ConnectorConfig `json:"config"`
	}
	cfg := &ConnectorConfig{
		Version:    version,
		DBUsername: req.DBUsername,
		DBPassword: req.DBPassword,
		Registry:   req.Registry,
		Submodel:   req.Submodel,
	}
	req.DBUsername = ""
	req.DBPassword = ""
	req.Registry = nil
	req.Submodel = nil
	return legacyCreate{CreateConnectorRequest: req, Config: cfg}
}
