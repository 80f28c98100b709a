// Package edc is the typed client for the EDC management backend.
package edc

// Connector is a managed EDC instance record as returned by the backend.
type Connector struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	URL        string           `json:"url"`
	BPN        string           `json:"bpn,omitempty"`
	Version    string           `json:"version,omitempty"`
	Status     string           `json:"status"`
	URLs       []string         `json:"urls,omitempty"`
	CPHostname string           `json:"cp_hostname,omitempty"`
	DPHostname string           `json:"dp_hostname,omitempty"`
	Config     *ConnectorConfig `json:"config,omitempty"`
	CreatedAt  string           `json:"created_at,omitempty"`
	UpdatedAt  string           `json:"updated_at,omitempty"`
	CreatedBy  string           `json:"created_by,omitempty"`
}

// EffectiveVersion resolves the connector version across backend revisions:
// newer backends report it top-level, older ones inside config.
func (c Connector) EffectiveVersion() string {
	if c.Version != "" {
		return c.Version
	}
	if c.Config != nil {
		return c.Config.Version
	}
	return ""
}

// ConnectorConfig is the closed provisioning configuration schema. The three
// observed backend revisions disagree on where some of these fields live, so
// every field is optional here and placement is handled by Revision.
type ConnectorConfig struct {
	Version    string       `json:"version,omitempty"`
	DBName     string       `json:"db_name,omitempty"`
	DBUsername string       `json:"db_username,omitempty"`
	DBPassword string       `json:"db_password,omitempty"`
	Registry   *SubResource `json:"registry,omitempty"`
	Submodel   *SubResource `json:"submodel,omitempty"`
}

// SubResource is a nested service attached to a connector (digital twin
// registry or submodel service) together with its authentication settings.
type SubResource struct {
	URL          string `json:"url"`
	Credentials  string `json:"credentials,omitempty"`
	AuthMode     string `json:"auth_mode,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
	Token        string `json:"token,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// ActivityLog is an immutable backend-produced record of an action taken
// against a connector.
type ActivityLog struct {
	ID            int64  `json:"id"`
	ConnectorID   *int64 `json:"connector_id,omitempty"`
	ConnectorName string `json:"connector_name,omitempty"`
	Action        string `json:"action"`
	Details       string `json:"details,omitempty"`
	Status        string `json:"status,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// DataspaceSettings is the read-only environment configuration describing the
// federation the console operates in. Fetched once per session, never mutated.
type DataspaceSettings struct {
	Name      string            `json:"name"`
	BPN       string            `json:"bpn"`
	Realm     string            `json:"realm"`
	Username  string            `json:"username,omitempty"`
	CentralID IdentityProvider  `json:"centralidp"`
	Portal    PortalSettings    `json:"portal"`
	Discovery DiscoverySettings `json:"discovery"`
	EDC       EDCSettings       `json:"edc"`
	SDEURL    string            `json:"sde_url,omitempty"`
	ReadOnly  bool              `json:"readonly"`
}

type IdentityProvider struct {
	URL   string `json:"url"`
	Realm string `json:"realm"`
}

type PortalSettings struct {
	URL string `json:"url"`
}

type DiscoverySettings struct {
	SemanticsURL    string `json:"semantics_url"`
	DiscoveryFinder string `json:"discovery_finder"`
	BPNDiscovery    string `json:"bpn_discovery"`
}

type EDCSettings struct {
	DefaultURL     string `json:"default_url"`
	ClusterContext string `json:"cluster_context"`
}

// HealthStatus is the backend health report.
type HealthStatus struct {
	Healthy   bool   `json:"healthy"`
	Liveness  string `json:"liveness,omitempty"`
	Readiness string `json:"readiness,omitempty"`
	Message   string `json:"message,omitempty"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// CreateConnectorRequest is the connector creation payload. The client places
// Version per the configured backend revision before sending.
type CreateConnectorRequest struct {
	Name       string       `json:"name"`
	URL        string       `json:"url"`
	BPN        string       `json:"bpn,omitempty"`
	Version    string       `json:"version,omitempty"`
	DBUsername string       `json:"db_username,omitempty"`
	DBPassword string       `json:"db_password,omitempty"`
	Registry   *SubResource `json:"registry,omitempty"`
	Submodel   *SubResource `json:"submodel,omitempty"`
}

// UpdateConnectorRequest is a partial update; nil fields are left untouched.
type UpdateConnectorRequest struct {
	Name    *string          `json:"name,omitempty"`
	URL     *string          `json:"url,omitempty"`
	BPN     *string          `json:"bpn,omitempty"`
	Status  *string          `json:"status,omitempty"`
	Version *string          `json:"version,omitempty"`
	Config  *ConnectorConfig `json:"config,omitempty"`
}

// ConnectorRef identifies a connector for deletion. Which key is used on the
// wire depends on the backend revision.
type ConnectorRef struct {
	ID   int64
	Name string
}

// SubmodelDeployRequest provisions a new submodel service.
type SubmodelDeployRequest struct {
	URL    string `json:"url"`
	APIKey string `json:"apiKey,omitempty"`
	Type   string `json:"type,omitempty"`
}

// SubmodelConnectRequest registers an existing submodel service.
type SubmodelConnectRequest struct {
	URL string `json:"url"`
	BPN string `json:"bpn,omitempty"`
}

// SubmodelStatus is the backend acknowledgement for submodel operations.
type SubmodelStatus struct {
	URL    string `json:"url"`
	BPN    string `json:"bpn,omitempty"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status"`
}
