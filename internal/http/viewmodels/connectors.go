package viewmodels

import (
	"strings"
	"time"

	"github.com/arena2036-x/emc/internal/edc"
)

// ConnectorItem is one row of the connector table.
type ConnectorItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	BPN         string `json:"bpn,omitempty"`
	Version     string `json:"version,omitempty"`
	StatusLabel string `json:"status_label"`
	StatusClass string `json:"status_class"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// ConnectorDetail is the full connector view. Sub-resource credentials are
// reduced to their auth mode; secret values never leave the backend record.
type ConnectorDetail struct {
	ConnectorItem
	URLs       []string         `json:"urls,omitempty"`
	CPHostname string           `json:"cp_hostname,omitempty"`
	DPHostname string           `json:"dp_hostname,omitempty"`
	Registry   *SubResourceView `json:"registry,omitempty"`
	Submodel   *SubResourceView `json:"submodel,omitempty"`
	CreatedBy  string           `json:"created_by,omitempty"`
	UpdatedAt  string           `json:"updated_at,omitempty"`
}

// SubResourceView is the credential-free projection of a nested service.
type SubResourceView struct {
	URL            string `json:"url"`
	AuthMode       string `json:"auth_mode,omitempty"`
	CredentialsSet bool   `json:"credentials_set"`
}

// ConnectorListData is the connector table plus freshness metadata. Notice
// carries a human-readable warning when the last refresh failed and the
// table shows the previous snapshot.
type ConnectorListData struct {
	Items       []ConnectorItem `json:"items"`
	Total       int             `json:"total"`
	Notice      string          `json:"notice,omitempty"`
	RefreshedAt time.Time       `json:"refreshed_at"`
}

// NewConnectorItem projects a backend connector onto a table row.
func NewConnectorItem(c edc.Connector) ConnectorItem {
	return ConnectorItem{
		ID:          c.ID,
		Name:        c.Name,
		URL:         c.URL,
		BPN:         c.BPN,
		Version:     c.EffectiveVersion(),
		StatusLabel: StatusLabel(c.Status),
		StatusClass: StatusBadgeClass(c.Status),
		CreatedAt:   c.CreatedAt,
	}
}

// NewConnectorDetail projects a backend connector onto the detail view.
func NewConnectorDetail(c edc.Connector) ConnectorDetail {
	detail := ConnectorDetail{
		ConnectorItem: NewConnectorItem(c),
		URLs:          c.URLs,
		CPHostname:    c.CPHostname,
		DPHostname:    c.DPHostname,
		CreatedBy:     c.CreatedBy,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.Config != nil {
		detail.Registry = newSubResourceView(c.Config.Registry)
		detail.Submodel = newSubResourceView(c.Config.Submodel)
	}
	return detail
}

// NewConnectorList builds the table data from a snapshot's connector slice
// and refresh outcome.
func NewConnectorList(connectors []edc.Connector, refreshErr error, refreshedAt time.Time) ConnectorListData {
	items := make([]ConnectorItem, 0, len(connectors))
	for _, c := range connectors {
		items = append(items, NewConnectorItem(c))
	}
	data := ConnectorListData{Items: items, Total: len(items), RefreshedAt: refreshedAt}
	if refreshErr != nil {
		data.Notice = "The last refresh failed; showing the previous state."
	}
	return data
}

func newSubResourceView(sr *edc.SubResource) *SubResourceView {
	if sr == nil {
		return nil
	}
	mode := strings.TrimSpace(sr.AuthMode)
	set := sr.Credentials != "" || sr.APIKey != "" || sr.Token != "" || sr.ClientSecret != ""
	if mode == "" && set {
		mode = "apiKey"
	}
	return &SubResourceView{URL: sr.URL, AuthMode: mode, CredentialsSet: set}
}
