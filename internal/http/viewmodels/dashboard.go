package viewmodels

import (
	"strconv"
	"strings"
	"time"

	"github.com/arena2036-x/emc/internal/edc"
)

// DashboardData is the landing page summary.
type DashboardData struct {
	Total         int            `json:"total"`
	Connected     int            `json:"connected"`
	Disconnected  int            `json:"disconnected"`
	MaxConnectors int            `json:"max_connectors,omitempty"`
	AddDisabled   bool           `json:"add_disabled"`
	AddTooltip    string         `json:"add_tooltip,omitempty"`
	Backend       HealthViewData `json:"backend"`
	Activity      []ActivityItem `json:"activity"`
	RefreshedAt   time.Time      `json:"refreshed_at"`
}

// HealthViewData is the backend health widget.
type HealthViewData struct {
	Healthy bool   `json:"healthy"`
	Label   string `json:"label"`
	Message string `json:"message,omitempty"`
}

// ActivityItem is one line of the activity panel.
type ActivityItem struct {
	ID            int64  `json:"id"`
	ConnectorName string `json:"connector_name,omitempty"`
	Action        string `json:"action"`
	Details       string `json:"details,omitempty"`
	Status        string `json:"status,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// NewHealthView renders a health probe result. A probe error reads as
// unhealthy with the error text as the message.
func NewHealthView(status edc.HealthStatus, err error) HealthViewData {
	if err != nil {
		return HealthViewData{Healthy: false, Label: "Unavailable", Message: err.Error()}
	}
	view := HealthViewData{Healthy: status.Healthy, Message: status.Message}
	if status.Healthy {
		view.Label = "Operational"
	} else {
		view.Label = "Degraded"
		if view.Message == "" {
			view.Message = strings.TrimSpace(status.Status)
		}
	}
	return view
}

// NewActivityItems projects activity log records for display.
func NewActivityItems(logs []edc.ActivityLog) []ActivityItem {
	items := make([]ActivityItem, 0, len(logs))
	for _, l := range logs {
		name := l.ConnectorName
		if name == "" && l.ConnectorID != nil {
			name = "connector #" + strconv.FormatInt(*l.ConnectorID, 10)
		}
		items = append(items, ActivityItem{
			ID:            l.ID,
			ConnectorName: name,
			Action:        l.Action,
			Details:       l.Details,
			Status:        l.Status,
			Timestamp:     l.Timestamp,
		})
	}
	return items
}

// NewDashboard assembles the summary from snapshot data and a health probe.
func NewDashboard(connectors []edc.Connector, logs []edc.ActivityLog, refreshedAt time.Time, maxConnectors int, health HealthViewData) DashboardData {
	data := DashboardData{
		Total:         len(connectors),
		MaxConnectors: maxConnectors,
		Backend:       health,
		Activity:      NewActivityItems(logs),
		RefreshedAt:   refreshedAt,
	}
	for _, c := range connectors {
		if StatusLabel(c.Status) == StatusConnected {
			data.Connected++
		} else {
			data.Disconnected++
		}
	}
	if maxConnectors > 0 && data.Total >= maxConnectors {
		data.AddDisabled = true
		data.AddTooltip = "Connector limit reached (" + strconv.Itoa(maxConnectors) + ")."
	}
	return data
}
