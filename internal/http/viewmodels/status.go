// Package viewmodels holds presentation-shaped data derived from backend
// records. Nothing in here talks to the network.
package viewmodels

import "strings"

const (
	StatusConnected    = "Connected"
	StatusDisconnected = "Disconnected"
)

// StatusLabel maps a backend connector status to the label shown to users.
// Anything that is not positively healthy reads as disconnected.
func StatusLabel(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "healthy", "connected", "running":
		return StatusConnected
	default:
		return StatusDisconnected
	}
}

// StatusBadgeClass returns the badge style for a backend status.
func StatusBadgeClass(status string) string {
	if StatusLabel(status) == StatusConnected {
		return "badge-success"
	}
	return "badge-error"
}
