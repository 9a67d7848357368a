package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/proxy-manager/internal/adapters/in/cli/ui/styles"
)

// Status is the visual class of a state label.
type Status int

const (
	StatusInfo Status = iota
	StatusSuccess
	StatusError
	StatusWarning
	StatusPending
)

// ParseStatus classifies a container or route state label.
func ParseStatus(s string) Status {
	switch strings.ToLower(s) {
	case "running", "ok", "resolved", "started", "already_running", "reloaded", "built":
		return StatusSuccess
	case "exited", "dead", "error", "failed", "dangling":
		return StatusError
	case "paused", "restarting", "removing", "warning":
		return StatusWarning
	case "created", "absent", "not_running", "stopped", "unknown":
		return StatusPending
	default:
		return StatusInfo
	}
}

func (s Status) style() lipgloss.Style {
	switch s {
	case StatusSuccess:
		return styles.Theme.Success
	case StatusError:
		return styles.Theme.Error
	case StatusWarning:
		return styles.Theme.Warning
	case StatusPending:
		return styles.Theme.Muted
	default:
		return styles.Theme.Info
	}
}

func (s Status) badge() lipgloss.Style {
	switch s {
	case StatusSuccess:
		return styles.Theme.BadgeSuccess
	case StatusError:
		return styles.Theme.BadgeError
	case StatusWarning:
		return styles.Theme.BadgeWarning
	case StatusPending:
		return styles.Theme.BadgePending
	default:
		return styles.Theme.BadgeInfo
	}
}

func (s Status) icon() string {
	switch s {
	case StatusSuccess:
		return styles.IconSuccess
	case StatusError:
		return styles.IconError
	case StatusWarning:
		return styles.IconWarning
	case StatusPending:
		return styles.IconDotOff
	default:
		return styles.IconDot
	}
}

// StatusIndicator renders an icon followed by the label, colored by class.
func StatusIndicator(label string) string {
	s := ParseStatus(label)
	return s.style().Render(s.icon() + " " + label)
}

// StatusBadge renders the label on a colored background.
func StatusBadge(label string) string {
	return ParseStatus(label).badge().Render(label)
}
