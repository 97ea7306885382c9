// Package policy computes urgency and attendee decisions for alerts.
// The engine is deterministic and makes no network calls; everything it
// needs comes from the injected Config.
package policy

import (
	"time"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
)

// UrgencyLevel buckets the urgency score
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "CRITICAL"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyLow      UrgencyLevel = "LOW"
)

// UrgencyDecision is the computed urgency triple for one alert
type UrgencyDecision struct {
	Level              UrgencyLevel  `json:"level"`
	Score              float64       `json:"score"`
	RespondWithin      time.Duration `json:"respond_within_ns"`
	MeetingDurationMin int           `json:"meeting_duration_minutes"`
}

// Engine evaluates alerts against the configured authority table
type Engine struct {
	cfg *Config
}

// NewEngine creates a policy engine over the given authority table
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Evaluate computes urgency level, score and response bound for an alert.
// score = severity_weight * type_weight; thresholds are inclusive on the
// lower bound.
func (e *Engine) Evaluate(alert *entities.Alert) UrgencyDecision {
	score := e.severityWeight(alert.Severity) * e.typeWeight(alert.AlertType)

	switch {
	case score >= 0.8:
		return UrgencyDecision{UrgencyCritical, score, 1 * time.Hour, 60}
	case score >= 0.6:
		return UrgencyDecision{UrgencyHigh, score, 4 * time.Hour, 45}
	case score >= 0.4:
		return UrgencyDecision{UrgencyMedium, score, 24 * time.Hour, 30}
	default:
		return UrgencyDecision{UrgencyLow, score, 48 * time.Hour, 15}
	}
}

// SelectAttendees builds the attendee role list for an alert: the type's
// configured base list, plus Management for critical/high severity, plus
// Executive Sponsor when a compliance_violation or security_incident is
// also critical/high. De-duplicated, insertion order preserved.
func (e *Engine) SelectAttendees(alert *entities.Alert) []string {
	base := e.cfg.DefaultBase
	if tp, ok := e.cfg.Types[alert.AlertType]; ok && len(tp.BaseAttendees) > 0 {
		base = tp.BaseAttendees
	}

	attendees := make([]string, 0, len(base)+2)
	seen := make(map[string]bool, len(base)+2)
	add := func(role string) {
		if !seen[role] {
			seen[role] = true
			attendees = append(attendees, role)
		}
	}
	for _, role := range base {
		add(role)
	}

	escalated := alert.Severity == entities.SeverityCritical || alert.Severity == entities.SeverityHigh
	if escalated {
		add("Management")
		if alert.AlertType == "compliance_violation" || alert.AlertType == "security_incident" {
			add("Executive Sponsor")
		}
	}
	return attendees
}

func (e *Engine) severityWeight(severity entities.Severity) float64 {
	if w, ok := e.cfg.SeverityWeights[string(severity)]; ok {
		return w
	}
	return 0.5
}

func (e *Engine) typeWeight(alertType string) float64 {
	if tp, ok := e.cfg.Types[alertType]; ok && tp.Weight > 0 {
		return tp.Weight
	}
	return e.cfg.DefaultWeight
}
