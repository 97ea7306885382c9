// Package webhook holds the request and response shapes for the inbound
// webhook endpoints.
package webhook

import (
	"time"

	apperrors "github.com/chainsync-ai/alertbridge/errors"
	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
)

// ChainSyncAlert is the payload of POST /webhooks/chainsync/alert.
type ChainSyncAlert struct {
	AlertID              string         `json:"alert_id" validate:"required,min=1,max=255"`
	AlertType            string         `json:"alert_type" validate:"required,min=1,max=100"`
	Severity             string         `json:"severity" validate:"required,oneof=critical high medium low"`
	Description          string         `json:"description" validate:"required"`
	AffectedSystems      []string       `json:"affected_systems,omitempty"`
	DetectedAt           string         `json:"detected_at" validate:"required"`
	Context              map[string]any `json:"context,omitempty"`
	ComplianceFrameworks []string       `json:"compliance_frameworks,omitempty"`
}

// ToEntity converts the request into the processing record. detected_at
// must be RFC 3339.
func (r *ChainSyncAlert) ToEntity() (*entities.Alert, error) {
	detectedAt, err := time.Parse(time.RFC3339, r.DetectedAt)
	if err != nil {
		return nil, apperrors.ErrValidation("detected_at must be an RFC 3339 timestamp")
	}
	return &entities.Alert{
		AlertID:              r.AlertID,
		AlertType:            r.AlertType,
		Severity:             entities.Severity(r.Severity),
		Description:          r.Description,
		AffectedSystems:      r.AffectedSystems,
		DetectedAt:           detectedAt.UTC(),
		ComplianceFrameworks: r.ComplianceFrameworks,
	}, nil
}

// AlertProcessedResponse is the data block returned for a processed alert.
type AlertProcessedResponse struct {
	AlertID          string          `json:"alert_id"`
	MeetingID        string          `json:"meeting_id"`
	MeetingURL       string          `json:"meeting_url"`
	Urgency          UrgencyResponse `json:"urgency"`
	RootCause        string          `json:"root_cause"`
	ComplianceStatus string          `json:"compliance_status"`
	AlreadyProcessed bool            `json:"already_processed"`
	ProcessingTimeMs float64         `json:"processing_time_ms"`
}

// UrgencyResponse is the urgency block of the webhook response.
type UrgencyResponse struct {
	Level                  string  `json:"level"`
	Score                  float64 `json:"score"`
	RecommendedResponse    string  `json:"recommended_response_time"`
	MeetingDurationMinutes int     `json:"meeting_duration_minutes"`
}
