package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Severity represents alert severity as reported by ChainSync
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ComplianceStatus is the outcome of the compliance stage
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "COMPLIANT"
	ComplianceNonCompliant ComplianceStatus = "NON_COMPLIANT"
	ComplianceUnknown      ComplianceStatus = "UNKNOWN"
)

// Alert is the processing record for one inbound ChainSync alert.
// alert_id is caller-supplied and unique; the pipeline fills the derived
// fields and flips meeting_created exactly once.
type Alert struct {
	ID                   uint                        `gorm:"primary_key" json:"id"`
	AlertID              string                      `gorm:"type:varchar(255);uniqueIndex;not null" json:"alert_id"`
	AlertType            string                      `gorm:"type:varchar(100);index" json:"alert_type"`
	Severity             Severity                    `gorm:"type:varchar(50);index" json:"severity"`
	Description          string                      `gorm:"type:text" json:"description"`
	AffectedSystems      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"affected_systems"`
	DetectedAt           time.Time                   `gorm:"index" json:"detected_at"`
	ComplianceFrameworks datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"compliance_frameworks,omitempty"`
	RootCause            *string                     `gorm:"type:text" json:"root_cause,omitempty"`
	Recommendations      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"recommendations,omitempty"`
	ComplianceStatus     ComplianceStatus            `gorm:"type:varchar(50);index" json:"compliance_status,omitempty"`
	ComplianceViolations datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"compliance_violations,omitempty"`
	MeetingCreated       bool                        `gorm:"default:false;index" json:"meeting_created"`
	MeetingID            *string                     `gorm:"type:varchar(255);index" json:"meeting_id,omitempty"`
	ProcessingError      *string                     `gorm:"type:text" json:"processing_error,omitempty"`
	ProcessedAt          *time.Time                  `gorm:"index" json:"processed_at,omitempty"`
	CreatedAt            time.Time                   `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for Alert
func (Alert) TableName() string {
	return "alerts"
}

// IsProcessed reports whether the pipeline has finished with this alert
func (a *Alert) IsProcessed() bool {
	return a.ProcessedAt != nil
}

// MarkScheduled records a successful meeting creation
func (a *Alert) MarkScheduled(meetingID string) {
	now := time.Now()
	a.MeetingCreated = true
	a.MeetingID = &meetingID
	a.ProcessedAt = &now
	a.ProcessingError = nil
}

// MarkScheduleFailed records a terminal processing attempt without a meeting
func (a *Alert) MarkScheduleFailed(reason string) {
	now := time.Now()
	a.MeetingCreated = false
	a.ProcessedAt = &now
	a.ProcessingError = &reason
}
