package entities

import (
	"time"

	"gorm.io/datatypes"
)

// MeetingStatus represents the current status of a scheduled meeting
type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusCompleted MeetingStatus = "completed"
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

// Meeting is a review meeting scheduled through Slotify for one alert.
// Created exactly once per successfully processed alert; only its status
// changes afterwards.
type Meeting struct {
	ID                uint                        `gorm:"primary_key" json:"id"`
	MeetingID         string                      `gorm:"type:varchar(255);uniqueIndex;not null" json:"meeting_id"`
	AlertID           string                      `gorm:"type:varchar(255);index" json:"alert_id"`
	Title             string                      `gorm:"type:varchar(500)" json:"title"`
	ScheduledTime     time.Time                   `gorm:"index" json:"scheduled_time"`
	MeetingURL        string                      `gorm:"type:varchar(500)" json:"meeting_url"`
	DurationMinutes   int                         `json:"duration_minutes"`
	Attendees         datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"attendees"`
	AlertType         string                      `gorm:"type:varchar(100)" json:"alert_type"`
	AlertSeverity     Severity                    `gorm:"type:varchar(50)" json:"alert_severity"`
	UrgencyLevel      string                      `gorm:"type:varchar(50)" json:"urgency_level"`
	UrgencyScore      float64                     `json:"urgency_score"`
	WhyScheduled      string                      `gorm:"type:text" json:"why_scheduled"`
	DiscussionPoints  datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"discussion_points"`
	PreMeetingSummary string                      `gorm:"type:text" json:"pre_meeting_summary"`
	Status            MeetingStatus               `gorm:"type:varchar(50);default:'scheduled';index" json:"status"`
	CreatedAt         time.Time                   `gorm:"default:now();index" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for Meeting
func (Meeting) TableName() string {
	return "meetings"
}

// IsScheduled checks if the meeting is still upcoming
func (m *Meeting) IsScheduled() bool {
	return m.Status == MeetingStatusScheduled
}

// Complete marks the meeting as held
func (m *Meeting) Complete() {
	m.Status = MeetingStatusCompleted
	m.UpdatedAt = time.Now()
}

// Cancel marks the meeting as cancelled
func (m *Meeting) Cancel() {
	m.Status = MeetingStatusCancelled
	m.UpdatedAt = time.Now()
}
