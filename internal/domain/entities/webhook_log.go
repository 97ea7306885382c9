package entities

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookOutcome is the gateway's verdict on one inbound request
type WebhookOutcome string

const (
	OutcomeAdmitted WebhookOutcome = "admitted"
	OutcomeRejected WebhookOutcome = "rejected"
)

// WebhookLog is a write-once audit record of every inbound webhook
// request. Headers are stored redacted and the body only as a hash;
// secret material never lands in this table.
type WebhookLog struct {
	ID             uint           `gorm:"primary_key" json:"id"`
	Endpoint       string         `gorm:"type:varchar(255);index" json:"endpoint"`
	Method         string         `gorm:"type:varchar(10)" json:"method"`
	BodyHash       string         `gorm:"type:varchar(64)" json:"body_hash"`
	Headers        datatypes.JSON `gorm:"type:jsonb" json:"headers"`
	Outcome        WebhookOutcome `gorm:"type:varchar(20);index" json:"outcome"`
	RejectionCode  string         `gorm:"type:varchar(50)" json:"rejection_code,omitempty"`
	ResponseStatus int            `json:"response_status"`
	Error          *string        `gorm:"type:text" json:"error,omitempty"`
	LatencyMs      float64        `json:"latency_ms"`
	IPAddress      string         `gorm:"type:varchar(50)" json:"ip_address"`
	CreatedAt      time.Time      `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for WebhookLog
func (WebhookLog) TableName() string {
	return "webhook_logs"
}
