package repositories

import (
	"context"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
)

// AlertRepository persists alert processing records
type AlertRepository interface {
	Create(ctx context.Context, alert *entities.Alert) error
	FindByAlertID(ctx context.Context, alertID string) (*entities.Alert, error)
	FindBySeverity(ctx context.Context, severity entities.Severity, limit int) ([]*entities.Alert, error)
	FindRecent(ctx context.Context, limit int) ([]*entities.Alert, error)
	// Upsert creates the record or updates derived fields keyed by alert_id.
	Upsert(ctx context.Context, alert *entities.Alert) error
	// MarkMeetingCreated flips meeting_created and sets meeting_id in a
	// single row update, the second phase of the two-entity write.
	MarkMeetingCreated(ctx context.Context, alertID, meetingID string) error
}

// MeetingRepository persists scheduled meetings
type MeetingRepository interface {
	Create(ctx context.Context, meeting *entities.Meeting) error
	FindByMeetingID(ctx context.Context, meetingID string) (*entities.Meeting, error)
	FindByAlertID(ctx context.Context, alertID string) (*entities.Meeting, error)
	FindRecent(ctx context.Context, limit int) ([]*entities.Meeting, error)
	UpdateStatus(ctx context.Context, meetingID string, status entities.MeetingStatus) error
	// FindOrphans lists meetings whose alert row does not carry
	// meeting_created=true, for the reconciliation sweep.
	FindOrphans(ctx context.Context, limit int) ([]*entities.Meeting, error)
}

// PipelineStore groups the one cross-entity write the orchestrator needs
// to be atomic: the Meeting insert and the Alert flag flip become visible
// together or not at all. Implementations on stores without multi-row
// transactions must write the Meeting first and flip the Alert flag last.
type PipelineStore interface {
	SaveMeetingAndAlert(ctx context.Context, meeting *entities.Meeting, alert *entities.Alert) error
}

// LearningRepository is the append-only store for the learning stage
type LearningRepository interface {
	Create(ctx context.Context, record *entities.LearningRecord) error
	FindByAgent(ctx context.Context, agentName string, limit int) ([]*entities.LearningRecord, error)
}

// WebhookLogRepository is the append-only store for gateway audit entries
type WebhookLogRepository interface {
	Create(ctx context.Context, log *entities.WebhookLog) error
	FindRecent(ctx context.Context, limit int) ([]*entities.WebhookLog, error)
	FindRejected(ctx context.Context, limit int) ([]*entities.WebhookLog, error)
}
