package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
)

// alertRepository implements the AlertRepository interface
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) repositories.AlertRepository {
	return &alertRepository{db: db}
}

// Create creates a new alert record
func (r *alertRepository) Create(ctx context.Context, alert *entities.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// FindByAlertID retrieves an alert by its caller-supplied id.
// Returns (nil, nil) when no record exists.
func (r *alertRepository) FindByAlertID(ctx context.Context, alertID string) (*entities.Alert, error) {
	var alert entities.Alert
	err := r.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// FindBySeverity retrieves alerts of a given severity, newest detection first
func (r *alertRepository) FindBySeverity(ctx context.Context, severity entities.Severity, limit int) ([]*entities.Alert, error) {
	var alerts []*entities.Alert
	query := r.db.WithContext(ctx).
		Where("severity = ?", severity).
		Order("detected_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&alerts).Error
	return alerts, err
}

// FindRecent retrieves the most recently created alerts
func (r *alertRepository) FindRecent(ctx context.Context, limit int) ([]*entities.Alert, error) {
	var alerts []*entities.Alert
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&alerts).Error
	return alerts, err
}

// Upsert creates the alert or refreshes its derived fields keyed by alert_id
func (r *alertRepository) Upsert(ctx context.Context, alert *entities.Alert) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "alert_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"root_cause", "recommendations",
				"compliance_status", "compliance_violations",
				"meeting_created", "meeting_id",
				"processing_error", "processed_at",
			}),
		}).
		Create(alert).Error
}

// MarkMeetingCreated flips the meeting flag in a single row update
func (r *alertRepository) MarkMeetingCreated(ctx context.Context, alertID, meetingID string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Alert{}).
		Where("alert_id = ?", alertID).
		Updates(map[string]interface{}{
			"meeting_created": true,
			"meeting_id":      meetingID,
		}).
		Error
}
