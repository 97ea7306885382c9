package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
)

// meetingRepository implements the MeetingRepository interface
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) repositories.MeetingRepository {
	return &meetingRepository{db: db}
}

// Create creates a new meeting record
func (r *meetingRepository) Create(ctx context.Context, meeting *entities.Meeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

// FindByMeetingID retrieves a meeting by its Slotify id.
// Returns (nil, nil) when no record exists.
func (r *meetingRepository) FindByMeetingID(ctx context.Context, meetingID string) (*entities.Meeting, error) {
	var meeting entities.Meeting
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		First(&meeting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// FindByAlertID retrieves the meeting created for an alert, if any
func (r *meetingRepository) FindByAlertID(ctx context.Context, alertID string) (*entities.Meeting, error) {
	var meeting entities.Meeting
	err := r.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		First(&meeting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// FindRecent retrieves the most recently created meetings
func (r *meetingRepository) FindRecent(ctx context.Context, limit int) ([]*entities.Meeting, error) {
	var meetings []*entities.Meeting
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&meetings).Error
	return meetings, err
}

// UpdateStatus updates the meeting status
func (r *meetingRepository) UpdateStatus(ctx context.Context, meetingID string, status entities.MeetingStatus) error {
	return r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("meeting_id = ?", meetingID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("NOW()"),
		}).
		Error
}

// FindOrphans lists meetings whose alert row never got its flag flipped,
// the repairable half of the two-phase write.
func (r *meetingRepository) FindOrphans(ctx context.Context, limit int) ([]*entities.Meeting, error) {
	var meetings []*entities.Meeting
	query := r.db.WithContext(ctx).
		Joins("JOIN alerts ON alerts.alert_id = meetings.alert_id").
		Where("alerts.meeting_created = ?", false)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&meetings).Error
	return meetings, err
}
