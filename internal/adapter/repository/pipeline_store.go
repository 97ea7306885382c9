package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
)

// pipelineStore implements the atomic Meeting+Alert write
type pipelineStore struct {
	db *gorm.DB
}

// NewPipelineStore creates the transactional store used by the orchestrator
func NewPipelineStore(db *gorm.DB) repositories.PipelineStore {
	return &pipelineStore{db: db}
}

// SaveMeetingAndAlert persists the Meeting and the Alert in one
// transaction. The Meeting goes in first and the Alert flag last, so a
// crash between the two can never leave meeting_created=true without a
// Meeting row; the inverse orphan is repaired by the reconciliation sweep.
func (s *pipelineStore) SaveMeetingAndAlert(ctx context.Context, meeting *entities.Meeting, alert *entities.Alert) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(meeting).Error; err != nil {
			return err
		}
		return tx.
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
	})
}
