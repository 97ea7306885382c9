package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
)

// webhookLogRepository implements the WebhookLogRepository interface
type webhookLogRepository struct {
	db *gorm.DB
}

// NewWebhookLogRepository creates a new webhook log repository
func NewWebhookLogRepository(db *gorm.DB) repositories.WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

// Create appends a webhook log entry
func (r *webhookLogRepository) Create(ctx context.Context, log *entities.WebhookLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindRecent retrieves the most recent webhook log entries
func (r *webhookLogRepository) FindRecent(ctx context.Context, limit int) ([]*entities.WebhookLog, error) {
	var logs []*entities.WebhookLog
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}

// FindRejected retrieves recent rejected requests
func (r *webhookLogRepository) FindRejected(ctx context.Context, limit int) ([]*entities.WebhookLog, error) {
	var logs []*entities.WebhookLog
	query := r.db.WithContext(ctx).
		Where("outcome = ?", entities.OutcomeRejected).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}
