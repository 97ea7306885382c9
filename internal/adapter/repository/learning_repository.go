package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
)

// learningRepository implements the LearningRepository interface
type learningRepository struct {
	db *gorm.DB
}

// NewLearningRepository creates a new learning repository
func NewLearningRepository(db *gorm.DB) repositories.LearningRepository {
	return &learningRepository{db: db}
}

// Create appends a learning record
func (r *learningRepository) Create(ctx context.Context, record *entities.LearningRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByAgent retrieves recent learning records for one agent
func (r *learningRepository) FindByAgent(ctx context.Context, agentName string, limit int) ([]*entities.LearningRecord, error) {
	var records []*entities.LearningRecord
	query := r.db.WithContext(ctx).
		Where("agent_name = ?", agentName).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}
