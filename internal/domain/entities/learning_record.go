package entities

import (
	"time"

	"gorm.io/datatypes"
)

// LearningRecord is an append-only audit/feedback entry written by the
// learning stage. There is no update or delete path.
type LearningRecord struct {
	ID                 uint                        `gorm:"primary_key" json:"id"`
	AgentName          string                      `gorm:"type:varchar(100);index" json:"agent_name"`
	InteractionType    string                      `gorm:"type:varchar(100);index" json:"interaction_type"`
	Query              string                      `gorm:"type:text" json:"query"`
	Response           string                      `gorm:"type:text" json:"response"`
	Context            datatypes.JSON              `gorm:"type:jsonb" json:"context,omitempty"`
	PatternsIdentified datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"patterns_identified,omitempty"`
	CreatedAt          time.Time                   `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for LearningRecord
func (LearningRecord) TableName() string {
	return "learning_records"
}
