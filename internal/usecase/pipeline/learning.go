package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
)

// LearningStage records each processed alert as an append-only pattern
// observation. It is strictly best-effort: failures are logged and never
// surface to the webhook caller.
type LearningStage struct {
	repo   repositories.LearningRepository
	logger *zap.Logger
}

// NewLearningStage builds the stage over the learning store.
func NewLearningStage(repo repositories.LearningRepository, logger *zap.Logger) *LearningStage {
	return &LearningStage{repo: repo, logger: logger}
}

// Record persists one learning entry for a completed pipeline run.
func (s *LearningStage) Record(ctx context.Context, alert *entities.Alert, mc MeetingContext) {
	if s.repo == nil {
		return
	}

	contextJSON, err := json.Marshal(map[string]any{
		"alert_to_meeting": true,
		"severity":         alert.Severity,
		"urgency_level":    mc.Urgency.Level,
		"urgency_score":    mc.Urgency.Score,
	})
	if err != nil {
		contextJSON = []byte("{}")
	}

	record := &entities.LearningRecord{
		AgentName:          "continuous_learning",
		InteractionType:    "alert_to_meeting",
		Query:              fmt.Sprintf("Alert: %s - %s", alert.AlertType, alert.Description),
		Response:           mc.WhyScheduled,
		Context:            datatypes.JSON(contextJSON),
		PatternsIdentified: identifyPatterns(alert, mc),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Warn("learning record write failed",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err))
	}
}

// identifyPatterns derives the recurring-signal tags for this run: the
// alert-to-urgency mapping always, plus markers for compliance problems
// and failed scheduling. Offline analysis aggregates these across rows.
func identifyPatterns(alert *entities.Alert, mc MeetingContext) []string {
	patterns := []string{
		fmt.Sprintf("%s:%s:%s", alert.AlertType, alert.Severity, strings.ToLower(string(mc.Urgency.Level))),
	}
	if alert.ComplianceStatus == entities.ComplianceNonCompliant {
		patterns = append(patterns, "compliance_violation:"+alert.AlertType)
	}
	if alert.ProcessingError != nil {
		patterns = append(patterns, "schedule_failed:"+alert.AlertType)
	}
	return patterns
}
