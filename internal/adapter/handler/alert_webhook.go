package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/chainsync-ai/alertbridge/errors"
	"github.com/chainsync-ai/alertbridge/internal/adapter/dto/webhook"
	"github.com/chainsync-ai/alertbridge/internal/usecase/pipeline"
	"github.com/chainsync-ai/alertbridge/internal/usecase/policy"
)

// AlertWebhook receives ChainSync alert webhooks and drives the
// enrichment pipeline.
type AlertWebhook struct {
	orch   *pipeline.Orchestrator
	logger *zap.Logger
}

// NewAlertWebhook creates the handler.
func NewAlertWebhook(orch *pipeline.Orchestrator, logger *zap.Logger) *AlertWebhook {
	return &AlertWebhook{orch: orch, logger: logger}
}

// Receive handles POST /webhooks/chainsync/alert.
func (h *AlertWebhook) Receive(c echo.Context) error {
	start := time.Now()

	var req webhook.ChainSyncAlert
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrValidation("Invalid JSON payload"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrValidation(err.Error()))
	}

	alert, err := req.ToEntity()
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	// The pipeline finishes even if the webhook caller disconnects;
	// the meeting must not be half-created because of a dropped socket.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Minute)
	defer cancel()

	result, err := h.orch.Process(ctx, alert)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, webhook.AlertProcessedResponse{
		AlertID:          result.AlertID,
		MeetingID:        result.MeetingID,
		MeetingURL:       result.MeetingURL,
		Urgency:          urgencyResponse(result.Urgency),
		RootCause:        result.RootCause,
		ComplianceStatus: string(result.ComplianceStatus),
		AlreadyProcessed: result.AlreadyProcessed,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	})
}

func urgencyResponse(d policy.UrgencyDecision) webhook.UrgencyResponse {
	return webhook.UrgencyResponse{
		Level:                  string(d.Level),
		Score:                  d.Score,
		RecommendedResponse:    responseWindow(d.RespondWithin),
		MeetingDurationMinutes: d.MeetingDurationMin,
	}
}

// responseWindow renders the response bound the way operators read it.
func responseWindow(d time.Duration) string {
	if d == 0 {
		return ""
	}
	if d <= time.Hour {
		return "< 1 hour"
	}
	return fmt.Sprintf("< %d hours", int(d.Hours()))
}
