package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/chainsync-ai/alertbridge/errors"
	"github.com/chainsync-ai/alertbridge/internal/adapter/dto/webhook"
	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
)

// MeetingWebhook receives Slotify meeting lifecycle callbacks and keeps
// the stored meeting status in sync.
type MeetingWebhook struct {
	meetings repositories.MeetingRepository
	logger   *zap.Logger
}

// NewMeetingWebhook creates the handler.
func NewMeetingWebhook(meetings repositories.MeetingRepository, logger *zap.Logger) *MeetingWebhook {
	return &MeetingWebhook{meetings: meetings, logger: logger}
}

// Receive handles POST /webhooks/slotify/meeting.
func (h *MeetingWebhook) Receive(c echo.Context) error {
	var req webhook.SlotifyMeetingEvent
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrValidation("Invalid JSON payload"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrValidation(err.Error()))
	}

	ctx := c.Request().Context()
	meeting, err := h.meetings.FindByMeetingID(ctx, req.MeetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if meeting == nil {
		return HandleError(h.logger, c, apperrors.ErrNotFound("Meeting"))
	}

	status := meeting.Status
	switch req.EventType {
	case "completed":
		status = entities.MeetingStatusCompleted
	case "cancelled":
		status = entities.MeetingStatusCancelled
	case "rescheduled":
		// The meeting stays scheduled; Slotify keeps the same id.
	}

	if status != meeting.Status {
		if err := h.meetings.UpdateStatus(ctx, req.MeetingID, status); err != nil {
			return HandleError(h.logger, c, err)
		}
		h.logger.Info("meeting status updated",
			zap.String("meeting_id", req.MeetingID),
			zap.String("status", string(status)))
	}

	return HandleSuccess(h.logger, c, webhook.MeetingEventResponse{
		MeetingID: req.MeetingID,
		Status:    string(status),
	})
}
