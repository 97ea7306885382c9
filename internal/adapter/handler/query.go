package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
	"github.com/chainsync-ai/alertbridge/pkg/config"
)

const defaultQueryLimit = 20

// Query serves the read-only endpoints: recent alerts and meetings,
// health, and service status.
type Query struct {
	alerts   repositories.AlertRepository
	meetings repositories.MeetingRepository
	logs     repositories.WebhookLogRepository
	cfg      *config.Config
	logger   *zap.Logger
	started  time.Time
}

// NewQuery creates the handler.
func NewQuery(alerts repositories.AlertRepository, meetings repositories.MeetingRepository, logs repositories.WebhookLogRepository, cfg *config.Config, logger *zap.Logger) *Query {
	return &Query{
		alerts:   alerts,
		meetings: meetings,
		logs:     logs,
		cfg:      cfg,
		logger:   logger,
		started:  time.Now(),
	}
}

// RecentAlerts handles GET /alerts/recent. A severity query parameter
// narrows the list.
func (h *Query) RecentAlerts(c echo.Context) error {
	limit := queryLimit(c)
	ctx := c.Request().Context()

	var (
		alerts []*entities.Alert
		err    error
	)
	if severity := c.QueryParam("severity"); severity != "" {
		alerts, err = h.alerts.FindBySeverity(ctx, entities.Severity(severity), limit)
	} else {
		alerts, err = h.alerts.FindRecent(ctx, limit)
	}
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// RecentMeetings handles GET /meetings/recent.
func (h *Query) RecentMeetings(c echo.Context) error {
	meetings, err := h.meetings.FindRecent(c.Request().Context(), queryLimit(c))
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, map[string]interface{}{
		"meetings": meetings,
		"count":    len(meetings),
	})
}

// RejectedWebhooks handles GET /webhooks/rejected, the audit view of
// recently turned-away requests.
func (h *Query) RejectedWebhooks(c echo.Context) error {
	entries, err := h.logs.FindRejected(c.Request().Context(), queryLimit(c))
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, map[string]interface{}{
		"rejections": entries,
		"count":      len(entries),
	})
}

// Health handles GET /health.
func (h *Query) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "alertbridge",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status handles GET /status: which integrations are live and how long
// the service has been up.
func (h *Query) Status(c echo.Context) error {
	return HandleSuccess(h.logger, c, map[string]interface{}{
		"status": "operational",
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"integrations": map[string]string{
			"slotify":   enabledWhen(h.cfg.Slotify.APIKey != ""),
			"chainsync": enabledWhen(h.cfg.ChainSync.APIKey != ""),
			"groq":      enabledWhen(h.cfg.Groq.APIKey != ""),
			"database":  "enabled",
		},
		"security": map[string]bool{
			"api_key_auth":           h.cfg.Security.APIKey != "",
			"signature_verification": h.cfg.Security.SignatureEnabled(),
		},
	})
}

func enabledWhen(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled (mock mode)"
}

func queryLimit(c echo.Context) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultQueryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 100 {
		return defaultQueryLimit
	}
	return limit
}
