package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chainsync-ai/alertbridge/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	alertHandler   *AlertWebhook
	meetingHandler *MeetingWebhook
	queryHandler   *Query
	gateway        echo.MiddlewareFunc
}

// NewRouter creates a new router with all handlers. The gateway
// middleware guards every /webhooks route.
func NewRouter(cfg *config.Config, alertHandler *AlertWebhook, meetingHandler *MeetingWebhook, queryHandler *Query, gateway echo.MiddlewareFunc) *Router {
	return &Router{
		cfg:            cfg,
		alertHandler:   alertHandler,
		meetingHandler: meetingHandler,
		queryHandler:   queryHandler,
		gateway:        gateway,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/", rt.root)
	e.GET("/health", rt.queryHandler.Health)
	e.GET("/status", rt.queryHandler.Status)

	webhooks := e.Group("/webhooks", rt.gateway)
	webhooks.POST("/chainsync/alert", rt.alertHandler.Receive)
	webhooks.POST("/slotify/meeting", rt.meetingHandler.Receive)

	e.GET("/alerts/recent", rt.queryHandler.RecentAlerts)
	e.GET("/meetings/recent", rt.queryHandler.RecentMeetings)
	e.GET("/webhooks/rejected", rt.queryHandler.RejectedWebhooks)
}

// root returns API information
func (rt *Router) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "AlertBridge Webhook Server",
		"version": "1.0.0",
		"features": map[string]bool{
			"api_key_auth":           rt.cfg.Security.APIKey != "",
			"signature_verification": rt.cfg.Security.SignatureEnabled(),
			"database_persistence":   true,
			"slotify_integration":    rt.cfg.Slotify.APIKey != "",
			"chainsync_integration":  rt.cfg.ChainSync.APIKey != "",
		},
		"endpoints": map[string]string{
			"chainsync_alerts": "/webhooks/chainsync/alert",
			"slotify_meetings": "/webhooks/slotify/meeting",
			"recent_alerts":    "/alerts/recent",
			"recent_meetings":  "/meetings/recent",
			"health":           "/health",
			"status":           "/status",
		},
	})
}
