// Package chainsync is the client for the ChainSync alert platform API.
package chainsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/pkg/config"
	"github.com/chainsync-ai/alertbridge/pkg/httpclient"
)

// AlertDetail is the full alert record as ChainSync stores it.
type AlertDetail struct {
	AlertID              string          `json:"alert_id"`
	AlertType            string          `json:"alert_type"`
	Severity             string          `json:"severity"`
	Description          string          `json:"description"`
	Status               string          `json:"status"`
	AffectedSystems      []string        `json:"affected_systems,omitempty"`
	ComplianceFrameworks []string        `json:"compliance_frameworks,omitempty"`
	Raw                  json.RawMessage `json:"details,omitempty"`
	Mock                 bool            `json:"mock,omitempty"`
}

// StatusUpdate carries the fields of an alert status change.
type StatusUpdate struct {
	Status     string `json:"status"`
	MeetingURL string `json:"meeting_url,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Client talks to ChainSync. Without an API key all calls succeed
// locally without touching the network.
type Client struct {
	apiURL string
	apiKey string
	hc     *httpclient.Client
	logger *zap.Logger
}

// NewClient creates a ChainSync client from config.
func NewClient(cfg *config.ChainSyncConfig, logger *zap.Logger) *Client {
	policy := httpclient.DefaultPolicy()
	policy.AttemptTimeout = cfg.TimeoutDuration()
	return &Client{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		hc:     httpclient.New("chainsync", policy, logger),
		logger: logger,
	}
}

// MockMode reports whether the client skips real API calls.
func (c *Client) MockMode() bool {
	return c.apiKey == ""
}

// GetAlert fetches the full alert record by id.
func (c *Client) GetAlert(ctx context.Context, alertID string) (*AlertDetail, error) {
	if c.MockMode() {
		c.logger.Warn("chainsync api key not configured, returning mock alert",
			zap.String("alert_id", alertID))
		return &AlertDetail{AlertID: alertID, Mock: true}, nil
	}

	resp, err := c.hc.Do(ctx, httpclient.Request{
		Method:  "GET",
		URL:     fmt.Sprintf("%s/alerts/%s", c.apiURL, alertID),
		Headers: c.headers(),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("chainsync returned status %d", resp.StatusCode)
	}

	var detail AlertDetail
	if err := json.Unmarshal(resp.Body, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// UpdateAlertStatus changes the alert status and optionally attaches the
// meeting URL, so responders can join directly from ChainSync.
func (c *Client) UpdateAlertStatus(ctx context.Context, alertID string, update StatusUpdate) error {
	if c.MockMode() {
		return nil
	}

	body, err := json.Marshal(update)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(ctx, httpclient.Request{
		Method:  "PATCH",
		URL:     fmt.Sprintf("%s/alerts/%s", c.apiURL, alertID),
		Headers: c.headers(),
		Body:    body,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("chainsync returned status %d", resp.StatusCode)
	}
	return nil
}

// AddComment attaches an annotation to the alert timeline.
func (c *Client) AddComment(ctx context.Context, alertID, comment string) error {
	if c.MockMode() {
		return nil
	}

	payload := map[string]string{
		"comment":   comment,
		"author":    "AlertBridge",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(ctx, httpclient.Request{
		Method:  "POST",
		URL:     fmt.Sprintf("%s/alerts/%s/comments", c.apiURL, alertID),
		Headers: c.headers(),
		Body:    body,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("chainsync returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"X-API-Key":    c.apiKey,
	}
}
