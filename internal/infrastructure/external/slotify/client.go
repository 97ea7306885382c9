// Package slotify is the client for the Slotify meeting scheduling API.
package slotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/pkg/config"
	"github.com/chainsync-ai/alertbridge/pkg/httpclient"
)

// CreateMeetingRequest is the payload for POST /meetings.
type CreateMeetingRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	ScheduledTime   string   `json:"scheduled_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Attendees       []string `json:"attendees"`
	AlertReference  string   `json:"alert_reference,omitempty"`
	Organizer       string   `json:"organizer,omitempty"`
}

// Meeting is the scheduling result returned by Slotify.
type Meeting struct {
	MeetingID  string `json:"meeting_id"`
	MeetingURL string `json:"meeting_url"`
	Status     string `json:"status"`
	Mock       bool   `json:"mock,omitempty"`
}

// Client talks to Slotify. Without an API key it runs in mock mode:
// every call succeeds locally with a synthetic meeting, so the pipeline
// stays exercisable in development.
type Client struct {
	apiURL string
	apiKey string
	hc     *httpclient.Client
	logger *zap.Logger
}

// NewClient creates a Slotify client from config.
func NewClient(cfg *config.SlotifyConfig, logger *zap.Logger) *Client {
	policy := httpclient.DefaultPolicy()
	policy.AttemptTimeout = cfg.TimeoutDuration()
	return &Client{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		hc:     httpclient.New("slotify", policy, logger),
		logger: logger,
	}
}

// MockMode reports whether the client fabricates meetings locally.
func (c *Client) MockMode() bool {
	return c.apiKey == ""
}

// CreateMeeting schedules a meeting and returns its id and join URL.
func (c *Client) CreateMeeting(ctx context.Context, req CreateMeetingRequest) (*Meeting, error) {
	if c.MockMode() {
		c.logger.Warn("slotify api key not configured, returning mock meeting")
		return c.mockMeeting(), nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(ctx, httpclient.Request{
		Method:  "POST",
		URL:     c.apiURL + "/meetings",
		Headers: c.headers(),
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("slotify returned status %d", resp.StatusCode)
	}

	var meeting Meeting
	if err := json.Unmarshal(resp.Body, &meeting); err != nil {
		return nil, err
	}
	c.logger.Info("created slotify meeting", zap.String("meeting_id", meeting.MeetingID))
	return &meeting, nil
}

// CancelMeeting cancels a previously scheduled meeting.
func (c *Client) CancelMeeting(ctx context.Context, meetingID, reason string) error {
	if c.MockMode() {
		return nil
	}

	payload := map[string]string{"status": "cancelled"}
	if reason != "" {
		payload["cancellation_reason"] = reason
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(ctx, httpclient.Request{
		Method:  "POST",
		URL:     fmt.Sprintf("%s/meetings/%s/cancel", c.apiURL, meetingID),
		Headers: c.headers(),
		Body:    body,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("slotify returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.apiKey,
	}
}

func (c *Client) mockMeeting() *Meeting {
	id := "slotify-mock-" + uuid.NewString()
	return &Meeting{
		MeetingID:  id,
		MeetingURL: "https://slotify.com/meetings/" + id,
		Status:     "scheduled",
		Mock:       true,
	}
}

// FormatScheduledTime renders a start time the way the API expects.
func FormatScheduledTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
