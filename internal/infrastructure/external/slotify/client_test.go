package slotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/pkg/config"
)

func TestCreateMeeting_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/meetings" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Fatalf("missing bearer token")
		}
		var payload CreateMeetingRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if payload.Title == "" || payload.DurationMinutes == 0 {
			t.Fatalf("incomplete payload: %+v", payload)
		}
		json.NewEncoder(w).Encode(Meeting{
			MeetingID:  "mtg-42",
			MeetingURL: "https://slotify.com/meetings/mtg-42",
			Status:     "scheduled",
		})
	}))
	defer ts.Close()

	client := NewClient(&config.SlotifyConfig{APIURL: ts.URL, APIKey: "test-key", Timeout: 5}, zap.NewNop())

	meeting, err := client.CreateMeeting(context.Background(), CreateMeetingRequest{
		Title:           "Incident Response: database outage",
		Description:     "agenda",
		ScheduledTime:   "2026-08-29T10:00:00Z",
		DurationMinutes: 60,
		Attendees:       []string{"Technical Lead", "Operations"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meeting.MeetingID != "mtg-42" {
		t.Fatalf("unexpected meeting id %s", meeting.MeetingID)
	}
	if meeting.Mock {
		t.Fatal("real response flagged as mock")
	}
}

func TestCreateMeeting_MockModeWithoutKey(t *testing.T) {
	client := NewClient(&config.SlotifyConfig{APIURL: "http://127.0.0.1:0", Timeout: 1}, zap.NewNop())

	meeting, err := client.CreateMeeting(context.Background(), CreateMeetingRequest{Title: "x"})
	if err != nil {
		t.Fatalf("mock mode should not fail: %v", err)
	}
	if !meeting.Mock {
		t.Fatal("expected mock meeting")
	}
	if meeting.MeetingID == "" || meeting.MeetingURL == "" {
		t.Fatalf("mock meeting missing fields: %+v", meeting)
	}
}

func TestCreateMeeting_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	client := NewClient(&config.SlotifyConfig{APIURL: ts.URL, APIKey: "test-key", Timeout: 5}, zap.NewNop())

	if _, err := client.CreateMeeting(context.Background(), CreateMeetingRequest{Title: "x"}); err == nil {
		t.Fatal("expected error on 422")
	}
	if calls != 1 {
		t.Fatalf("4xx should not be retried, got %d calls", calls)
	}
}
