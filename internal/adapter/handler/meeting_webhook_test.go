package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	pkgvalidator "github.com/chainsync-ai/alertbridge/pkg/validator"
)

type stubMeetingRepo struct {
	meetings map[string]*entities.Meeting
	updated  map[string]entities.MeetingStatus
}

func newStubMeetingRepo() *stubMeetingRepo {
	return &stubMeetingRepo{
		meetings: make(map[string]*entities.Meeting),
		updated:  make(map[string]entities.MeetingStatus),
	}
}

func (r *stubMeetingRepo) Create(_ context.Context, m *entities.Meeting) error {
	r.meetings[m.MeetingID] = m
	return nil
}

func (r *stubMeetingRepo) FindByMeetingID(_ context.Context, id string) (*entities.Meeting, error) {
	return r.meetings[id], nil
}

func (r *stubMeetingRepo) FindByAlertID(_ context.Context, _ string) (*entities.Meeting, error) {
	return nil, nil
}

func (r *stubMeetingRepo) FindRecent(_ context.Context, _ int) ([]*entities.Meeting, error) {
	return nil, nil
}

func (r *stubMeetingRepo) UpdateStatus(_ context.Context, id string, status entities.MeetingStatus) error {
	r.updated[id] = status
	return nil
}

func (r *stubMeetingRepo) FindOrphans(_ context.Context, _ int) ([]*entities.Meeting, error) {
	return nil, nil
}

func serveMeetingEvent(t *testing.T, repo *stubMeetingRepo, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = pkgvalidator.New()
	h := NewMeetingWebhook(repo, zap.NewNop())
	e.POST("/webhooks/slotify/meeting", h.Receive)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/slotify/meeting", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMeetingWebhook_CompletedEvent(t *testing.T) {
	repo := newStubMeetingRepo()
	repo.meetings["mtg-1"] = &entities.Meeting{MeetingID: "mtg-1", Status: entities.MeetingStatusScheduled}

	rec := serveMeetingEvent(t, repo, `{"meeting_id":"mtg-1","event_type":"completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.updated["mtg-1"] != entities.MeetingStatusCompleted {
		t.Fatalf("status not updated: %v", repo.updated)
	}
}

func TestMeetingWebhook_RescheduledKeepsStatus(t *testing.T) {
	repo := newStubMeetingRepo()
	repo.meetings["mtg-2"] = &entities.Meeting{MeetingID: "mtg-2", Status: entities.MeetingStatusScheduled}

	rec := serveMeetingEvent(t, repo, `{"meeting_id":"mtg-2","event_type":"rescheduled"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, ok := repo.updated["mtg-2"]; ok {
		t.Fatal("rescheduled event must not change status")
	}
}

func TestMeetingWebhook_UnknownMeeting(t *testing.T) {
	rec := serveMeetingEvent(t, newStubMeetingRepo(), `{"meeting_id":"nope","event_type":"completed"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMeetingWebhook_InvalidEventType(t *testing.T) {
	rec := serveMeetingEvent(t, newStubMeetingRepo(), `{"meeting_id":"mtg-3","event_type":"exploded"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid event type, got %d", rec.Code)
	}
}
