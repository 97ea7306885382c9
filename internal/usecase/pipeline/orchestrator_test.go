package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	apperrors "github.com/chainsync-ai/alertbridge/errors"
	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/external/chainsync"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/external/slotify"
	"github.com/chainsync-ai/alertbridge/internal/usecase/policy"
)

// fakeAlertRepo is an in-memory AlertRepository keyed by alert_id.
type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts map[string]*entities.Alert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]*entities.Alert)}
}

func (r *fakeAlertRepo) Create(_ context.Context, alert *entities.Alert) error {
	return r.Upsert(context.Background(), alert)
}

func (r *fakeAlertRepo) FindByAlertID(_ context.Context, alertID string) (*entities.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.alerts[alertID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeAlertRepo) FindBySeverity(_ context.Context, severity entities.Severity, _ int) ([]*entities.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Alert
	for _, a := range r.alerts {
		if a.Severity == severity {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) FindRecent(_ context.Context, _ int) ([]*entities.Alert, error) {
	return nil, nil
}

func (r *fakeAlertRepo) Upsert(_ context.Context, alert *entities.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *alert
	r.alerts[alert.AlertID] = &copied
	return nil
}

func (r *fakeAlertRepo) MarkMeetingCreated(_ context.Context, alertID, meetingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok {
		return errors.New("alert not found")
	}
	a.MeetingCreated = true
	a.MeetingID = &meetingID
	return nil
}

// fakeMeetingRepo is an in-memory MeetingRepository.
type fakeMeetingRepo struct {
	mu       sync.Mutex
	meetings map[string]*entities.Meeting
	orphans  []*entities.Meeting
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{meetings: make(map[string]*entities.Meeting)}
}

func (r *fakeMeetingRepo) Create(_ context.Context, meeting *entities.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *meeting
	r.meetings[meeting.MeetingID] = &copied
	return nil
}

func (r *fakeMeetingRepo) FindByMeetingID(_ context.Context, meetingID string) (*entities.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.meetings[meetingID]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeMeetingRepo) FindByAlertID(_ context.Context, alertID string) (*entities.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.meetings {
		if m.AlertID == alertID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMeetingRepo) FindRecent(_ context.Context, _ int) ([]*entities.Meeting, error) {
	return nil, nil
}

func (r *fakeMeetingRepo) UpdateStatus(_ context.Context, meetingID string, status entities.MeetingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.meetings[meetingID]; ok {
		m.Status = status
		return nil
	}
	return errors.New("meeting not found")
}

func (r *fakeMeetingRepo) FindOrphans(_ context.Context, _ int) ([]*entities.Meeting, error) {
	return r.orphans, nil
}

func (r *fakeMeetingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.meetings)
}

// fakeStore applies both writes against the fakes, mimicking the
// transactional store.
type fakeStore struct {
	alerts   *fakeAlertRepo
	meetings *fakeMeetingRepo
	failWith error
}

func (s *fakeStore) SaveMeetingAndAlert(ctx context.Context, meeting *entities.Meeting, alert *entities.Alert) error {
	if s.failWith != nil {
		return s.failWith
	}
	if err := s.meetings.Create(ctx, meeting); err != nil {
		return err
	}
	return s.alerts.Upsert(ctx, alert)
}

// fakeScheduler counts calls and can be set to fail.
type fakeScheduler struct {
	mu        sync.Mutex
	calls     int
	cancelled []string
	failWith  error
}

func (s *fakeScheduler) CreateMeeting(_ context.Context, req slotify.CreateMeetingRequest) (*slotify.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failWith != nil {
		return nil, s.failWith
	}
	id := "mtg-" + req.AlertReference
	return &slotify.Meeting{
		MeetingID:  id,
		MeetingURL: "https://slotify.com/meetings/" + id,
		Status:     "scheduled",
	}, nil
}

func (s *fakeScheduler) CancelMeeting(_ context.Context, meetingID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, meetingID)
	return nil
}

func (s *fakeScheduler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeScheduler) cancelledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cancelled...)
}

// fakePlatform records status updates and comments, and serves a
// canned alert detail for backfill lookups.
type fakePlatform struct {
	mu       sync.Mutex
	statuses []chainsync.StatusUpdate
	comments []string
	detail   *chainsync.AlertDetail
}

func (p *fakePlatform) GetAlert(_ context.Context, alertID string) (*chainsync.AlertDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detail != nil {
		copied := *p.detail
		return &copied, nil
	}
	return &chainsync.AlertDetail{AlertID: alertID, Mock: true}, nil
}

func (p *fakePlatform) UpdateAlertStatus(_ context.Context, _ string, update chainsync.StatusUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, update)
	return nil
}

func (p *fakePlatform) AddComment(_ context.Context, _ string, comment string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments = append(p.comments, comment)
	return nil
}

// fakeLearningRepo stores records and can be set to fail.
type fakeLearningRepo struct {
	mu       sync.Mutex
	records  []*entities.LearningRecord
	failWith error
}

func (r *fakeLearningRepo) Create(_ context.Context, record *entities.LearningRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.records = append(r.records, record)
	return nil
}

func (r *fakeLearningRepo) FindByAgent(_ context.Context, _ string, _ int) ([]*entities.LearningRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records, nil
}

func (r *fakeLearningRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// fakeGenerator returns a fixed response or fails.
type fakeGenerator struct {
	response string
	failWith error
}

func (g *fakeGenerator) Available() bool { return true }

func (g *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	if g.failWith != nil {
		return "", g.failWith
	}
	return g.response, nil
}

// panicGenerator simulates a generator bug escaping a stage.
type panicGenerator struct{}

func (panicGenerator) Available() bool { return true }

func (panicGenerator) Generate(context.Context, string) (string, error) {
	panic("generator blew up")
}

type testHarness struct {
	orch      *Orchestrator
	alerts    *fakeAlertRepo
	meetings  *fakeMeetingRepo
	store     *fakeStore
	scheduler *fakeScheduler
	platform  *fakePlatform
	learning  *fakeLearningRepo
}

func newHarness(gen TextGenerator) *testHarness {
	logger := zap.NewNop()
	alerts := newFakeAlertRepo()
	meetings := newFakeMeetingRepo()
	store := &fakeStore{alerts: alerts, meetings: meetings}
	scheduler := &fakeScheduler{}
	platform := &fakePlatform{}
	learning := &fakeLearningRepo{}
	engine := policy.NewEngine(nil)

	orch := NewOrchestrator(
		alerts, meetings,
		store,
		scheduler, platform,
		NewRootCauseStage(gen, logger),
		NewComplianceStage(gen, logger),
		NewMeetingContextStage(engine, gen, logger),
		NewLearningStage(learning, logger),
		logger,
	)
	return &testHarness{orch: orch, alerts: alerts, meetings: meetings, store: store, scheduler: scheduler, platform: platform, learning: learning}
}

func testAlert(id string) *entities.Alert {
	return &entities.Alert{
		AlertID:         id,
		AlertType:       "security_incident",
		Severity:        entities.SeverityCritical,
		Description:     "Unauthorized access detected on production database",
		AffectedSystems: []string{"db-primary", "auth-service"},
	}
}

func TestProcess_FullRun(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "Leaked credential reuse", "recommendations": ["Rotate credentials", "Enable MFA"]}`})

	result, err := h.orch.Process(context.Background(), testAlert("alert-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MeetingID == "" || result.MeetingURL == "" {
		t.Fatalf("result missing meeting: %+v", result)
	}
	if result.Urgency.Level != policy.UrgencyCritical {
		t.Fatalf("expected CRITICAL urgency, got %s", result.Urgency.Level)
	}
	if result.RootCause != "Leaked credential reuse" {
		t.Fatalf("unexpected root cause: %q", result.RootCause)
	}

	saved, _ := h.alerts.FindByAlertID(context.Background(), "alert-1")
	if saved == nil || !saved.MeetingCreated || !saved.IsProcessed() {
		t.Fatalf("alert not marked processed: %+v", saved)
	}
	meeting, _ := h.meetings.FindByAlertID(context.Background(), "alert-1")
	if meeting == nil {
		t.Fatal("meeting row missing")
	}
	if meeting.UrgencyLevel != "CRITICAL" || meeting.DurationMinutes != 60 {
		t.Fatalf("unexpected meeting record: %+v", meeting)
	}
	if len(meeting.DiscussionPoints) < 5 || len(meeting.DiscussionPoints) > 7 {
		t.Fatalf("expected 5-7 discussion points, got %d", len(meeting.DiscussionPoints))
	}

	h.orch.Wait()
	if h.learning.count() != 1 {
		t.Fatalf("expected one learning record, got %d", h.learning.count())
	}
	records, _ := h.learning.FindByAgent(context.Background(), "continuous_learning", 1)
	if len(records[0].PatternsIdentified) == 0 {
		t.Fatalf("learning record missing patterns: %+v", records[0])
	}
	if records[0].PatternsIdentified[0] != "security_incident:critical:critical" {
		t.Fatalf("unexpected pattern tag: %q", records[0].PatternsIdentified[0])
	}
	if len(h.platform.statuses) != 1 || h.platform.statuses[0].Status != "meeting_scheduled" {
		t.Fatalf("platform not notified: %+v", h.platform.statuses)
	}
}

func TestProcess_IdempotentRedelivery(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "x", "recommendations": ["y"]}`})
	ctx := context.Background()

	first, err := h.orch.Process(ctx, testAlert("alert-dup"))
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	second, err := h.orch.Process(ctx, testAlert("alert-dup"))
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if !second.AlreadyProcessed {
		t.Fatal("redelivery not flagged as already processed")
	}
	if second.MeetingID != first.MeetingID {
		t.Fatalf("meeting id changed on redelivery: %s vs %s", second.MeetingID, first.MeetingID)
	}
	if h.scheduler.callCount() != 1 {
		t.Fatalf("scheduler called %d times, want 1", h.scheduler.callCount())
	}
	if h.meetings.count() != 1 {
		t.Fatalf("expected one meeting row, got %d", h.meetings.count())
	}
}

func TestProcess_SchedulingFailure(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "x", "recommendations": ["y"]}`})
	h.scheduler.failWith = apperrors.ErrUpstreamUnavailable("slotify", errors.New("connection refused"))

	_, err := h.orch.Process(context.Background(), testAlert("alert-fail"))
	if err == nil {
		t.Fatal("expected error when scheduling fails")
	}
	appErr, ok := err.(apperrors.AppError)
	if !ok || appErr.Code != apperrors.ErrorCode_UPSTREAM_UNAVAILABLE {
		t.Fatalf("unexpected error shape: %v", err)
	}

	saved, _ := h.alerts.FindByAlertID(context.Background(), "alert-fail")
	if saved == nil {
		t.Fatal("failed alert not recorded")
	}
	if saved.MeetingCreated {
		t.Fatal("meeting_created must stay false on scheduling failure")
	}
	if saved.ProcessingError == nil {
		t.Fatal("processing_error not recorded")
	}
	if h.meetings.count() != 0 {
		t.Fatalf("no meeting row should exist, got %d", h.meetings.count())
	}

	// The learning stage observes the failed decision too.
	h.orch.Wait()
	if h.learning.count() != 1 {
		t.Fatalf("expected a learning record for the failed run, got %d", h.learning.count())
	}
	records, _ := h.learning.FindByAgent(context.Background(), "continuous_learning", 1)
	found := false
	for _, p := range records[0].PatternsIdentified {
		if p == "schedule_failed:security_incident" {
			found = true
		}
	}
	if !found {
		t.Fatalf("failed run not tagged in patterns: %+v", records[0].PatternsIdentified)
	}
}

func TestProcess_PersistFailureCancelsMeeting(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "x", "recommendations": ["y"]}`})
	h.store.failWith = errors.New("transaction aborted")

	_, err := h.orch.Process(context.Background(), testAlert("alert-persist"))
	if err == nil {
		t.Fatal("expected error when persistence fails")
	}

	cancelled := h.scheduler.cancelledIDs()
	if len(cancelled) != 1 || cancelled[0] != "mtg-alert-persist" {
		t.Fatalf("scheduled meeting not cancelled: %v", cancelled)
	}
	saved, _ := h.alerts.FindByAlertID(context.Background(), "alert-persist")
	if saved == nil || saved.MeetingCreated || saved.MeetingID != nil {
		t.Fatalf("alert should not reference the cancelled meeting: %+v", saved)
	}
	if saved.ProcessingError == nil {
		t.Fatal("persistence failure not recorded on the alert")
	}
}

func TestProcess_SparsePayloadBackfilledFromPlatform(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "x", "recommendations": ["y"]}`})
	h.platform.detail = &chainsync.AlertDetail{
		AlertID:              "alert-sparse",
		AffectedSystems:      []string{"payments-api", "ledger"},
		ComplianceFrameworks: []string{"PCI-DSS"},
	}

	alert := testAlert("alert-sparse")
	alert.AffectedSystems = nil
	if _, err := h.orch.Process(context.Background(), alert); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, _ := h.alerts.FindByAlertID(context.Background(), "alert-sparse")
	if len(saved.AffectedSystems) != 2 || saved.AffectedSystems[0] != "payments-api" {
		t.Fatalf("affected systems not backfilled: %+v", saved.AffectedSystems)
	}
	if len(saved.ComplianceFrameworks) != 1 || saved.ComplianceFrameworks[0] != "PCI-DSS" {
		t.Fatalf("compliance frameworks not backfilled: %+v", saved.ComplianceFrameworks)
	}
}

func TestProcess_DeliveredFieldsWinOverPlatformDetail(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "x", "recommendations": ["y"]}`})
	h.platform.detail = &chainsync.AlertDetail{
		AlertID:         "alert-full",
		AffectedSystems: []string{"stale-system"},
	}

	if _, err := h.orch.Process(context.Background(), testAlert("alert-full")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, _ := h.alerts.FindByAlertID(context.Background(), "alert-full")
	if len(saved.AffectedSystems) != 2 || saved.AffectedSystems[0] != "db-primary" {
		t.Fatalf("delivered affected systems overwritten: %+v", saved.AffectedSystems)
	}
}

func TestProcess_StagePanicStillRecordsAlert(t *testing.T) {
	h := newHarness(panicGenerator{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected the stage panic to propagate")
		}
		saved, _ := h.alerts.FindByAlertID(context.Background(), "alert-panic")
		if saved == nil {
			t.Fatal("panicking run left no alert record")
		}
		if saved.MeetingCreated {
			t.Fatal("meeting_created must stay false after a panic")
		}
		if saved.ProcessingError == nil || !saved.IsProcessed() {
			t.Fatalf("panic not recorded as a failed run: %+v", saved)
		}
	}()
	h.orch.Process(context.Background(), testAlert("alert-panic"))
}

func TestProcess_LearningFailureDoesNotFailRequest(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "x", "recommendations": ["y"]}`})
	h.learning.failWith = errors.New("learning store down")

	result, err := h.orch.Process(context.Background(), testAlert("alert-learn"))
	if err != nil {
		t.Fatalf("learning failure must not fail the pipeline: %v", err)
	}
	if result.MeetingID == "" {
		t.Fatal("meeting should still be created")
	}
	h.orch.Wait()
}

func TestProcess_GeneratorFailureUsesTemplatedText(t *testing.T) {
	h := newHarness(&fakeGenerator{failWith: errors.New("model overloaded")})

	result, err := h.orch.Process(context.Background(), testAlert("alert-fallback"))
	if err != nil {
		t.Fatalf("generator failure must not fail the pipeline: %v", err)
	}
	if result.RootCause == "" {
		t.Fatal("templated root cause missing")
	}
	if result.ComplianceStatus != entities.ComplianceUnknown {
		t.Fatalf("expected UNKNOWN compliance status, got %s", result.ComplianceStatus)
	}

	meeting, _ := h.meetings.FindByAlertID(context.Background(), "alert-fallback")
	if meeting == nil || meeting.WhyScheduled == "" || meeting.PreMeetingSummary == "" {
		t.Fatalf("templated briefing missing: %+v", meeting)
	}
}

func TestProcess_ConcurrentSameAlertCreatesOneMeeting(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "x", "recommendations": ["y"]}`})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.orch.Process(ctx, testAlert("alert-race")); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if h.scheduler.callCount() != 1 {
		t.Fatalf("scheduler called %d times for one alert_id, want 1", h.scheduler.callCount())
	}
	if h.meetings.count() != 1 {
		t.Fatalf("expected one meeting row, got %d", h.meetings.count())
	}
}

func TestReconcileOrphans(t *testing.T) {
	h := newHarness(&fakeGenerator{response: `{"root_cause": "x", "recommendations": ["y"]}`})
	ctx := context.Background()

	alert := testAlert("alert-orphan")
	h.alerts.Upsert(ctx, alert)
	orphan := &entities.Meeting{MeetingID: "mtg-orphan", AlertID: "alert-orphan"}
	h.meetings.Create(ctx, orphan)
	h.meetings.orphans = []*entities.Meeting{orphan}

	repaired, err := h.orch.ReconcileOrphans(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("expected 1 repaired, got %d", repaired)
	}

	saved, _ := h.alerts.FindByAlertID(ctx, "alert-orphan")
	if !saved.MeetingCreated || saved.MeetingID == nil || *saved.MeetingID != "mtg-orphan" {
		t.Fatalf("orphan not repaired: %+v", saved)
	}
}
