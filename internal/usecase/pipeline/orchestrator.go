package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/chainsync-ai/alertbridge/errors"
	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/external/chainsync"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/external/slotify"
	"github.com/chainsync-ai/alertbridge/internal/usecase/policy"
)

// Scheduler creates meetings in the scheduling platform.
type Scheduler interface {
	CreateMeeting(ctx context.Context, req slotify.CreateMeetingRequest) (*slotify.Meeting, error)
	CancelMeeting(ctx context.Context, meetingID, reason string) error
}

// AlertPlatform reads alert details from and pushes processing results
// back to the alert source.
type AlertPlatform interface {
	GetAlert(ctx context.Context, alertID string) (*chainsync.AlertDetail, error)
	UpdateAlertStatus(ctx context.Context, alertID string, update chainsync.StatusUpdate) error
	AddComment(ctx context.Context, alertID, comment string) error
}

// Result is what a completed pipeline run reports to the webhook caller.
type Result struct {
	AlertID          string                    `json:"alert_id"`
	MeetingID        string                    `json:"meeting_id"`
	MeetingURL       string                    `json:"meeting_url"`
	Urgency          policy.UrgencyDecision    `json:"urgency"`
	RootCause        string                    `json:"root_cause"`
	ComplianceStatus entities.ComplianceStatus `json:"compliance_status"`
	AlreadyProcessed bool                      `json:"already_processed"`
}

// Orchestrator runs the stages in sequence for each admitted alert.
// Runs for the same alert_id are serialized in-process; the unique
// constraint on alerts.alert_id backs that up across replicas.
type Orchestrator struct {
	alerts    repositories.AlertRepository
	meetings  repositories.MeetingRepository
	store     repositories.PipelineStore
	scheduler Scheduler
	platform  AlertPlatform

	rootCause  *RootCauseStage
	compliance *ComplianceStage
	meetingCtx *MeetingContextStage
	learning   *LearningStage

	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*alertLock
	wg    sync.WaitGroup
}

type alertLock struct {
	mu   sync.Mutex
	refs int
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(
	alerts repositories.AlertRepository,
	meetings repositories.MeetingRepository,
	store repositories.PipelineStore,
	scheduler Scheduler,
	platform AlertPlatform,
	rootCause *RootCauseStage,
	compliance *ComplianceStage,
	meetingCtx *MeetingContextStage,
	learning *LearningStage,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		alerts:     alerts,
		meetings:   meetings,
		store:      store,
		scheduler:  scheduler,
		platform:   platform,
		rootCause:  rootCause,
		compliance: compliance,
		meetingCtx: meetingCtx,
		learning:   learning,
		logger:     logger,
		locks:      make(map[string]*alertLock),
	}
}

// Process runs the full pipeline for one alert. Re-delivery of an
// already processed alert_id returns the original outcome without
// re-running any stage or creating a second meeting.
func (o *Orchestrator) Process(ctx context.Context, alert *entities.Alert) (*Result, error) {
	unlock := o.lockAlert(alert.AlertID)
	defer unlock()

	// A stage panic must still leave a failure record behind before it
	// propagates to the recovery middleware.
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if !alert.MeetingCreated {
			alert.MarkScheduleFailed(fmt.Sprintf("panic: %v", r))
			if saveErr := o.alerts.Upsert(ctx, alert); saveErr != nil {
				o.logger.Error("failed to record panicking run",
					zap.String("alert_id", alert.AlertID),
					zap.Error(saveErr))
			}
		}
		panic(r)
	}()

	existing, err := o.alerts.FindByAlertID(ctx, alert.AlertID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsProcessed() && existing.MeetingCreated {
		return o.replay(ctx, existing)
	}

	log := o.logger.With(
		zap.String("alert_id", alert.AlertID),
		zap.String("alert_type", alert.AlertType),
		zap.String("severity", string(alert.Severity)),
	)
	log.Info("processing alert")

	o.backfillFromPlatform(ctx, alert)

	rca := o.rootCause.Analyze(ctx, alert)
	comp := o.compliance.Check(ctx, alert, rca)
	mc := o.meetingCtx.Build(ctx, alert, rca, comp)

	alert.RootCause = &rca.RootCause
	alert.Recommendations = rca.Recommendations
	alert.ComplianceStatus = comp.Status
	alert.ComplianceViolations = comp.Violations

	meeting, err := o.scheduler.CreateMeeting(ctx, slotify.CreateMeetingRequest{
		Title:           mc.Title,
		Description:     mc.WhyScheduled,
		ScheduledTime:   slotify.FormatScheduledTime(mc.ScheduledTime),
		DurationMinutes: mc.DurationMinutes,
		Attendees:       mc.Attendees,
		AlertReference:  alert.AlertID,
	})
	if err != nil {
		log.Error("meeting scheduling failed", zap.Error(err))
		alert.MarkScheduleFailed(err.Error())
		if saveErr := o.alerts.Upsert(ctx, alert); saveErr != nil {
			log.Error("failed to record scheduling failure", zap.Error(saveErr))
		}
		// The learning stage observes every meeting decision, failed
		// scheduling included.
		o.recordLearning(ctx, alert, mc)
		return nil, mapUpstreamError(err)
	}
	log.Info("meeting scheduled",
		zap.String("meeting_id", meeting.MeetingID),
		zap.String("urgency", string(mc.Urgency.Level)))

	record := &entities.Meeting{
		MeetingID:         meeting.MeetingID,
		AlertID:           alert.AlertID,
		Title:             mc.Title,
		ScheduledTime:     mc.ScheduledTime,
		MeetingURL:        meeting.MeetingURL,
		DurationMinutes:   mc.DurationMinutes,
		Attendees:         mc.Attendees,
		AlertType:         alert.AlertType,
		AlertSeverity:     alert.Severity,
		UrgencyLevel:      string(mc.Urgency.Level),
		UrgencyScore:      mc.Urgency.Score,
		WhyScheduled:      mc.WhyScheduled,
		DiscussionPoints:  mc.DiscussionPoints,
		PreMeetingSummary: mc.PreMeetingSummary,
		Status:            entities.MeetingStatusScheduled,
	}
	alert.MarkScheduled(meeting.MeetingID)

	if err := o.store.SaveMeetingAndAlert(ctx, record, alert); err != nil {
		log.Error("pipeline persistence failed", zap.Error(err))
		// The meeting exists upstream but nothing here records it, so
		// cancel it rather than leave it unreachable from any alert.
		if cancelErr := o.scheduler.CancelMeeting(ctx, meeting.MeetingID, "alert processing failed"); cancelErr != nil {
			log.Warn("compensating meeting cancellation failed",
				zap.String("meeting_id", meeting.MeetingID),
				zap.Error(cancelErr))
		}
		alert.MeetingID = nil
		alert.MarkScheduleFailed(err.Error())
		if saveErr := o.alerts.Upsert(ctx, alert); saveErr != nil {
			log.Error("failed to record persistence failure", zap.Error(saveErr))
		}
		return nil, err
	}

	o.notifyPlatform(ctx, alert, meeting, rca, mc)
	o.recordLearning(ctx, alert, mc)

	return &Result{
		AlertID:          alert.AlertID,
		MeetingID:        meeting.MeetingID,
		MeetingURL:       meeting.MeetingURL,
		Urgency:          mc.Urgency,
		RootCause:        rca.RootCause,
		ComplianceStatus: comp.Status,
	}, nil
}

// replay rebuilds the original response for a re-delivered alert.
func (o *Orchestrator) replay(ctx context.Context, alert *entities.Alert) (*Result, error) {
	result := &Result{
		AlertID:          alert.AlertID,
		ComplianceStatus: alert.ComplianceStatus,
		AlreadyProcessed: true,
	}
	if alert.RootCause != nil {
		result.RootCause = *alert.RootCause
	}

	meeting, err := o.meetings.FindByAlertID(ctx, alert.AlertID)
	if err != nil {
		return nil, err
	}
	if meeting != nil {
		result.MeetingID = meeting.MeetingID
		result.MeetingURL = meeting.MeetingURL
		result.Urgency = policy.UrgencyDecision{
			Level: policy.UrgencyLevel(meeting.UrgencyLevel),
			Score: meeting.UrgencyScore,
		}
	} else if alert.MeetingID != nil {
		result.MeetingID = *alert.MeetingID
	}

	o.logger.Info("alert already processed, returning prior outcome",
		zap.String("alert_id", alert.AlertID),
		zap.String("meeting_id", result.MeetingID))
	return result, nil
}

// backfillFromPlatform fills fields a sparse webhook delivery left
// empty from the platform's stored alert record. Best-effort: the
// pipeline runs on the delivered payload alone if the lookup fails.
func (o *Orchestrator) backfillFromPlatform(ctx context.Context, alert *entities.Alert) {
	if o.platform == nil {
		return
	}
	if len(alert.AffectedSystems) > 0 && len(alert.ComplianceFrameworks) > 0 {
		return
	}

	detail, err := o.platform.GetAlert(ctx, alert.AlertID)
	if err != nil {
		o.logger.Warn("alert detail lookup failed",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err))
		return
	}
	if detail == nil || detail.Mock {
		return
	}
	if len(alert.AffectedSystems) == 0 && len(detail.AffectedSystems) > 0 {
		alert.AffectedSystems = detail.AffectedSystems
	}
	if len(alert.ComplianceFrameworks) == 0 && len(detail.ComplianceFrameworks) > 0 {
		alert.ComplianceFrameworks = detail.ComplianceFrameworks
	}
}

// notifyPlatform pushes the meeting link back to the alert source.
// Best-effort: the meeting exists either way.
func (o *Orchestrator) notifyPlatform(ctx context.Context, alert *entities.Alert, meeting *slotify.Meeting, rca RootCauseAnalysis, mc MeetingContext) {
	if o.platform == nil {
		return
	}

	notes := mc.WhyScheduled
	if len(notes) > 200 {
		notes = notes[:200]
	}
	if err := o.platform.UpdateAlertStatus(ctx, alert.AlertID, chainsync.StatusUpdate{
		Status:     "meeting_scheduled",
		MeetingURL: meeting.MeetingURL,
		Notes:      notes,
	}); err != nil {
		o.logger.Warn("alert status update failed",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err))
	}

	comment := fmt.Sprintf("Root Cause: %s\nMeeting scheduled: %s", rca.RootCause, meeting.MeetingURL)
	if err := o.platform.AddComment(ctx, alert.AlertID, comment); err != nil {
		o.logger.Warn("alert comment failed",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err))
	}
}

// recordLearning runs the learning stage in the background. A panic in
// the stage must not reach the request goroutine.
func (o *Orchestrator) recordLearning(ctx context.Context, alert *entities.Alert, mc MeetingContext) {
	if o.learning == nil {
		return
	}

	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("learning stage panicked",
					zap.String("alert_id", alert.AlertID),
					zap.Any("panic", r))
			}
		}()
		o.learning.Record(bgCtx, alert, mc)
	}()
}

// ReconcileOrphans repairs meetings whose alert row never got its
// meeting_created flag, which can happen if the process dies between
// the scheduling call and the database write on an older record layout.
func (o *Orchestrator) ReconcileOrphans(ctx context.Context, limit int) (int, error) {
	orphans, err := o.meetings.FindOrphans(ctx, limit)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, meeting := range orphans {
		if err := o.alerts.MarkMeetingCreated(ctx, meeting.AlertID, meeting.MeetingID); err != nil {
			o.logger.Warn("orphan repair failed",
				zap.String("alert_id", meeting.AlertID),
				zap.String("meeting_id", meeting.MeetingID),
				zap.Error(err))
			continue
		}
		repaired++
	}
	if repaired > 0 {
		o.logger.Info("reconciled orphaned meetings", zap.Int("repaired", repaired))
	}
	return repaired, nil
}

// Wait blocks until in-flight background work finishes. Called during
// graceful shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// lockAlert serializes pipeline runs per alert_id.
func (o *Orchestrator) lockAlert(alertID string) func() {
	o.mu.Lock()
	l, ok := o.locks[alertID]
	if !ok {
		l = &alertLock{}
		o.locks[alertID] = l
	}
	l.refs++
	o.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, alertID)
		}
		o.mu.Unlock()
	}
}

// mapUpstreamError converts scheduler failures into the API error shape.
func mapUpstreamError(err error) error {
	if _, ok := err.(apperrors.AppError); ok {
		return err
	}
	return apperrors.ErrUpstreamUnavailable("slotify", err)
}
