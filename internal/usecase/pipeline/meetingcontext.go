package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/usecase/policy"
)

// MeetingContext is the output of the third enrichment stage: everything
// needed to schedule the review meeting and brief its attendees.
type MeetingContext struct {
	Title             string
	ScheduledTime     time.Time
	DurationMinutes   int
	Attendees         []string
	Urgency           policy.UrgencyDecision
	WhyScheduled      string
	DiscussionPoints  []string
	PreMeetingSummary string
}

// MeetingContextStage computes urgency and attendees through the policy
// engine and drafts the meeting briefing. The urgency and attendee
// decisions are always deterministic; only the briefing prose comes
// from the generator, with templated text as the fallback.
type MeetingContextStage struct {
	engine *policy.Engine
	gen    TextGenerator
	logger *zap.Logger
	now    func() time.Time
}

// NewMeetingContextStage builds the stage over the policy engine.
func NewMeetingContextStage(engine *policy.Engine, gen TextGenerator, logger *zap.Logger) *MeetingContextStage {
	return &MeetingContextStage{engine: engine, gen: gen, logger: logger, now: time.Now}
}

// Build assembles the meeting context for an enriched alert.
func (s *MeetingContextStage) Build(ctx context.Context, alert *entities.Alert, rca RootCauseAnalysis, comp ComplianceCheck) MeetingContext {
	decision := s.engine.Evaluate(alert)
	attendees := s.engine.SelectAttendees(alert)

	mc := MeetingContext{
		Title:            meetingTitle(alert),
		ScheduledTime:    s.now().UTC(),
		DurationMinutes:  decision.MeetingDurationMin,
		Attendees:        attendees,
		Urgency:          decision,
		DiscussionPoints: discussionPoints(alert, rca, comp),
	}
	mc.WhyScheduled = s.whyScheduled(ctx, alert, decision)
	mc.PreMeetingSummary = s.preMeetingSummary(ctx, alert, rca, comp, decision)
	return mc
}

func (s *MeetingContextStage) whyScheduled(ctx context.Context, alert *entities.Alert, decision policy.UrgencyDecision) string {
	fallback := fmt.Sprintf(
		"This meeting was scheduled because a %s severity %s alert (%s) requires a coordinated response within %s.",
		alert.Severity, strings.ReplaceAll(alert.AlertType, "_", " "), alert.AlertID,
		formatWindow(decision.RespondWithin),
	)
	if s.gen == nil || !s.gen.Available() {
		return fallback
	}

	prompt := fmt.Sprintf(
		"In two sentences, explain to meeting attendees why this review was scheduled.\n\n"+
			"Alert type: %s\nSeverity: %s\nDescription: %s\nUrgency: %s (respond within %s)",
		alert.AlertType, alert.Severity, alert.Description,
		decision.Level, formatWindow(decision.RespondWithin),
	)
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			s.logger.Warn("meeting explanation generation failed, using template",
				zap.String("alert_id", alert.AlertID),
				zap.Error(err))
		}
		return fallback
	}
	return strings.TrimSpace(text)
}

func (s *MeetingContextStage) preMeetingSummary(ctx context.Context, alert *entities.Alert, rca RootCauseAnalysis, comp ComplianceCheck, decision policy.UrgencyDecision) string {
	fallback := fmt.Sprintf(
		"%s alert %s: %s. Root cause assessment: %s Compliance status: %s. Urgency %s (score %.2f).",
		strings.ToUpper(string(alert.Severity)), alert.AlertID, alert.Description,
		rca.RootCause, comp.Status, decision.Level, decision.Score,
	)
	if s.gen == nil || !s.gen.Available() {
		return fallback
	}

	prompt := fmt.Sprintf(
		"Write a short pre-meeting briefing paragraph for incident responders.\n\n"+
			"Alert: %s (%s, %s severity)\nDescription: %s\nRoot cause: %s\nCompliance status: %s\nViolations: %s",
		alert.AlertID, alert.AlertType, alert.Severity, alert.Description,
		rca.RootCause, comp.Status, strings.Join(comp.Violations, "; "),
	)
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		return fallback
	}
	return strings.TrimSpace(text)
}

// meetingTitle follows the "[SEVERITY] Alert Type Review" convention.
func meetingTitle(alert *entities.Alert) string {
	words := strings.Split(strings.ReplaceAll(alert.AlertType, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return fmt.Sprintf("[%s] %s Review", strings.ToUpper(string(alert.Severity)), strings.Join(words, " "))
}

// discussionPoints builds a deterministic 5-7 item agenda from the
// enrichment results.
func discussionPoints(alert *entities.Alert, rca RootCauseAnalysis, comp ComplianceCheck) []string {
	points := []string{
		"Incident overview and timeline",
		"Root cause: " + rca.RootCause,
	}
	if len(alert.AffectedSystems) > 0 {
		points = append(points, "Impact on affected systems: "+strings.Join(alert.AffectedSystems, ", "))
	}
	if comp.Status == entities.ComplianceNonCompliant {
		points = append(points, "Compliance violations: "+strings.Join(comp.Violations, "; "))
	} else {
		points = append(points, "Compliance review ("+strings.Join(comp.Frameworks, ", ")+")")
	}
	if len(rca.Recommendations) > 0 {
		points = append(points, "Remediation: "+rca.Recommendations[0])
	}
	points = append(points,
		"Action items and owners",
		"Follow-up monitoring and verification",
	)
	return points
}

func formatWindow(d time.Duration) string {
	if d < 2*time.Hour {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", int(d.Hours()))
}
