// Package pipeline runs the four-stage enrichment flow that turns an
// admitted alert into a scheduled review meeting: root cause analysis,
// compliance check, meeting context, then a best-effort learning record.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
)

// TextGenerator produces free-form analysis text. The Groq client
// satisfies this; tests substitute a canned generator.
type TextGenerator interface {
	Available() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// RootCauseAnalysis is the output of the first enrichment stage.
type RootCauseAnalysis struct {
	RootCause       string   `json:"root_cause"`
	Recommendations []string `json:"recommendations"`
}

// RootCauseStage analyzes an alert to identify its underlying cause.
// Generator failures never fail the stage; a templated analysis stands
// in so the pipeline always completes.
type RootCauseStage struct {
	gen    TextGenerator
	logger *zap.Logger
}

// NewRootCauseStage builds the stage over the given generator.
func NewRootCauseStage(gen TextGenerator, logger *zap.Logger) *RootCauseStage {
	return &RootCauseStage{gen: gen, logger: logger}
}

// Analyze returns the root cause and remediation recommendations.
func (s *RootCauseStage) Analyze(ctx context.Context, alert *entities.Alert) RootCauseAnalysis {
	if s.gen == nil || !s.gen.Available() {
		return s.fallback(alert)
	}

	prompt := fmt.Sprintf(
		"You are a root cause analysis expert. Identify the underlying root cause, not just symptoms.\n\n"+
			"Alert type: %s\nSeverity: %s\nDescription: %s\nAffected systems: %s\n\n"+
			"Respond with JSON only: {\"root_cause\": \"...\", \"recommendations\": [\"...\", \"...\"]}",
		alert.AlertType, alert.Severity, alert.Description, strings.Join(alert.AffectedSystems, ", "),
	)

	raw, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("root cause generation failed, using templated analysis",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err))
		return s.fallback(alert)
	}

	var analysis RootCauseAnalysis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &analysis); err != nil || analysis.RootCause == "" {
		// Model ignored the format; keep the prose as the root cause.
		fb := s.fallback(alert)
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			fb.RootCause = trimmed
		}
		return fb
	}
	if len(analysis.Recommendations) == 0 {
		analysis.Recommendations = defaultRecommendations(alert)
	}
	return analysis
}

func (s *RootCauseStage) fallback(alert *entities.Alert) RootCauseAnalysis {
	return RootCauseAnalysis{
		RootCause: fmt.Sprintf(
			"Preliminary analysis: %s alert (%s severity) reported as %q. Detailed root cause pending investigation.",
			alert.AlertType, alert.Severity, alert.Description,
		),
		Recommendations: defaultRecommendations(alert),
	}
}

func defaultRecommendations(alert *entities.Alert) []string {
	recs := []string{
		"Review recent changes to the affected systems",
		"Check monitoring dashboards for correlated anomalies",
		"Confirm incident scope with the on-call engineer",
	}
	if alert.Severity == entities.SeverityCritical || alert.Severity == entities.SeverityHigh {
		recs = append(recs, "Prepare a stakeholder communication update")
	}
	return recs
}

// extractJSON pulls the first top-level JSON object out of model output
// that may be wrapped in prose or markdown fences.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
