package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
)

// defaultFrameworks is checked when the alert names none.
var defaultFrameworks = []string{"SOC2", "GDPR", "HIPAA", "ISO27001", "PCI-DSS"}

// ComplianceCheck is the output of the second enrichment stage.
type ComplianceCheck struct {
	Status     entities.ComplianceStatus `json:"status"`
	Violations []string                  `json:"violations"`
	Frameworks []string                  `json:"frameworks_checked"`
}

// ComplianceStage evaluates whether the incident behind the alert has
// regulatory implications. When the generator is unavailable the status
// is UNKNOWN rather than a guess.
type ComplianceStage struct {
	gen    TextGenerator
	logger *zap.Logger
}

// NewComplianceStage builds the stage over the given generator.
func NewComplianceStage(gen TextGenerator, logger *zap.Logger) *ComplianceStage {
	return &ComplianceStage{gen: gen, logger: logger}
}

// Check runs the compliance evaluation, informed by the root cause
// found upstream.
func (s *ComplianceStage) Check(ctx context.Context, alert *entities.Alert, rca RootCauseAnalysis) ComplianceCheck {
	frameworks := []string(alert.ComplianceFrameworks)
	if len(frameworks) == 0 {
		frameworks = defaultFrameworks
	}

	if s.gen == nil || !s.gen.Available() {
		return ComplianceCheck{Status: entities.ComplianceUnknown, Frameworks: frameworks}
	}

	prompt := fmt.Sprintf(
		"You are a compliance expert for the frameworks: %s.\n\n"+
			"Alert type: %s\nSeverity: %s\nDescription: %s\nRoot cause: %s\n\n"+
			"Does this incident indicate compliance violations? "+
			"Respond with JSON only: {\"status\": \"COMPLIANT\"|\"NON_COMPLIANT\", \"violations\": [\"framework: detail\", ...]}",
		strings.Join(frameworks, ", "),
		alert.AlertType, alert.Severity, alert.Description, rca.RootCause,
	)

	raw, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("compliance generation failed, status unknown",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err))
		return ComplianceCheck{Status: entities.ComplianceUnknown, Frameworks: frameworks}
	}

	var check ComplianceCheck
	if err := json.Unmarshal([]byte(extractJSON(raw)), &check); err != nil {
		return ComplianceCheck{Status: entities.ComplianceUnknown, Frameworks: frameworks}
	}
	check.Frameworks = frameworks

	switch check.Status {
	case entities.ComplianceCompliant, entities.ComplianceNonCompliant:
	default:
		check.Status = entities.ComplianceUnknown
	}
	// A violation list implies non-compliance regardless of the label.
	if len(check.Violations) > 0 {
		check.Status = entities.ComplianceNonCompliant
	}
	return check
}
