package policy

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
)

func alertOf(alertType string, severity entities.Severity) *entities.Alert {
	return &entities.Alert{
		AlertID:   "alert-test",
		AlertType: alertType,
		Severity:  severity,
	}
}

func TestEvaluate_CriticalSecurityIncident(t *testing.T) {
	e := NewEngine(DefaultConfig())

	d := e.Evaluate(alertOf("security_incident", entities.SeverityCritical))
	if d.Score != 1.0 {
		t.Fatalf("expected score 1.0, got %v", d.Score)
	}
	if d.Level != UrgencyCritical {
		t.Fatalf("expected CRITICAL, got %s", d.Level)
	}
	if d.RespondWithin != time.Hour || d.MeetingDurationMin != 60 {
		t.Fatalf("unexpected bounds: %v / %d", d.RespondWithin, d.MeetingDurationMin)
	}
}

func TestEvaluate_MediumPerformanceDegradation(t *testing.T) {
	e := NewEngine(DefaultConfig())

	d := e.Evaluate(alertOf("performance_degradation", entities.SeverityMedium))
	if math.Abs(d.Score-0.35) > 1e-9 {
		t.Fatalf("expected score 0.35, got %v", d.Score)
	}
	if d.Level != UrgencyLow {
		t.Fatalf("expected LOW, got %s", d.Level)
	}
}

func TestEvaluate_ThresholdsInclusiveOnLowerBound(t *testing.T) {
	cfg := &Config{
		SeverityWeights: map[string]float64{"critical": 1.0},
		DefaultWeight:   0.5,
		DefaultBase:     []string{"Technical Lead", "Operations"},
		Types: map[string]TypePolicy{
			"t80": {Weight: 0.8},
			"t60": {Weight: 0.6},
			"t40": {Weight: 0.4},
		},
	}
	e := NewEngine(cfg)

	cases := []struct {
		alertType string
		want      UrgencyLevel
	}{
		{"t80", UrgencyCritical},
		{"t60", UrgencyHigh},
		{"t40", UrgencyMedium},
	}
	for _, tc := range cases {
		if got := e.Evaluate(alertOf(tc.alertType, entities.SeverityCritical)).Level; got != tc.want {
			t.Errorf("type %s: expected %s, got %s", tc.alertType, tc.want, got)
		}
	}
}

func TestEvaluate_UnknownTypeAndSeverityUseDefaults(t *testing.T) {
	e := NewEngine(DefaultConfig())

	d := e.Evaluate(alertOf("never_seen_before", entities.Severity("bizarre")))
	if math.Abs(d.Score-0.25) > 1e-9 {
		t.Fatalf("expected 0.5*0.5=0.25, got %v", d.Score)
	}
	if d.Level != UrgencyLow {
		t.Fatalf("expected LOW, got %s", d.Level)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	a := alertOf("system_outage", entities.SeverityHigh)

	first := e.Evaluate(a)
	for i := 0; i < 10; i++ {
		if got := e.Evaluate(a); got != first {
			t.Fatalf("evaluation not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestSelectAttendees_CriticalSecurityIncident(t *testing.T) {
	e := NewEngine(DefaultConfig())

	got := e.SelectAttendees(alertOf("security_incident", entities.SeverityCritical))
	want := []string{"Security Team", "Technical Lead", "Operations", "Management", "Executive Sponsor"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("attendees = %v, want %v", got, want)
	}
}

func TestSelectAttendees_MediumPerformanceDegradation(t *testing.T) {
	e := NewEngine(DefaultConfig())

	got := e.SelectAttendees(alertOf("performance_degradation", entities.SeverityMedium))
	for _, role := range got {
		if role == "Management" || role == "Executive Sponsor" {
			t.Fatalf("medium severity must not escalate, got %v", got)
		}
	}
	if !reflect.DeepEqual(got, []string{"Technical Lead", "Operations"}) {
		t.Fatalf("unexpected base attendees: %v", got)
	}
}

func TestSelectAttendees_HighComplianceViolationEscalates(t *testing.T) {
	e := NewEngine(DefaultConfig())

	got := e.SelectAttendees(alertOf("compliance_violation", entities.SeverityHigh))
	hasManagement, hasSponsor := false, false
	for _, role := range got {
		switch role {
		case "Management":
			hasManagement = true
		case "Executive Sponsor":
			hasSponsor = true
		}
	}
	if !hasManagement || !hasSponsor {
		t.Fatalf("expected Management and Executive Sponsor, got %v", got)
	}
}

func TestSelectAttendees_UnknownTypeFallsBack(t *testing.T) {
	e := NewEngine(DefaultConfig())

	got := e.SelectAttendees(alertOf("mystery_event", entities.SeverityLow))
	if !reflect.DeepEqual(got, []string{"Technical Lead", "Operations"}) {
		t.Fatalf("unexpected fallback attendees: %v", got)
	}
}

func TestSelectAttendees_Deduplicates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Types["dup_type"] = TypePolicy{
		Weight:        0.5,
		BaseAttendees: []string{"Management", "Operations", "Management"},
	}
	e := NewEngine(cfg)

	got := e.SelectAttendees(alertOf("dup_type", entities.SeverityCritical))
	want := []string{"Management", "Operations"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("attendees = %v, want %v", got, want)
	}
}
