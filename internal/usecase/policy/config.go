package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TypePolicy is the per-alert-type row of the authority table
type TypePolicy struct {
	Weight        float64  `yaml:"weight"`
	BaseAttendees []string `yaml:"base_attendees"`
}

// Config supplies the alert-type authority table and severity weights.
// Injected rather than hard-coded so tests can substitute fixtures.
type Config struct {
	SeverityWeights map[string]float64    `yaml:"severity_weights"`
	Types           map[string]TypePolicy `yaml:"types"`
	DefaultWeight   float64               `yaml:"default_weight"`
	DefaultBase     []string              `yaml:"default_base_attendees"`
}

// DefaultConfig returns the compiled-in authority table used when no
// policy file is configured.
func DefaultConfig() *Config {
	return &Config{
		SeverityWeights: map[string]float64{
			"critical": 1.0,
			"high":     0.8,
			"medium":   0.5,
			"low":      0.3,
		},
		DefaultWeight: 0.5,
		DefaultBase:   []string{"Technical Lead", "Operations"},
		Types: map[string]TypePolicy{
			"security_incident": {
				Weight:        1.0,
				BaseAttendees: []string{"Security Team", "Technical Lead", "Operations"},
			},
			"data_breach": {
				Weight:        1.0,
				BaseAttendees: []string{"Security Team", "Legal", "Technical Lead"},
			},
			"compliance_violation": {
				Weight:        0.9,
				BaseAttendees: []string{"Compliance Officer", "Legal", "Technical Lead"},
			},
			"system_outage": {
				Weight:        0.9,
				BaseAttendees: []string{"Technical Lead", "Operations", "On-Call Engineer"},
			},
			"performance_degradation": {
				Weight:        0.7,
				BaseAttendees: []string{"Technical Lead", "Operations"},
			},
			"integration_failure": {
				Weight:        0.6,
				BaseAttendees: []string{"Technical Lead", "Operations"},
			},
			"capacity_warning": {
				Weight:        0.5,
				BaseAttendees: []string{"Operations"},
			},
		},
	}
}

// LoadConfig reads the authority table from a YAML file, falling back to
// defaults for any section the file leaves out. An empty path returns
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy config: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse policy config: %w", err)
	}

	if len(fileCfg.SeverityWeights) > 0 {
		cfg.SeverityWeights = fileCfg.SeverityWeights
	}
	if len(fileCfg.Types) > 0 {
		cfg.Types = fileCfg.Types
	}
	if fileCfg.DefaultWeight > 0 {
		cfg.DefaultWeight = fileCfg.DefaultWeight
	}
	if len(fileCfg.DefaultBase) > 0 {
		cfg.DefaultBase = fileCfg.DefaultBase
	}
	return cfg, nil
}
