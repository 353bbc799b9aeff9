package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/sessionkeeper/pkg/session"
)

const (
	// SectionIDMonitor is the identifier for the monitor settings section
	SectionIDMonitor = "monitor"

	defaultHeadless = false
)

// MonitorSection holds polling, remediation timing and browser settings.
type MonitorSection struct {
	PollInterval     time.Duration `json:"poll_interval"`
	MaxLoginAttempts int           `json:"max_login_attempts"`
	RetrySettle      time.Duration `json:"retry_settle"`
	StepSettle       time.Duration `json:"step_settle"`
	SubmitSettle     time.Duration `json:"submit_settle"`
	RulesFile        string        `json:"rules_file"`
	Headless         bool          `json:"headless"`
	StorageState     string        `json:"storage_state"`
	mu               sync.RWMutex
}

// NewMonitorSection creates a monitor section with default settings.
func NewMonitorSection() *MonitorSection {
	s := &MonitorSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *MonitorSection) ID() string {
	return SectionIDMonitor
}

// Title returns the section title.
func (s *MonitorSection) Title() string {
	return "Session Monitor"
}

// Description returns the section description.
func (s *MonitorSection) Description() string {
	return "Configure how often the session is checked, how many logins are attempted and how long to wait for pages to settle."
}

// Data returns the current configuration data.
func (s *MonitorSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"poll_interval":      s.PollInterval.String(),
		"max_login_attempts": s.MaxLoginAttempts,
		"retry_settle":       s.RetrySettle.String(),
		"step_settle":        s.StepSettle.String(),
		"submit_settle":      s.SubmitSettle.String(),
		"rules_file":         s.RulesFile,
		"headless":           s.Headless,
		"storage_state":      s.StorageState,
	}
}

// SetData updates the configuration from the provided data.
func (s *MonitorSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "poll_interval":
			s.PollInterval, err = durationValue(key, value)
		case "retry_settle":
			s.RetrySettle, err = durationValue(key, value)
		case "step_settle":
			s.StepSettle, err = durationValue(key, value)
		case "submit_settle":
			s.SubmitSettle, err = durationValue(key, value)
		case "max_login_attempts":
			s.MaxLoginAttempts, err = intValue(key, value)
		case "rules_file":
			s.RulesFile, err = stringValue(key, value)
		case "storage_state":
			s.StorageState, err = stringValue(key, value)
		case "headless":
			enabled, ok := value.(bool)
			if !ok {
				err = fmt.Errorf("invalid value type for headless: expected bool, got %T", value)
			}
			s.Headless = enabled
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *MonitorSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.monitorConfig().Validate(); err != nil {
		return err
	}
	return validateTimings(session.Timings{
		RetrySettle:  s.RetrySettle,
		StepSettle:   s.StepSettle,
		SubmitSettle: s.SubmitSettle,
	})
}

func validateTimings(t session.Timings) error {
	if t.RetrySettle < 0 || t.StepSettle < 0 || t.SubmitSettle < 0 {
		return fmt.Errorf("settle delays must not be negative")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *MonitorSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := session.DefaultMonitorConfig()
	timings := session.DefaultTimings()

	s.PollInterval = cfg.PollInterval
	s.MaxLoginAttempts = cfg.MaxLoginAttempts
	s.RetrySettle = timings.RetrySettle
	s.StepSettle = timings.StepSettle
	s.SubmitSettle = timings.SubmitSettle
	s.RulesFile = ""
	s.Headless = defaultHeadless
	s.StorageState = ""
}

// MonitorConfig returns the polling settings.
func (s *MonitorSection) MonitorConfig() session.MonitorConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitorConfig()
}

func (s *MonitorSection) monitorConfig() session.MonitorConfig {
	return session.MonitorConfig{
		PollInterval:     s.PollInterval,
		MaxLoginAttempts: s.MaxLoginAttempts,
	}
}

// Timings returns the remediation settle delays.
func (s *MonitorSection) Timings() session.Timings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session.Timings{
		RetrySettle:  s.RetrySettle,
		StepSettle:   s.StepSettle,
		SubmitSettle: s.SubmitSettle,
	}
}

// GetRulesFile returns the configured rules file path.
func (s *MonitorSection) GetRulesFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RulesFile
}

// GetBrowserSettings returns (headless, storageStatePath).
func (s *MonitorSection) GetBrowserSettings() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Headless, s.StorageState
}

// durationValue accepts duration strings and JSON numbers (nanoseconds).
func durationValue(key string, value any) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		return d, nil
	case float64:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	case time.Duration:
		return v, nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected string or number, got %T", key, value)
	}
}

func intValue(key string, value any) (int, error) {
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
	}
}

func stringValue(key string, value any) (string, error) {
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
	}
	return v, nil
}
