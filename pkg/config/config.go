package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/sessionkeeper/pkg/session"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager creates a manager over the file at configPath with the
// monitor and credentials sections registered and loaded.
func NewDefaultManager(configPath string) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	if err := manager.RegisterSection(NewMonitorSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewCredentialsSection()); err != nil {
		return nil, err
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	manager, err := NewDefaultManager(configPath)
	if err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetMonitor returns the monitor section from global config.
// Returns nil if config is not initialized.
func GetMonitor() *MonitorSection {
	if !IsInitialized() {
		return nil
	}
	return monitorSection(Global())
}

// GetCredentials returns the credentials section from global config.
// Returns nil if config is not initialized.
func GetCredentials() *CredentialsSection {
	if !IsInitialized() {
		return nil
	}
	return credentialsSection(Global())
}

func monitorSection(m *Manager) *MonitorSection {
	section, ok := m.GetSection(SectionIDMonitor)
	if !ok {
		return nil
	}
	monitor, _ := section.(*MonitorSection)
	return monitor
}

func credentialsSection(m *Manager) *CredentialsSection {
	section, ok := m.GetSection(SectionIDCredentials)
	if !ok {
		return nil
	}
	creds, _ := section.(*CredentialsSection)
	return creds
}

// Settings is the resolved configuration for one run.
type Settings struct {
	Monitor      session.MonitorConfig
	Timings      session.Timings
	Rules        session.Rules
	Credentials  *session.Credentials
	Headless     bool
	StorageState string
	MetricsAddr  string
}

// Resolve merges the file sections of m with env. Environment values win
// over the file; credentials are taken as a pair from whichever source has
// any. m may be nil, in which case only defaults and env apply.
func Resolve(m *Manager, env Env) (*Settings, error) {
	monitor := NewMonitorSection()
	var creds *session.Credentials
	if m != nil {
		if s := monitorSection(m); s != nil {
			monitor = s
		}
		if s := credentialsSection(m); s != nil {
			creds = s.Credentials()
		}
	}

	settings := &Settings{
		Monitor:     monitor.MonitorConfig(),
		Timings:     monitor.Timings(),
		Credentials: creds,
		MetricsAddr: env.MetricsAddr,
	}
	settings.Headless, settings.StorageState = monitor.GetBrowserSettings()

	if env.PollInterval > 0 {
		settings.Monitor.PollInterval = env.PollInterval
	}
	if env.MaxLoginAttempts > 0 {
		settings.Monitor.MaxLoginAttempts = env.MaxLoginAttempts
	}
	if c := env.Credentials(); c != nil {
		settings.Credentials = c
	}

	if err := settings.Monitor.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor settings: %w", err)
	}
	if err := validateTimings(settings.Timings); err != nil {
		return nil, fmt.Errorf("invalid monitor settings: %w", err)
	}

	rulesFile := monitor.GetRulesFile()
	if env.RulesFile != "" {
		rulesFile = env.RulesFile
	}
	rules, err := LoadRules(rulesFile)
	if err != nil {
		return nil, err
	}
	settings.Rules = rules

	return settings, nil
}
