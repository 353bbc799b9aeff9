package config

import (
	"sync"

	"github.com/entrhq/sessionkeeper/pkg/session"
)

// SectionIDCredentials is the identifier for the login credentials section
const SectionIDCredentials = "credentials"

// CredentialsSection stores the account used for automatic re-login.
type CredentialsSection struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	mu       sync.RWMutex
}

// NewCredentialsSection creates an empty credentials section.
func NewCredentialsSection() *CredentialsSection {
	return &CredentialsSection{}
}

// ID returns the section identifier.
func (s *CredentialsSection) ID() string {
	return SectionIDCredentials
}

// Title returns the section title.
func (s *CredentialsSection) Title() string {
	return "Login Credentials"
}

// Description returns the section description.
func (s *CredentialsSection) Description() string {
	return "Account used to sign in again when the session expires. GOOGLE_EMAIL and GOOGLE_PASSWORD override these values."
}

// Data returns the current configuration data.
func (s *CredentialsSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"email":    s.Email,
		"password": s.Password,
	}
}

// SetData updates the configuration from the provided data.
func (s *CredentialsSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "email":
			s.Email, err = stringValue(key, value)
		case "password":
			s.Password, err = stringValue(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate accepts empty credentials; the remediator reports them.
func (s *CredentialsSection) Validate() error {
	return nil
}

// Reset clears the stored credentials.
func (s *CredentialsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Email = ""
	s.Password = ""
}

// Credentials returns the stored credentials, or nil when none are set.
func (s *CredentialsSection) Credentials() *session.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Email == "" && s.Password == "" {
		return nil
	}
	return &session.Credentials{Email: s.Email, Password: s.Password}
}

// SetCredentials replaces the stored credentials.
func (s *CredentialsSection) SetCredentials(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Email = email
	s.Password = password
}
