package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/entrhq/sessionkeeper/pkg/session"
)

// Env holds settings read from the process environment. Zero values mean
// "not set" and leave the file configuration in place.
type Env struct {
	ConfigFile       string        `envconfig:"SESSIONKEEPER_CONFIG"`
	RulesFile        string        `envconfig:"SESSIONKEEPER_RULES_FILE"`
	PollInterval     time.Duration `envconfig:"SESSIONKEEPER_POLL_INTERVAL"`
	MaxLoginAttempts int           `envconfig:"SESSIONKEEPER_MAX_LOGIN_ATTEMPTS"`
	MetricsAddr      string        `envconfig:"SESSIONKEEPER_METRICS_ADDR"`

	Email    string `envconfig:"GOOGLE_EMAIL"`
	Password string `envconfig:"GOOGLE_PASSWORD"`
}

// LoadEnv reads the given dotenv files (".env" when none are named) and then
// decodes the environment. Missing dotenv files are skipped, and variables
// already set in the process win over the files.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Env{}, fmt.Errorf("failed to load %v: %w", present, err)
		}
	}

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// Credentials returns the environment credentials, or nil when neither
// variable is set.
func (e Env) Credentials() *session.Credentials {
	if e.Email == "" && e.Password == "" {
		return nil
	}
	return &session.Credentials{Email: e.Email, Password: e.Password}
}
