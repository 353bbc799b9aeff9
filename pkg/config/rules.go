package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/sessionkeeper/pkg/session"
)

// LoadRules reads a YAML rules file and merges it over the default rules.
// Lists present in the file replace the defaults; absent lists keep them.
// An empty path returns the defaults.
func LoadRules(path string) (session.Rules, error) {
	if path == "" {
		return session.DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return session.Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return session.Rules{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes YAML rules and merges them over the defaults. Unknown
// keys are rejected so typos do not silently disable a list.
func ParseRules(data []byte) (session.Rules, error) {
	var override session.Rules

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&override); err != nil && !errors.Is(err, io.EOF) {
		return session.Rules{}, fmt.Errorf("failed to decode rules: %w", err)
	}

	rules := session.DefaultRules().Merge(override)

	// Compile on a copy so the returned rules stay plain data.
	check := rules.Merge(session.Rules{})
	if err := check.Compile(); err != nil {
		return session.Rules{}, err
	}
	return rules, nil
}
