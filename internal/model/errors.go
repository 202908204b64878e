package model

import "fmt"

// ConfigurationError reports a missing or invalid setting detected before a
// run starts. It is always fatal to the run being configured.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// MissingSetting builds a ConfigurationError for an absent value
func MissingSetting(field string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: "not set"}
}
