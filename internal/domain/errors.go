package domain

import "fmt"

// ConfigurationError is returned for any invalid startup setting. It is
// always fatal: the watcher never starts polling with a bad configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}
