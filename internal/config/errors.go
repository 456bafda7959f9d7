package config

import "fmt"

// ConfigurationError aborts the operation that triggered resolution.
type ConfigurationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration %s: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
