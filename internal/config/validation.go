package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil

	v.validateLogging(cfg)
	v.validateRun(&cfg.Run)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateLogging(cfg *Config) {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid log level %q, must be one of: debug, info, warn, error", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid log format %q, must be json or console", cfg.Logging.Format))
	}
	switch cfg.Logging.Output {
	case "stdout", "stderr", "both":
	case "file":
		if cfg.Logging.FilePath == "" {
			v.addError("logging.file_path", "file path is required when output is file")
		}
	default:
		v.addError("logging.output", fmt.Sprintf("invalid log output %q, must be one of: stdout, stderr, file, both", cfg.Logging.Output))
	}
}

func (v *Validator) validateRun(cfg *RunConfig) {
	if cfg.Retry < 0 {
		v.addError("run.retry", "retry count must be non-negative")
	}
	if cfg.Repeat < 0 {
		v.addError("run.repeat", "repeat count must be non-negative")
	}
	if cfg.Parallel < 0 {
		v.addError("run.parallel", "parallel count must be non-negative")
	}
	if cfg.Timeout != nil && *cfg.Timeout < 0 {
		v.addError("run.timeout", "timeout must be non-negative")
	}
	if cfg.OutputTail < 0 {
		v.addError("run.output_tail", "output tail must be non-negative")
	}
	if cfg.Format != "text" && cfg.Format != "json" {
		v.addError("run.format", fmt.Sprintf("invalid format %q, must be text or json", cfg.Format))
	}
}
