package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidatePort requires 1..65535.
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return invalid(field, "must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateURL requires an absolute http or https URL.
func ValidateURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(field, "invalid URL %q", value)
	}
	return nil
}

// ValidatePositive requires d > 0.
func ValidatePositive(field string, d time.Duration) error {
	if d <= 0 {
		return invalid(field, "must be positive, got %s", d)
	}
	return nil
}

// ValidateMin requires n >= lowest.
func ValidateMin[N int | float64](field string, n, lowest N) error {
	if n < lowest {
		return invalid(field, "must be at least %v, got %v", lowest, n)
	}
	return nil
}

// ValidateRange requires lowest <= n <= highest.
func ValidateRange[N int | float64](field string, n, lowest, highest N) error {
	if n < lowest || n > highest {
		return invalid(field, "must be between %v and %v, got %v", lowest, highest, n)
	}
	return nil
}

// ValidateOneOf requires value to be one of allowed.
func ValidateOneOf(field, value string, allowed ...string) error {
	if !slices.Contains(allowed, value) {
		return invalid(field, "must be one of %s, got %q", strings.Join(allowed, ", "), value)
	}
	return nil
}

// ValidateLogLevel accepts the levels the logger understands.
func ValidateLogLevel(level string) error {
	return ValidateOneOf("logging.level", level, "debug", "info", "warn", "warning", "error", "fatal")
}

// ValidateLogFormat accepts json and console.
func ValidateLogFormat(format string) error {
	return ValidateOneOf("logging.format", format, "json", "console")
}
