package options

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the two fatal error classes.
var (
	// ErrConfiguration indicates a programmer-facing misconfiguration.
	ErrConfiguration = errors.New("modelconnect: configuration error")

	// ErrLookup indicates a request for configuration that does not exist.
	ErrLookup = errors.New("modelconnect: lookup error")

	// ErrResolved is returned when resolving options a second time.
	ErrResolved = errors.New("options already resolved")

	// ErrUnknownIntegration is returned for integration names missing from the registry.
	ErrUnknownIntegration = errors.New("unknown integration")

	// ErrUnknownField is returned for field names missing from the record type.
	ErrUnknownField = errors.New("unknown field")
)

// ConfigError represents a fatal configuration error.
type ConfigError struct {
	Type    string // Record type name
	Field   string // Field name (if applicable)
	Option  string // Option name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("modelconnect: config error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Option != "" {
		fmt.Fprintf(&b, " option %q", e.Option)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Cause }

// Is reports whether the target matches ErrConfiguration.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigError creates a new ConfigError.
func NewConfigError(typeName, fieldName, message string, cause error) *ConfigError {
	return &ConfigError{Type: typeName, Field: fieldName, Message: message, Cause: cause}
}

// NewOptionError creates a ConfigError for an invalid option value.
func NewOptionError(typeName, option string, value any, message string) *ConfigError {
	return &ConfigError{
		Type:    typeName,
		Option:  option,
		Message: fmt.Sprintf("%s (value: %v)", message, value),
	}
}

// LookupError represents a failed configuration lookup.
type LookupError struct {
	Type        string
	Integration string
	Field       string
	Cause       error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	var b strings.Builder
	b.WriteString("modelconnect: lookup error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	if e.Integration != "" {
		fmt.Fprintf(&b, " integration %q", e.Integration)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *LookupError) Unwrap() error { return e.Cause }

// Is reports whether the target matches ErrLookup.
func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e) || errors.Is(err, ErrConfiguration)
}

// IsLookupError returns true if the error is a LookupError.
func IsLookupError(err error) bool {
	var e *LookupError
	return errors.As(err, &e) || errors.Is(err, ErrLookup)
}
