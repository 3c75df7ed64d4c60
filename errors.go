package modelconnect

import (
	"errors"
	"fmt"

	"github.com/syssam/modelconnect/options"
)

// Sentinel errors. ErrConfiguration and ErrLookup match every error of
// their class through errors.Is.
var (
	// ErrConfiguration is matched by every configuration error.
	ErrConfiguration = options.ErrConfiguration

	// ErrLookup is matched by every lookup error.
	ErrLookup = options.ErrLookup

	// ErrAlreadyConnected is returned when a record type is connected twice.
	ErrAlreadyConnected = errors.New("modelconnect: record type already connected")

	// ErrNotConnected is returned when a record type was never connected.
	ErrNotConnected = errors.New("modelconnect: record type not connected")
)

// ConfigError represents a fatal configuration error raised while
// connecting a record type or compiling a statement.
type ConfigError = options.ConfigError

// LookupError represents a request for configuration that does not exist.
type LookupError = options.LookupError

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	return options.IsConfigError(err)
}

// IsLookupError returns true if the error is a LookupError.
func IsLookupError(err error) bool {
	if err == nil {
		return false
	}
	return options.IsLookupError(err)
}

// StatementError wraps a compile failure with the statement kind and type.
type StatementError struct {
	Type string // Record type name
	Op   string // Statement kind
	Err  error  // Underlying error
}

// Error returns the error string.
func (e *StatementError) Error() string {
	return fmt.Sprintf("modelconnect: build %s for %s: %v", e.Op, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *StatementError) Unwrap() error {
	return e.Err
}

// IsStatementError returns true if the error is a StatementError.
func IsStatementError(err error) bool {
	if err == nil {
		return false
	}
	var e *StatementError
	return errors.As(err, &e)
}

func notConnected(typ string) error {
	return &LookupError{Type: typ, Cause: ErrNotConnected}
}

func alreadyConnected(typ string) error {
	return &ConfigError{Type: typ, Cause: ErrAlreadyConnected}
}
