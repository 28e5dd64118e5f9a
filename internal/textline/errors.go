package textline

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedGeometry is returned when a detection box does not have
	// exactly four corners.
	ErrMalformedGeometry = errors.New("malformed geometry")

	// ErrInvalidConfig is returned for unusable grouping or selection parameters.
	ErrInvalidConfig = errors.New("invalid config")
)

// GeometryError reports the detection whose box could not be normalized.
type GeometryError struct {
	Block  int
	Entry  int
	Points int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s: block %d entry %d has %d points, want 4",
		ErrMalformedGeometry, e.Block, e.Entry, e.Points)
}

func (e *GeometryError) Unwrap() error {
	return ErrMalformedGeometry
}

// ConfigError reports a rejected parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
