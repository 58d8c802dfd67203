package model

import "fmt"

// The three error classes callers are expected to tell apart. Configuration
// and data problems always surface before sampling starts; numerical problems
// abort a running chain.

// ConfigurationError reports an invalid or internally inconsistent run
// configuration.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "Configuration error: " + e.Msg
}

// ConfigErrorf creates a ConfigurationError with fmt-style formatting.
func ConfigErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// DataError reports input that cannot be assembled into a model frame or
// graph.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string {
	return "Data error: " + e.Msg
}

// DataErrorf creates a DataError with fmt-style formatting.
func DataErrorf(format string, args ...interface{}) error {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}

// NumericalError reports a degenerate value produced mid-run. It names the
// parameter being updated and the 1-based iteration so an aborted chain can
// be diagnosed from its partial draws.
type NumericalError struct {
	Param     string
	Iteration int
	Msg       string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("Numerical error updating %s at iteration %d: %s", e.Param, e.Iteration, e.Msg)
}

// NumericalErrorf creates a NumericalError with fmt-style formatting.
func NumericalErrorf(param string, iteration int, format string, args ...interface{}) error {
	return &NumericalError{
		Param:     param,
		Iteration: iteration,
		Msg:       fmt.Sprintf(format, args...),
	}
}
