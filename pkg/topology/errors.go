package topology

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package matches exactly one.
var (
	ErrGeometry          = errors.New("invalid geometry")
	ErrToleranceMismatch = errors.New("tolerance mismatch")
	ErrTopology          = errors.New("invalid topology")
	ErrInvariant         = errors.New("internal invariant violated")
)

// Topology failure reasons; each matches ErrTopology.
var (
	ErrFeatureNotIntegrated = fmt.Errorf("%w: feature not integrated", ErrTopology)
	ErrAmbiguousConnections = fmt.Errorf("%w: ambiguous multiple connections", ErrTopology)
	ErrMultipleLoops        = fmt.Errorf("%w: separate loops found, only 1 allowed", ErrTopology)
	ErrOpenLoop             = fmt.Errorf("%w: loop is open", ErrTopology)
	ErrBranchedLoop         = fmt.Errorf("%w: loop branches or crosses itself", ErrTopology)
	ErrDisconnected         = fmt.Errorf("%w: disconnected from substation", ErrTopology)
)

// TopologyError carries the offending entity of a failed resolution.
type TopologyError struct {
	Op      string // Operation that failed (e.g., "assemble", "order")
	Entity  string // Entity type (e.g., "feature", "connector", "junction")
	ID      string // Entity ID (if applicable)
	Count   int    // Offending count (contacts, loops), if meaningful
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *TopologyError) Error() string {
	msg := e.Op
	if e.Entity != "" {
		msg += " " + e.Entity
	}
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Count != 0 {
		msg += fmt.Sprintf(" (count %d)", e.Count)
	}
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *TopologyError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *TopologyError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building TopologyErrors.
type ErrorBuilder struct {
	err TopologyError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: TopologyError{Op: op}}
}

// Feature sets the entity to "feature" with the given ID.
func (b *ErrorBuilder) Feature(id string) *ErrorBuilder {
	b.err.Entity = "feature"
	b.err.ID = id
	return b
}

// Connector sets the entity to "connector" with the given ID.
func (b *ErrorBuilder) Connector(id string) *ErrorBuilder {
	b.err.Entity = "connector"
	b.err.ID = id
	return b
}

// Network sets the entity to "network" with the given ID.
func (b *ErrorBuilder) Network(id string) *ErrorBuilder {
	b.err.Entity = "network"
	b.err.ID = id
	return b
}

// Count records an offending count.
func (b *ErrorBuilder) Count(n int) *ErrorBuilder {
	b.err.Count = n
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// ErrorKind returns a short label for err suitable for metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrFeatureNotIntegrated):
		return "feature_not_integrated"
	case errors.Is(err, ErrAmbiguousConnections):
		return "ambiguous_connections"
	case errors.Is(err, ErrMultipleLoops):
		return "multiple_loops"
	case errors.Is(err, ErrOpenLoop):
		return "open_loop"
	case errors.Is(err, ErrBranchedLoop):
		return "branched_loop"
	case errors.Is(err, ErrDisconnected):
		return "disconnected"
	case errors.Is(err, ErrTopology):
		return "topology"
	case errors.Is(err, ErrToleranceMismatch):
		return "tolerance_mismatch"
	case errors.Is(err, ErrGeometry):
		return "geometry"
	case errors.Is(err, ErrInvariant):
		return "invariant"
	default:
		return "other"
	}
}

// FeatureID extracts the offending feature id from err, if any.
func FeatureID(err error) (string, bool) {
	var te *TopologyError
	if errors.As(err, &te) && te.Entity == "feature" {
		return te.ID, true
	}
	return "", false
}
