package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration classifies configuration problems detected while the
	// Manager is Initializing. No worker has been started when it is returned.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvariantViolation classifies broken causality guarantees. It is
	// fatal to the whole run.
	ErrInvariantViolation = errors.New("scheduling invariant violation")

	// ErrInvalidAssignment is returned when an event is enqueued on a
	// Scheduler that does not own the event's host.
	ErrInvalidAssignment = fmt.Errorf("%w: invalid host assignment", ErrInvariantViolation)

	// ErrCanceled is returned when the run context is canceled; the
	// cancellation is observed at the next barrier.
	ErrCanceled = errors.New("simulation canceled")
)

// ConfigError describes a single rejected configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InvariantError carries the context of a causality violation.
type InvariantError struct {
	Worker WorkerID
	Host   HostID
	Time   SimTime
	Reason string
	Err    error // ErrInvariantViolation or a wrapper of it
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v on worker %d (host %d at %v): %s", e.Err, e.Worker, e.Host, e.Time, e.Reason)
}

func (e *InvariantError) Unwrap() error { return e.Err }

func invariantErrorf(worker WorkerID, host HostID, at SimTime, format string, args ...any) error {
	return &InvariantError{
		Worker: worker,
		Host:   host,
		Time:   at,
		Reason: fmt.Sprintf(format, args...),
		Err:    ErrInvariantViolation,
	}
}

// HostFatalError is an emulation-layer failure confined to one host. The
// host is marked dead; the run continues.
type HostFatalError struct {
	Host HostID
	Name string
	Time SimTime
	Err  error
}

func (e *HostFatalError) Error() string {
	return fmt.Sprintf("host %q (%d) failed at %v: %v", e.Name, e.Host, e.Time, e.Err)
}

func (e *HostFatalError) Unwrap() error { return e.Err }

// ExitCode maps a run error to the CLI process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration):
		return 2
	case errors.Is(err, ErrInvariantViolation):
		return 3
	default:
		return 1
	}
}
