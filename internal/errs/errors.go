// Package errs collects the sentinel errors surfaced across the client
// (see spec §7's failure taxonomy). Call sites wrap them with fmt.Errorf
// ("%w: ...") to add context.
package errs

import "errors"

var (
	// ErrDecode is returned by the envelope codec on a malformed container.
	ErrDecode = errors.New("machinetalk: malformed container")

	// ErrNotConnected is returned by a command call issued while the owning
	// endpoint is not connected.
	ErrNotConnected = errors.New("machinetalk: endpoint not connected")

	// ErrBindRejected marks a RemoteComponent's terminal bind-reject state.
	ErrBindRejected = errors.New("machinetalk: bind rejected")

	// ErrSetRejected marks a RemoteComponent's terminal set-reject state.
	ErrSetRejected = errors.New("machinetalk: set rejected")

	// ErrServiceError wraps a container of type ERROR received on a command
	// channel; it does not change connection state.
	ErrServiceError = errors.New("machinetalk: service reported an error")

	// ErrDiscoveryRunning is returned by Register/Unregister while a
	// ServiceDiscovery is already running (config-invariant-violation, §7).
	ErrDiscoveryRunning = errors.New("machinetalk: cannot mutate discovery while running")

	// ErrDiscoveryNotRunning is returned by Stop on an already-stopped
	// ServiceDiscovery.
	ErrDiscoveryNotRunning = errors.New("machinetalk: discovery is not running")

	// ErrWaitTimeout is returned internally by condition-wait helpers; it
	// never crosses the public API, which reports timeouts as a bool.
	ErrWaitTimeout = errors.New("machinetalk: wait timed out")

	// ErrPinNotFound is returned when a caller addresses a pin name that was
	// never declared on the owning RemoteComponent.
	ErrPinNotFound = errors.New("machinetalk: pin not found")

	// ErrPinDirection is returned when a caller attempts to write an "in" pin.
	ErrPinDirection = errors.New("machinetalk: pin is not writable")

	// ErrNoRecords is returned when a Service has no current DNS-SD records
	// to derive a URI from.
	ErrNoRecords = errors.New("machinetalk: service has no records")
)

var (
	As = errors.As
	Is = errors.Is
	New = errors.New
)
