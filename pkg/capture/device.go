// Package capture defines the interfaces and types for audio capture devices
// used by the recbooth session controller.
//
// The two primary abstractions are:
//
//   - [Device] — opens a capture under a set of requested [Constraints] and
//     returns a [Handle].
//   - [Handle] — represents one in-progress take: an optional live stream of
//     raw audio chunks and a Stop call that yields the finished [Take].
//
// Implementations of these interfaces are provided by device-specific adapter
// packages (e.g., capture/wavfile for scripted takes). The interfaces are
// intentionally narrow so the session controller stays decoupled from how
// audio is actually acquired.
//
// This package lives under pkg/ because external code (real microphone
// adapters) is expected to implement [Device] and [Handle].
package capture

import (
	"context"
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned by [Device.Start] when the operator declined
// microphone access or the device is unavailable. It is never retriable
// automatically.
var ErrPermissionDenied = errors.New("capture: permission denied or device unavailable")

// ConstraintError is returned by [Device.Start] when a requested constraint
// cannot be satisfied by the device. Constraint names the offending field
// (e.g., "sample_rate").
type ConstraintError struct {
	// Constraint is the name of the constraint that could not be met.
	Constraint string

	// Requested is the value that was asked for, for the error message.
	Requested any
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("capture: constraint %q unsatisfiable (requested %v)", e.Constraint, e.Requested)
}

// Device opens audio captures. Implementations must be safe for concurrent
// use, although the session controller never runs more than one capture at a
// time.
type Device interface {
	// Start begins capturing audio under the requested constraints and
	// returns a Handle for the in-progress take.
	//
	// Errors: [ErrPermissionDenied] when access is declined or the device is
	// gone; a [*ConstraintError] when a requested constraint cannot be met.
	// Both leave no capture running.
	Start(ctx context.Context, c Constraints) (Handle, error)
}

// Handle represents one in-progress capture. It is obtained from
// [Device.Start] and becomes invalid after [Handle.Stop] returns.
type Handle interface {
	// Frames returns a read-only channel delivering raw audio chunks as they
	// are captured, suitable for feeding a live transcription stream. Devices
	// that cannot stream return nil; callers must tolerate that. The channel
	// is closed when capture ends.
	Frames() <-chan []byte

	// Stop ends the capture, releases the underlying device, and returns the
	// finished take. The device must be fully released when Stop returns,
	// including on error, so a subsequent Start can succeed.
	Stop(ctx context.Context) (Take, error)
}

// Take is a finished capture: the encoded audio payload plus the settings the
// device actually used.
type Take struct {
	// Payload is the complete encoded audio (WAV).
	Payload []byte

	// Settings reports what the device actually negotiated. Fields the
	// device cannot report are left at their zero value; [Merge] fills those
	// from the requested constraints.
	Settings Settings
}
