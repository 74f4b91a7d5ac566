// Package mock provides in-memory mock implementations of the
// [capture.Device] and [capture.Handle] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	handle := &mock.Handle{StopResult: capture.Take{Payload: wav}}
//	dev := &mock.Device{StartResult: handle}
//	h, err := dev.Start(ctx, capture.Constraints{SampleRate: 48000})
package mock

import (
	"context"
	"sync"

	"github.com/korralabs/recbooth/pkg/capture"
)

// Device is a mock implementation of [capture.Device].
// Set the exported Result fields before use; inspect the Call* fields after.
type Device struct {
	mu sync.Mutex

	// StartResult is returned by [Device.Start] when StartError is nil.
	StartResult *Handle

	// StartError is returned by [Device.Start]. Set it to
	// capture.ErrPermissionDenied or a *capture.ConstraintError to exercise
	// failure paths.
	StartError error

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// RecordedConstraints holds the constraints passed to each Start call,
	// in order.
	RecordedConstraints []capture.Constraints
}

// Start implements [capture.Device].
func (d *Device) Start(_ context.Context, c capture.Constraints) (capture.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountStart++
	d.RecordedConstraints = append(d.RecordedConstraints, c)
	if d.StartError != nil {
		return nil, d.StartError
	}
	if d.StartResult != nil {
		return d.StartResult, nil
	}
	return &Handle{}, nil
}

// Handle is a mock implementation of [capture.Handle].
type Handle struct {
	mu sync.Mutex

	// FramesChan is returned by [Handle.Frames]. Leave nil for a device that
	// does not stream.
	FramesChan chan []byte

	// StopResult is returned by [Handle.Stop] when StopError is nil.
	StopResult capture.Take

	// StopError is returned by [Handle.Stop].
	StopError error

	// CallCountStop records how many times Stop was called.
	CallCountStop int
}

// Frames implements [capture.Handle].
func (h *Handle) Frames() <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FramesChan == nil {
		return nil
	}
	return h.FramesChan
}

// Stop implements [capture.Handle].
func (h *Handle) Stop(context.Context) (capture.Take, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.CallCountStop++
	if h.FramesChan != nil {
		close(h.FramesChan)
		h.FramesChan = nil
	}
	if h.StopError != nil {
		return capture.Take{}, h.StopError
	}
	return h.StopResult, nil
}
