// Package mock provides in-memory mock implementations of the
// [transcribe.Service] and [transcribe.Stream] interfaces for use in unit
// tests.
package mock

import (
	"context"
	"sync"

	"github.com/korralabs/recbooth/pkg/transcribe"
)

// Service is a mock implementation of [transcribe.Service].
type Service struct {
	mu sync.Mutex

	// OpenResult is returned by [Service.Open] when OpenError is nil.
	OpenResult *Stream

	// OpenError is returned by [Service.Open].
	OpenError error

	// CallCountOpen records how many times Open was called.
	CallCountOpen int

	// RecordedConfigs holds the configs passed to each Open call.
	RecordedConfigs []transcribe.StreamConfig

	// RecordedContexts holds the contexts passed to each Open call.
	RecordedContexts []context.Context
}

// Open implements [transcribe.Service].
func (s *Service) Open(ctx context.Context, cfg transcribe.StreamConfig) (transcribe.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountOpen++
	s.RecordedConfigs = append(s.RecordedConfigs, cfg)
	s.RecordedContexts = append(s.RecordedContexts, ctx)
	if s.OpenError != nil {
		return nil, s.OpenError
	}
	if s.OpenResult != nil {
		return s.OpenResult, nil
	}
	return NewStream(nil), nil
}

// Stream is a mock implementation of [transcribe.Stream]. Construct it with
// [NewStream], passing the results it should emit; they are delivered on the
// Results channel when Close is called, mimicking a service that flushes
// finals at end-of-audio.
type Stream struct {
	mu sync.Mutex

	// SendError is returned by [Stream.Send].
	SendError error

	// CallCountSend records how many times Send was called.
	CallCountSend int

	// SentBytes accumulates all chunks passed to Send.
	SentBytes []byte

	pending []transcribe.Result
	results chan transcribe.Result
	closed  bool
}

// NewStream creates a mock stream that emits the given results on Close.
func NewStream(results []transcribe.Result) *Stream {
	return &Stream{
		pending: results,
		results: make(chan transcribe.Result, len(results)+1),
	}
}

// Send implements [transcribe.Stream].
func (s *Stream) Send(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountSend++
	s.SentBytes = append(s.SentBytes, chunk...)
	return s.SendError
}

// Results implements [transcribe.Stream].
func (s *Stream) Results() <-chan transcribe.Result { return s.results }

// Close implements [transcribe.Stream]. It flushes the configured results
// and closes the Results channel. Safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, r := range s.pending {
		s.results <- r
	}
	close(s.results)
	return nil
}
