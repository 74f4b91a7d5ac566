// Package transcribe defines the live-transcription capability used during a
// capture. While a take is being recorded, raw audio chunks are forwarded to
// a transcription stream; when the take ends, the accumulated final text is
// attached to the recording.
//
// The central abstraction is [Stream]: once opened, it accepts raw audio
// chunks and emits [Result] values. Implementations must be safe for
// concurrent use; the audio input and result output paths are goroutine-safe
// by construction.
//
// Transcription is best-effort by contract: the session controller treats a
// failed or absent transcript as "no transcription", never as a failed take.
package transcribe

import "context"

// StreamConfig describes the audio format and language for a new
// transcription stream.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "is-IS").
	// An empty string lets the service pick its default.
	Language string
}

// Result is one transcription update from the service.
type Result struct {
	// Text is the transcribed speech content.
	Text string

	// Final indicates an authoritative result; non-final results are
	// low-latency guesses that later finals supersede.
	Final bool

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// service does not report confidence.
	Confidence float64
}

// Service opens live transcription streams.
type Service interface {
	// Open starts a transcription stream for one take.
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
}

// Stream is one live transcription session. Callers must call Close when the
// take ends; Close flushes pending audio and ends the Results channel.
type Stream interface {
	// Send delivers a chunk of raw audio bytes for transcription. Calling
	// Send after Close returns an error.
	Send(chunk []byte) error

	// Results returns a read-only channel emitting transcription updates.
	// The channel is closed when the stream ends.
	Results() <-chan Result

	// Close terminates the stream cleanly.
	Close() error
}

// FinalText drains a closed stream's remaining results and joins the final
// ones into the take's transcript. Non-final results are ignored.
func FinalText(results <-chan Result) string {
	var text string
	for r := range results {
		if !r.Final {
			continue
		}
		if text == "" {
			text = r.Text
		} else {
			text += " " + r.Text
		}
	}
	return text
}
