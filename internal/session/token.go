package session

import (
	"github.com/korralabs/recbooth/pkg/analyzer"
	"github.com/korralabs/recbooth/pkg/capture"
)

// TokenSeed is the immutable part of a token, loaded from the session
// manifest before the session starts.
type TokenSeed struct {
	// ID is the stable identifier the collection server expects for this
	// token's uploaded file and metadata. Unique within the session.
	ID string

	// Text is the prompt the operator reads aloud.
	Text string

	// Reference is a display URL or resource pointer for the prompt.
	Reference string
}

// Cut is a trim region within a take's timeline, in seconds.
type Cut struct {
	Start float64
	End   float64
}

// Recording is one finished take attached to a token.
type Recording struct {
	// payload is the complete encoded audio.
	payload []byte

	// filename is derived from the capture completion time.
	filename string

	// settings is the merged (negotiated over requested) capture settings.
	settings capture.Settings

	// transcription is the live-transcription text, empty when transcription
	// was disabled or produced nothing.
	transcription string

	// matchScore is the prompt/transcription similarity, nil when no
	// transcription or no verifier is configured. matchOK is the verifier's
	// pass/fail verdict at its configured threshold, set alongside it.
	matchScore *float64
	matchOK    *bool

	// playable is the playback resource for this take, scoped to "while this
	// token is current on screen". Nil once released.
	playable Playable
}

// Playable is an opaque playback resource derived from a take's payload,
// e.g. a temp file the front end can stream. The controller owns its
// lifecycle: it is released when the cursor moves away, when the recording
// is deleted or replaced, and when the session terminates.
type Playable interface {
	// URI is the reference the presentation layer uses to play the take.
	URI() string

	// Close releases the resource.
	Close() error
}

// Token is one prompt of the session plus all recording state attached to
// it. All fields are mutated exclusively by the [Controller]; the
// presentation layer sees tokens only through [Snapshot].
type Token struct {
	id        string
	text      string
	reference string

	recording *Recording
	skipped   bool

	// cut is the applied trim region. Only present while recording is.
	cut *Cut

	// suggestedCut is an analyzer-suggested region awaiting operator
	// confirmation (trim mode "suggest").
	suggestedCut *Cut

	// analysis is the analyzer verdict, empty when analysis has not run.
	analysis analyzer.Verdict
}

// clearRecording removes the token's recording and everything that only
// makes sense while a recording exists. Safe to call on an empty token.
func (t *Token) clearRecording() {
	if t.recording != nil && t.recording.playable != nil {
		_ = t.recording.playable.Close()
	}
	t.recording = nil
	t.cut = nil
	t.suggestedCut = nil
	t.analysis = ""
}

// releasePlayable closes the playback resource without touching the
// recording itself. Used when the cursor moves to a different token.
func (t *Token) releasePlayable() {
	if t.recording != nil && t.recording.playable != nil {
		_ = t.recording.playable.Close()
		t.recording.playable = nil
	}
}
