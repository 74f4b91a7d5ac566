package session

import (
	"time"

	"github.com/korralabs/recbooth/pkg/analyzer"
	"github.com/korralabs/recbooth/pkg/capture"
)

// TokenView is the read-only projection of one token.
type TokenView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Reference string `json:"reference,omitempty"`
	Skipped   bool   `json:"skipped"`
	Recorded  bool   `json:"recorded"`

	// Filename, Settings, Transcription, MatchScore, MatchOK, and
	// PlaybackURI are only set when Recorded is true.
	Filename      string            `json:"filename,omitempty"`
	Settings      *capture.Settings `json:"settings,omitempty"`
	Transcription string            `json:"transcription,omitempty"`
	MatchScore    *float64          `json:"matchScore,omitempty"`
	MatchOK       *bool             `json:"matchOk,omitempty"`
	PlaybackURI   string            `json:"playbackUri,omitempty"`

	Analysis     analyzer.Verdict `json:"analysis,omitempty"`
	Cut          *Cut             `json:"cut,omitempty"`
	SuggestedCut *Cut             `json:"suggestedCut,omitempty"`
}

// Snapshot is a consistent point-in-time view of the whole session. It
// shares no mutable state with the controller; callers may hold it
// indefinitely.
type Snapshot struct {
	Phase       string      `json:"phase"`
	Cursor      int         `json:"cursor"`
	Total       int         `json:"total"`
	Recorded    int         `json:"recorded"`
	Skipped     int         `json:"skipped"`
	Submittable bool        `json:"submittable"`
	StartedAt   time.Time   `json:"startedAt"`
	Identity    Identity    `json:"identity"`
	Tokens      []TokenView `json:"tokens"`

	// Redirect is the location returned by the server; set only once the
	// phase is "done".
	Redirect string `json:"redirect,omitempty"`
}

// Current returns the view of the token under the cursor.
func (s Snapshot) Current() TokenView {
	return s.Tokens[s.Cursor]
}

// Snapshot captures the full session state under the lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:     c.phase.String(),
		Cursor:    c.sess.cursor,
		Total:     len(c.sess.tokens),
		StartedAt: c.sess.startedAt,
		Identity:  c.sess.identity,
		Tokens:    make([]TokenView, 0, len(c.sess.tokens)),
		Redirect:  c.redirect,
	}

	for _, t := range c.sess.tokens {
		view := TokenView{
			ID:        t.id,
			Text:      t.text,
			Reference: t.reference,
			Skipped:   t.skipped,
		}
		if t.recording != nil {
			view.Recorded = true
			settings := t.recording.settings
			view.Filename = t.recording.filename
			view.Settings = &settings
			view.Transcription = t.recording.transcription
			if t.recording.matchScore != nil {
				score := *t.recording.matchScore
				view.MatchScore = &score
			}
			if t.recording.matchOK != nil {
				ok := *t.recording.matchOK
				view.MatchOK = &ok
			}
			if t.recording.playable != nil {
				view.PlaybackURI = t.recording.playable.URI()
			}
			snap.Recorded++
		}
		if t.skipped {
			snap.Skipped++
		}
		view.Analysis = t.analysis
		if t.cut != nil {
			cut := *t.cut
			view.Cut = &cut
		}
		if t.suggestedCut != nil {
			cut := *t.suggestedCut
			view.SuggestedCut = &cut
		}
		snap.Tokens = append(snap.Tokens, view)
	}
	// Submittable means Submit would be accepted right now: there is
	// something to send and no exclusive operation is in flight.
	snap.Submittable = c.phase == PhaseIdle && (snap.Recorded > 0 || snap.Skipped > 0)
	return snap
}

// Phase returns the current phase without building a full snapshot.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Redirect returns the post-submission redirect location, empty until the
// session is done.
func (c *Controller) Redirect() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redirect
}
