package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/korralabs/recbooth/internal/observe"
	"github.com/korralabs/recbooth/internal/submit"
	"github.com/korralabs/recbooth/pkg/analyzer"
	"github.com/korralabs/recbooth/pkg/capture"
	"github.com/korralabs/recbooth/pkg/transcribe"
)

// Phase is the controller's exclusive-operation state. Exactly one phase is
// active at a time; every command checks the phase before touching any
// token state.
type Phase int

const (
	// PhaseIdle means no exclusive operation is in flight; all commands are
	// legal subject to their own preconditions.
	PhaseIdle Phase = iota

	// PhaseCapturing means a take is being recorded on the current token.
	PhaseCapturing

	// PhaseAnalyzing covers the window between stopping the device and
	// attaching the finished take: flushing, transcription finish, and
	// quality analysis. Navigation stays locked out so analysis results
	// always land on the take they belong to.
	PhaseAnalyzing

	// PhasePlaying means the current token's take is being played back.
	PhasePlaying

	// PhaseSubmitting means the batch upload request is in flight.
	PhaseSubmitting

	// PhaseDone means a submission succeeded; the session is terminated and
	// every further command is rejected.
	PhaseDone
)

// String returns the human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCapturing:
		return "capturing"
	case PhaseAnalyzing:
		return "analyzing"
	case PhasePlaying:
		return "playing"
	case PhaseSubmitting:
		return "submitting"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// NextPolicy decides what MoveNext does on the last token.
type NextPolicy string

const (
	// NextStay makes MoveNext a no-op on the last token.
	NextStay NextPolicy = "stay"

	// NextSubmit makes MoveNext on the last token trigger submission.
	NextSubmit NextPolicy = "submit"
)

// IsValid reports whether n is a recognised policy.
func (n NextPolicy) IsValid() bool {
	return n == NextStay || n == NextSubmit
}

// TrimMode decides how an analyzer-suggested trim region is handled.
type TrimMode string

const (
	// TrimApply attaches the suggested region as the token's cut directly.
	TrimApply TrimMode = "apply"

	// TrimSuggest parks the region as a pending suggestion; the operator
	// adopts it via ToggleCut.
	TrimSuggest TrimMode = "suggest"
)

// IsValid reports whether m is a recognised trim mode.
func (m TrimMode) IsValid() bool {
	return m == TrimApply || m == TrimSuggest
}

// SelectionSurface is the external waveform-selection state the controller
// reads when ToggleCut is invoked. The controller never owns selection
// state.
type SelectionSurface interface {
	// Active reports whether the operator has an active selection.
	Active() bool

	// Bounds returns the current selection region in seconds.
	Bounds() (start, end float64)

	// Clear drops the active selection, used when a cut is removed.
	Clear()
}

// Submitter sends one assembled batch and returns the redirect location the
// server answered with.
type Submitter interface {
	Send(ctx context.Context, p submit.Payload) (redirect string, err error)
}

// Verifier scores a transcription against the prompt it should match and
// judges whether the reading was faithful enough.
type Verifier interface {
	Score(prompt, hypothesis string) float64
	Passes(prompt, hypothesis string) bool
}

// Policy carries the behavioural settings of a Controller.
type Policy struct {
	// Constraints are the capture parameters requested from the device.
	Constraints capture.Constraints

	// QualityCheck runs the analyzer after every take.
	QualityCheck bool

	// AutoTrim asks the analyzer for a trim region after every take.
	AutoTrim bool

	// Trim decides whether an analyzer region is applied or suggested.
	// Default: TrimApply.
	Trim TrimMode

	// OnLastNext decides what MoveNext does on the last token.
	// Default: NextStay.
	OnLastNext NextPolicy

	// Language is the transcription language hint.
	Language string
}

// ControllerConfig holds all dependencies for a [Controller]. Device,
// Session, and Submitter are required; everything else is optional.
type ControllerConfig struct {
	Session     *Session
	Device      capture.Device
	Submitter   Submitter
	Analyzer    analyzer.Analyzer   // nil disables quality check and auto-trim
	Transcriber transcribe.Service  // nil disables live transcription
	Selection   SelectionSurface    // nil means no selection surface
	Verifier    Verifier            // nil disables prompt verification
	Metrics     *observe.Metrics    // nil disables metric recording
	Policy      Policy

	// NewPlayable builds the playback resource for a finished take. Nil
	// means takes have no playback resource.
	NewPlayable func(payload []byte) (Playable, error)

	// Clock is injectable for testing; defaults to time.Now.
	Clock func() time.Time
}

// Controller is the session state machine. It owns the Session value
// outright: every mutation of token or cursor state goes through a command
// method, and every command enforces the phase-based exclusion rules.
// All exported methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	sess  *Session
	phase Phase

	device      capture.Device
	submitter   Submitter
	analyzer    analyzer.Analyzer
	transcriber transcribe.Service
	selection   SelectionSurface
	verifier    Verifier
	metrics     *observe.Metrics
	policy      Policy
	newPlayable func([]byte) (Playable, error)
	clock       func() time.Time

	// Capture-scoped state, valid only while phase is PhaseCapturing.
	handle       capture.Handle
	captureStart time.Time
	stream       transcribe.Stream
	pumpDone     chan struct{}

	// redirect is the location returned by a successful submission.
	redirect string
}

// NewController creates a Controller. Session, Device, and Submitter must be
// set; Policy defaults are filled in for Trim and OnLastNext.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Session == nil {
		return nil, errors.New("session: controller needs a session")
	}
	if cfg.Device == nil {
		return nil, errors.New("session: controller needs a capture device")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("session: controller needs a submitter")
	}
	if cfg.Policy.Trim == "" {
		cfg.Policy.Trim = TrimApply
	}
	if !cfg.Policy.Trim.IsValid() {
		return nil, fmt.Errorf("session: invalid trim mode %q", cfg.Policy.Trim)
	}
	if cfg.Policy.OnLastNext == "" {
		cfg.Policy.OnLastNext = NextStay
	}
	if !cfg.Policy.OnLastNext.IsValid() {
		return nil, fmt.Errorf("session: invalid next policy %q", cfg.Policy.OnLastNext)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Controller{
		sess:        cfg.Session,
		device:      cfg.Device,
		submitter:   cfg.Submitter,
		analyzer:    cfg.Analyzer,
		transcriber: cfg.Transcriber,
		selection:   cfg.Selection,
		verifier:    cfg.Verifier,
		metrics:     cfg.Metrics,
		policy:      cfg.Policy,
		newPlayable: cfg.NewPlayable,
		clock:       clock,
	}, nil
}

// ─── Navigation ──────────────────────────────────────────────────────────────

// MoveNext advances the cursor to the next token. On the last token it
// either no-ops or triggers Submit, depending on policy. Rejected while any
// exclusive operation is in flight.
func (c *Controller) MoveNext(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		defer c.mu.Unlock()
		return illegalf("moveNext", c.phase)
	}
	if c.sess.cursor < len(c.sess.tokens)-1 {
		c.sess.current().releasePlayable()
		c.sess.cursor++
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.policy.OnLastNext == NextSubmit {
		return c.Submit(ctx)
	}
	return nil
}

// MovePrevious moves the cursor back one token; a no-op on the first token.
// Rejected while any exclusive operation is in flight.
func (c *Controller) MovePrevious() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return illegalf("movePrevious", c.phase)
	}
	if c.sess.cursor > 0 {
		c.sess.current().releasePlayable()
		c.sess.cursor--
	}
	return nil
}

// ─── Capture lifecycle ───────────────────────────────────────────────────────

// BeginCapture starts recording a take on the current token. An existing
// recording is discarded the moment the device starts successfully —
// re-recording replaces, never appends — while a failed start leaves the
// token untouched. Capturing is exclusive: navigation, skip, trim, playback,
// and submission are all rejected until EndCapture.
//
// Errors: [capture.ErrPermissionDenied], [*capture.ConstraintError] (both
// leave all state unchanged), [ErrTokenSkipped], [ErrIllegalTransition].
func (c *Controller) BeginCapture(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return illegalf("beginCapture", c.phase)
	}
	tok := c.sess.current()
	if tok.skipped {
		return fmt.Errorf("session: beginCapture on token %q: %w", tok.id, ErrTokenSkipped)
	}

	h, err := c.device.Start(ctx, c.policy.Constraints)
	if err != nil {
		c.countCaptureFailure(ctx, err)
		switch {
		case errors.Is(err, capture.ErrPermissionDenied):
			return fmt.Errorf("session: capture denied: %w", err)
		default:
			var ce *capture.ConstraintError
			if errors.As(err, &ce) {
				return fmt.Errorf("session: capture constraints: %w", err)
			}
			return fmt.Errorf("session: start capture: %w", err)
		}
	}

	// Only now that the device is live may the old take be discarded.
	tok.clearRecording()

	c.handle = h
	c.captureStart = c.clock()
	c.phase = PhaseCapturing
	if c.metrics != nil {
		c.metrics.ExclusiveOps.Add(ctx, 1)
	}

	c.startTranscription(ctx, h)

	slog.Info("capture started", "token_id", tok.id, "index", c.sess.cursor)
	return nil
}

// EndCapture stops the in-progress capture and attaches the finished take to
// the current token: payload, a filename derived from the completion time,
// the merged negotiated settings, the live transcription (when enabled), and
// — when quality check or auto-trim is configured — the analyzer verdict and
// trim region. Analysis runs before the controller returns to idle, so no
// command can interleave between a take and its analysis result.
//
// A device failure on stop aborts the take: no recording is attached and
// the controller returns to idle.
func (c *Controller) EndCapture(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseCapturing {
		defer c.mu.Unlock()
		return illegalf("endCapture", c.phase)
	}
	h := c.handle
	c.handle = nil
	c.phase = PhaseAnalyzing
	started := c.captureStart
	c.mu.Unlock()

	take, stopErr := h.Stop(ctx)
	transcription := c.finishTranscription()

	if stopErr != nil {
		c.mu.Lock()
		c.phase = PhaseIdle
		c.mu.Unlock()
		c.countCaptureFailure(ctx, stopErr)
		if c.metrics != nil {
			c.metrics.ExclusiveOps.Add(ctx, -1)
		}
		return fmt.Errorf("session: stop capture: %w", stopErr)
	}

	completed := c.clock()
	rec := &Recording{
		payload:       take.Payload,
		filename:      completed.UTC().Format("2006-01-02T15:04:05.000Z") + ".wav",
		settings:      capture.Merge(c.policy.Constraints, take.Settings),
		transcription: transcription,
	}
	if c.verifier != nil && transcription != "" {
		prompt := c.currentPromptText()
		score := c.verifier.Score(prompt, transcription)
		ok := c.verifier.Passes(prompt, transcription)
		rec.matchScore = &score
		rec.matchOK = &ok
	}
	if c.newPlayable != nil {
		p, err := c.newPlayable(take.Payload)
		if err != nil {
			slog.Warn("playable resource creation failed", "err", err)
		} else {
			rec.playable = p
		}
	}

	// Quality analysis, still exclusive.
	var verdict analyzer.Verdict
	var segment *analyzer.Region
	if c.analyzer != nil && (c.policy.QualityCheck || c.policy.AutoTrim) {
		analysisStart := c.clock()
		rep, err := c.analyzer.Analyze(ctx, take.Payload)
		if err != nil {
			slog.Warn("analysis failed", "err", err)
			verdict = analyzer.VerdictError
		} else {
			verdict = rep.Verdict
			if c.policy.AutoTrim {
				segment = rep.Segment
			}
		}
		if c.metrics != nil {
			c.metrics.AnalysisDuration.Record(ctx, c.clock().Sub(analysisStart).Seconds())
			c.metrics.AnalysisRuns.Add(ctx, 1,
				metric.WithAttributes(attribute.String("verdict", string(verdict))))
		}
	}

	c.mu.Lock()
	tok := c.sess.current()
	tok.clearRecording()
	tok.recording = rec
	tok.analysis = verdict
	if segment != nil {
		cut := &Cut{Start: segment.Start, End: segment.End}
		if c.policy.Trim == TrimSuggest {
			tok.suggestedCut = cut
		} else {
			tok.cut = cut
		}
	}
	c.phase = PhaseIdle
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ExclusiveOps.Add(ctx, -1)
		c.metrics.TakesRecorded.Add(ctx, 1)
		c.metrics.CaptureDuration.Record(ctx, completed.Sub(started).Seconds())
	}

	slog.Info("take recorded",
		"token_id", tok.id,
		"filename", rec.filename,
		"verdict", verdict,
		"transcribed", transcription != "",
	)
	return nil
}

// startTranscription opens the live transcription stream and spawns the pump
// that forwards capture frames to it. Transcription is best-effort: failures
// are logged and the capture continues without it. Called with the lock held.
func (c *Controller) startTranscription(ctx context.Context, h capture.Handle) {
	c.stream = nil
	c.pumpDone = nil
	if c.transcriber == nil {
		return
	}
	frames := h.Frames()
	if frames == nil {
		return
	}

	// The stream lives until EndCapture, well past the command that started
	// it, so it must not share the command's cancellation (over HTTP that is
	// the request context, cancelled as soon as the response is written).
	stream, err := c.transcriber.Open(context.WithoutCancel(ctx), transcribe.StreamConfig{
		SampleRate: c.policy.Constraints.SampleRate,
		Channels:   c.policy.Constraints.Channels,
		Language:   c.policy.Language,
	})
	if err != nil {
		slog.Warn("live transcription unavailable", "err", err)
		return
	}

	c.stream = stream
	c.pumpDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		for chunk := range frames {
			if err := stream.Send(chunk); err != nil {
				// Keep draining frames so the device never blocks.
				for range frames {
				}
				return
			}
		}
	}(c.pumpDone)
}

// finishTranscription waits for the frame pump (the device's frame channel
// closes on Stop), closes the stream, and returns the final text. Returns
// the empty string when transcription was not running.
func (c *Controller) finishTranscription() string {
	if c.stream == nil {
		return ""
	}
	<-c.pumpDone
	stream := c.stream
	c.stream = nil
	c.pumpDone = nil
	_ = stream.Close()
	return transcribe.FinalText(stream.Results())
}

// currentPromptText reads the current token's prompt under the lock.
func (c *Controller) currentPromptText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.current().text
}

// ─── Delete / skip / trim ────────────────────────────────────────────────────

// Delete removes the current token's recording along with its cut and
// analysis state. Idempotent: deleting an empty token is a no-op.
func (c *Controller) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return illegalf("delete", c.phase)
	}
	c.sess.current().clearRecording()
	return nil
}

// ToggleSkip flips the current token's skip mark. Marking a token skipped
// discards any recording it has (skip and recording are mutually exclusive)
// and advances to the next token; un-marking has no other side effect.
func (c *Controller) ToggleSkip(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return illegalf("toggleSkip", c.phase)
	}

	tok := c.sess.current()
	if tok.skipped {
		tok.skipped = false
		return nil
	}

	tok.skipped = true
	tok.clearRecording()
	if c.metrics != nil {
		c.metrics.TokensSkipped.Add(ctx, 1)
	}

	// Plain bounded advance; the submit-on-last policy never applies here.
	if c.sess.cursor < len(c.sess.tokens)-1 {
		tok.releasePlayable()
		c.sess.cursor++
	}
	return nil
}

// ToggleCut toggles the trim region on the current token's take. With a cut
// present, it is removed (the full take is restored) and the active
// selection is cleared. Without one, the externally reported selection —
// or, failing that, a pending analyzer suggestion — becomes the token's
// cut, replacing rather than appending.
func (c *Controller) ToggleCut() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return illegalf("toggleCut", c.phase)
	}

	tok := c.sess.current()
	if tok.recording == nil {
		return fmt.Errorf("session: toggleCut: %w", ErrNoRecording)
	}

	if tok.cut != nil {
		tok.cut = nil
		if c.selection != nil {
			c.selection.Clear()
		}
		return nil
	}

	if c.selection != nil && c.selection.Active() {
		start, end := c.selection.Bounds()
		tok.cut = &Cut{Start: start, End: end}
		tok.suggestedCut = nil
		return nil
	}
	if tok.suggestedCut != nil {
		tok.cut = tok.suggestedCut
		tok.suggestedCut = nil
		return nil
	}
	return fmt.Errorf("session: toggleCut: %w", ErrNoSelection)
}

// ─── Playback ────────────────────────────────────────────────────────────────

// BeginPlayback marks the current token's take as playing. Playback is
// exclusive with capture, analysis, and submission, and blocks navigation.
func (c *Controller) BeginPlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return illegalf("beginPlayback", c.phase)
	}
	if c.sess.current().recording == nil {
		return fmt.Errorf("session: beginPlayback: %w", ErrNoRecording)
	}
	c.phase = PhasePlaying
	return nil
}

// EndPlayback returns the controller to idle after playback.
func (c *Controller) EndPlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhasePlaying {
		return illegalf("endPlayback", c.phase)
	}
	c.phase = PhaseIdle
	return nil
}

// ─── Submission ──────────────────────────────────────────────────────────────

// Submit assembles the batch payload and sends it as one atomic request.
// Legal only when idle and at least one token carries a recording or a skip
// mark. The submitting phase itself locks out every command — including a
// second Submit — until the server answers.
//
// On success the session is terminated: the redirect location is recorded,
// playback resources are released, and every further command is rejected.
// On failure the session returns to idle, fully intact, and the error wraps
// a [*submit.RejectedError] when the server answered with a non-200 status.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		defer c.mu.Unlock()
		return illegalf("submit", c.phase)
	}
	if !c.sess.submittable() {
		defer c.mu.Unlock()
		return fmt.Errorf("session: %w", ErrNothingToSubmit)
	}

	payload := c.assembleLocked()
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ExclusiveOps.Add(ctx, 1)
	}
	sendStart := c.clock()
	redirect, err := c.submitter.Send(ctx, payload)
	elapsed := c.clock().Sub(sendStart).Seconds()
	if c.metrics != nil {
		c.metrics.ExclusiveOps.Add(ctx, -1)
		c.metrics.SubmissionDuration.Record(ctx, elapsed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.phase = PhaseIdle
		if c.metrics != nil {
			status := "error"
			var rej *submit.RejectedError
			if errors.As(err, &rej) {
				status = "rejected"
			}
			c.metrics.Submissions.Add(ctx, 1, observe.WithStatus(status))
		}
		slog.Warn("submission failed", "err", err)
		return fmt.Errorf("session: submit: %w", err)
	}

	c.phase = PhaseDone
	c.redirect = redirect
	for _, t := range c.sess.tokens {
		t.releasePlayable()
	}
	if c.metrics != nil {
		c.metrics.Submissions.Add(ctx, 1, observe.WithStatus("ok"))
	}
	slog.Info("session submitted",
		"recordings", len(payload.Recordings),
		"skipped", len(payload.Skipped),
		"duration_s", payload.Duration,
		"redirect", redirect,
	)
	return nil
}

// assembleLocked builds the submission payload from the session state. For
// every token in index order: a recorded token contributes a metadata entry
// keyed by its id plus one binary file part; a skipped token contributes its
// id to the skipped list; an untouched token contributes nothing.
func (c *Controller) assembleLocked() submit.Payload {
	p := submit.Payload{
		Duration:     c.clock().Sub(c.sess.startedAt).Seconds(),
		UserID:       c.sess.identity.UserID,
		ManagerID:    c.sess.identity.ManagerID,
		CollectionID: c.sess.identity.CollectionID,
		Recordings:   make(map[string]submit.Entry),
	}

	for _, t := range c.sess.tokens {
		switch {
		case t.recording != nil:
			entry := submit.Entry{
				Filename:      t.recording.filename,
				Settings:      t.recording.settings,
				Transcription: t.recording.transcription,
				Analysis:      string(t.analysis),
			}
			if t.cut != nil {
				entry.Cut = &analyzer.Region{Start: t.cut.Start, End: t.cut.End}
			}
			p.Recordings[t.id] = entry
			p.Files = append(p.Files, submit.File{
				TokenID:  t.id,
				Filename: t.recording.filename,
				Payload:  t.recording.payload,
			})
		case t.skipped:
			p.Skipped = append(p.Skipped, t.id)
		}
	}
	return p
}

// countCaptureFailure records a capture failure metric by reason.
func (c *Controller) countCaptureFailure(ctx context.Context, err error) {
	if c.metrics == nil {
		return
	}
	reason := "device"
	var ce *capture.ConstraintError
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		reason = "denied"
	case errors.As(err, &ce):
		reason = "constraint"
	}
	c.metrics.CaptureFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}
