package session

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a command is invoked while the
// controller's exclusion rules forbid it (e.g. navigating mid-capture, or
// any command after the session terminated). Commands rejected this way
// never change any state.
var ErrIllegalTransition = errors.New("illegal transition")

// ErrNothingToSubmit is returned by Submit when no token carries a recording
// or a skip mark.
var ErrNothingToSubmit = errors.New("nothing to submit")

// ErrTokenSkipped is returned by BeginCapture when the current token is
// marked skipped; the operator must un-skip before re-recording.
var ErrTokenSkipped = errors.New("token is marked skipped")

// ErrNoRecording is returned by commands that need a take on the current
// token (trim, playback) when none exists.
var ErrNoRecording = errors.New("token has no recording")

// ErrNoSelection is returned by ToggleCut when neither an active waveform
// selection nor an analyzer suggestion is available to adopt.
var ErrNoSelection = errors.New("no active selection")

// illegalf builds an [ErrIllegalTransition] naming the rejected command and
// the phase that rejected it.
func illegalf(command string, p Phase) error {
	return fmt.Errorf("session: %s while %s: %w", command, p, ErrIllegalTransition)
}
