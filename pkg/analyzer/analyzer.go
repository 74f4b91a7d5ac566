// Package analyzer defines the quality-analysis capability consumed by the
// recbooth session controller.
//
// An analyzer inspects a finished take and returns a quality verdict plus,
// optionally, a trim region covering the usable part of the audio. The
// controller never interprets audio itself; whether analysis runs locally or
// against a remote service is entirely the implementation's business.
//
// Implementations must be safe for concurrent use. Analysis failures should
// be returned as errors — the controller maps any failure to [VerdictError]
// on the affected take rather than propagating it.
package analyzer

import "context"

// Verdict is the quality classification of a take.
type Verdict string

const (
	// VerdictOK means the take is usable as-is.
	VerdictOK Verdict = "ok"

	// VerdictHigh means the recording level is too high (clipping likely).
	VerdictHigh Verdict = "high"

	// VerdictLow means the recording level is too low.
	VerdictLow Verdict = "low"

	// VerdictError means analysis itself failed.
	VerdictError Verdict = "error"
)

// IsValid reports whether v is a recognised verdict.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictOK, VerdictHigh, VerdictLow, VerdictError:
		return true
	}
	return false
}

// Region is a sub-range of a take's timeline, in seconds.
type Region struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Report is the outcome of analysing one take.
type Report struct {
	// Verdict classifies the take's quality.
	Verdict Verdict

	// Segment, when non-nil, is the trim region the analyzer suggests
	// keeping instead of the full take.
	Segment *Region
}

// Analyzer inspects a finished WAV take.
type Analyzer interface {
	// Analyze returns a quality report for the given WAV payload.
	Analyze(ctx context.Context, wav []byte) (Report, error)
}
