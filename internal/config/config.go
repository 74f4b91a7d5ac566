// Package config provides the configuration schema, loader, and session
// manifest parsing for the recbooth server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/korralabs/recbooth/internal/session"
	"github.com/korralabs/recbooth/pkg/capture"
)

// Duration is a [time.Duration] that unmarshals from YAML strings such as
// "15s" or "2m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a standard [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// LogLevel controls log verbosity for the recbooth server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CaptureSource selects the capture device implementation.
type CaptureSource string

const (
	// SourceWavFile reads takes from WAV files on disk.
	SourceWavFile CaptureSource = "wavfile"

	// SourceMock uses the in-memory mock device; useful for UI development
	// without audio hardware.
	SourceMock CaptureSource = "mock"
)

// IsValid reports whether s is a recognised capture source.
func (s CaptureSource) IsValid() bool {
	return s == SourceWavFile || s == SourceMock
}

// Config is the root configuration structure for recbooth.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Capture     CaptureConfig     `yaml:"capture"`
	Analyzer    AnalyzerConfig    `yaml:"analyzer"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Verify      VerifyConfig      `yaml:"verify"`
	Session     SessionConfig     `yaml:"session"`
}

// ServerConfig holds network and logging settings for the recbooth server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8090").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// CaptureConfig selects the capture device and the constraints requested
// from it.
type CaptureConfig struct {
	// Constraints are requested from the device on every BeginCapture. The
	// device reports back what it actually negotiated.
	capture.Constraints `yaml:",inline"`

	// Source selects the device implementation.
	Source CaptureSource `yaml:"source"`

	// WavDir is the directory of takes when Source is "wavfile".
	WavDir string `yaml:"wav_dir"`
}

// AnalyzerConfig configures the post-take quality analysis service.
type AnalyzerConfig struct {
	// URL is the analysis endpoint. Empty disables analysis entirely.
	URL string `yaml:"url"`

	// QualityCheck runs the analyzer verdict after every take.
	QualityCheck bool `yaml:"quality_check"`

	// AutoTrim asks the analyzer for a trim region after every take.
	AutoTrim bool `yaml:"auto_trim"`

	// Trim decides whether an analyzer region is applied directly or parked
	// as a suggestion. Default: apply.
	Trim session.TrimMode `yaml:"trim"`

	// Timeout bounds each analysis request. Zero means no bound: the
	// operator waits until the analyzer answers.
	Timeout Duration `yaml:"timeout"`
}

// TranscriberConfig configures live transcription during capture.
type TranscriberConfig struct {
	// URL is the websocket endpoint. Empty disables live transcription.
	URL string `yaml:"url"`

	// Language is the language hint passed to the service (e.g., "is-IS").
	Language string `yaml:"language"`
}

// VerifyConfig configures prompt/transcription similarity scoring.
type VerifyConfig struct {
	// Threshold is the minimum score accepted as a faithful reading, in
	// [0, 1]. 0 uses the scorer's default.
	Threshold float64 `yaml:"threshold"`
}

// SessionConfig points at the session manifest and the collection server.
type SessionConfig struct {
	// Manifest is the path to the session manifest YAML.
	Manifest string `yaml:"manifest"`

	// SubmitURL is the collection server's batch upload endpoint.
	SubmitURL string `yaml:"submit_url"`

	// OnLastNext decides what moveNext does on the last token. Default: stay.
	OnLastNext session.NextPolicy `yaml:"on_last_next"`
}
