package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Capture
	if cfg.Capture.Source != "" && !cfg.Capture.Source.IsValid() {
		errs = append(errs, fmt.Errorf("capture.source %q is invalid; valid values: wavfile, mock", cfg.Capture.Source))
	}
	if cfg.Capture.Source == SourceWavFile && cfg.Capture.WavDir == "" {
		errs = append(errs, errors.New("capture.wav_dir is required when capture.source is wavfile"))
	}
	if cfg.Capture.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d must not be negative", cfg.Capture.SampleRate))
	}
	if cfg.Capture.Channels < 0 || cfg.Capture.Channels > 2 {
		errs = append(errs, fmt.Errorf("capture.channels %d is out of range [0, 2]", cfg.Capture.Channels))
	}

	// Analyzer
	if cfg.Analyzer.Trim != "" && !cfg.Analyzer.Trim.IsValid() {
		errs = append(errs, fmt.Errorf("analyzer.trim %q is invalid; valid values: apply, suggest", cfg.Analyzer.Trim))
	}
	if cfg.Analyzer.Timeout < 0 {
		errs = append(errs, fmt.Errorf("analyzer.timeout %s must not be negative", cfg.Analyzer.Timeout))
	}
	if cfg.Analyzer.URL == "" && (cfg.Analyzer.QualityCheck || cfg.Analyzer.AutoTrim) {
		errs = append(errs, errors.New("analyzer.url is required when quality_check or auto_trim is enabled"))
	}

	// Transcriber
	if cfg.Transcriber.URL != "" && !strings.HasPrefix(cfg.Transcriber.URL, "ws://") && !strings.HasPrefix(cfg.Transcriber.URL, "wss://") {
		errs = append(errs, fmt.Errorf("transcriber.url %q must be a ws:// or wss:// endpoint", cfg.Transcriber.URL))
	}

	// Verify
	if cfg.Verify.Threshold < 0 || cfg.Verify.Threshold > 1 {
		errs = append(errs, fmt.Errorf("verify.threshold %.2f is out of range [0, 1]", cfg.Verify.Threshold))
	}
	if cfg.Verify.Threshold > 0 && cfg.Transcriber.URL == "" {
		slog.Warn("verify.threshold is set but transcriber.url is empty; prompt verification needs live transcription")
	}

	// Session
	if cfg.Session.Manifest == "" {
		errs = append(errs, errors.New("session.manifest is required"))
	}
	if cfg.Session.SubmitURL == "" {
		errs = append(errs, errors.New("session.submit_url is required"))
	}
	if cfg.Session.OnLastNext != "" && !cfg.Session.OnLastNext.IsValid() {
		errs = append(errs, fmt.Errorf("session.on_last_next %q is invalid; valid values: stay, submit", cfg.Session.OnLastNext))
	}

	return errors.Join(errs...)
}
