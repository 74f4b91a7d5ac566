package capture

// Constraints describes the audio capture parameters requested from a
// [Device]. A device may negotiate different values; the settings it reports
// back take precedence (see [Merge]).
type Constraints struct {
	// SampleRate in Hz (e.g., 48000).
	SampleRate int `yaml:"sample_rate"`

	// SampleSize in bits per sample (e.g., 16).
	SampleSize int `yaml:"sample_size"`

	// Channels is the number of audio channels. Recording prompts is mono.
	Channels int `yaml:"channels"`

	// EchoCancellation requests acoustic echo cancellation.
	EchoCancellation bool `yaml:"echo_cancellation"`

	// NoiseSuppression requests noise suppression.
	NoiseSuppression bool `yaml:"noise_suppression"`

	// AutoGainControl requests automatic gain control.
	AutoGainControl bool `yaml:"auto_gain_control"`
}

// Settings is what a device actually used for a take. The boolean processing
// flags are pointers because "off" and "not reported" are different things: a
// device that reports echoCancellation=false overrides the request, a device
// that reports nothing falls back to it.
//
// The JSON field names follow the MediaTrackSettings convention the
// collection server expects in the submission metadata.
type Settings struct {
	SampleRate       int   `json:"sampleRate,omitempty"`
	SampleSize       int   `json:"sampleSize,omitempty"`
	Channels         int   `json:"channelCount,omitempty"`
	EchoCancellation *bool `json:"echoCancellation,omitempty"`
	NoiseSuppression *bool `json:"noiseSuppression,omitempty"`
	AutoGainControl  *bool `json:"autoGainControl,omitempty"`
}

// Bool returns a pointer to b, for building [Settings] literals.
func Bool(b bool) *bool { return &b }
