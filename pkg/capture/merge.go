package capture

// Merge combines the settings a device reported with the constraints that
// were requested. Reported values win field by field; anything the device
// left unreported (zero int, nil bool) falls back to the requested value.
// The result is fully populated: every field carries either a reported or a
// requested value.
//
// Merge is a pure function so the fallback logic can be tested without a
// live device.
func Merge(requested Constraints, reported Settings) Settings {
	out := Settings{
		SampleRate:       requested.SampleRate,
		SampleSize:       requested.SampleSize,
		Channels:         requested.Channels,
		EchoCancellation: Bool(requested.EchoCancellation),
		NoiseSuppression: Bool(requested.NoiseSuppression),
		AutoGainControl:  Bool(requested.AutoGainControl),
	}

	if reported.SampleRate != 0 {
		out.SampleRate = reported.SampleRate
	}
	if reported.SampleSize != 0 {
		out.SampleSize = reported.SampleSize
	}
	if reported.Channels != 0 {
		out.Channels = reported.Channels
	}
	if reported.EchoCancellation != nil {
		out.EchoCancellation = Bool(*reported.EchoCancellation)
	}
	if reported.NoiseSuppression != nil {
		out.NoiseSuppression = Bool(*reported.NoiseSuppression)
	}
	if reported.AutoGainControl != nil {
		out.AutoGainControl = Bool(*reported.AutoGainControl)
	}
	return out
}
