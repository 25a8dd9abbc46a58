// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// AnalysisEndpoint is the runtime override for the analysis service base URL.
	// Empty means "not overridden"; see ResolveEndpoint.
	AnalysisEndpoint string `koanf:"analysis_endpoint"`

	// AgeMonths is the child age recorded on new sessions when the caller omits it.
	AgeMonths int `koanf:"age_months"`

	// MaxSessions bounds concurrently running sessions. Capture devices are
	// exclusively owned by one active module, so the default is 1.
	MaxSessions int `koanf:"max_sessions"`

	// SessionQueueSize bounds sessions waiting for a runner.
	SessionQueueSize int `koanf:"session_queue_size"`

	// OutboundBuffer bounds telemetry messages waiting to be written to a socket.
	OutboundBuffer int `koanf:"outbound_buffer"`

	// DisplayRefreshHz drives the video frame pump.
	DisplayRefreshHz int `koanf:"display_refresh_hz"`

	// AudioSampleRate and AudioBlockSize shape the vocalization capture.
	AudioSampleRate int `koanf:"audio_sample_rate"`
	AudioBlockSize  int `koanf:"audio_block_size"`

	// NameFallbackDelayMS triggers name detection when no transcripts are available.
	NameFallbackDelayMS int `koanf:"name_fallback_delay_ms"`

	// EnvelopeAudio wraps audio blocks in a JSON envelope instead of a bare string.
	EnvelopeAudio bool `koanf:"envelope_audio"`

	// ReplayDir holds recorded frames/ and audio.f32 for replay devices.
	// Empty selects synthetic devices.
	ReplayDir string `koanf:"replay_dir"`

	// BatchTimeoutMS bounds the batch analysis call. Zero waits indefinitely.
	BatchTimeoutMS int `koanf:"batch_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		AgeMonths:           24,
		MaxSessions:         1,
		SessionQueueSize:    16,
		OutboundBuffer:      8,
		DisplayRefreshHz:    60,
		AudioSampleRate:     16000,
		AudioBlockSize:      4096,
		NameFallbackDelayMS: 3000,
	}
}
