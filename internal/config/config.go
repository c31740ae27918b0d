// Package config holds the segmentation engine's runtime configuration:
// the spec's per-invocation segmentation parameters (activity_window_ms,
// activity_threshold, allow_gap_ms, padding_ms, min_duration_ms,
// timeout_s) plus the ambient server settings (listen address, log
// level, audit-sink DSN). Kept from the teacher's env+JSON Loader shape
// (internal/config/loader.go) and extended with an optional YAML file
// layer using gopkg.in/yaml.v3, grounded on
// MrWong99-glyphoxa/internal/config/{config,loader}.go's Load/
// LoadFromReader/Validate shape and on agalue-sherpa-voice-assistant /
// doismellburning-samoyed, which both list yaml.v3 directly.
package config

import (
	"fmt"

	"github.com/vadcore/segmenter/internal/segment"
)

// Defaults for every tunable, chosen per spec §4.3's "no gap, no padding,
// run-until-voice" baseline behavior.
const (
	DefaultListenAddr        = "localhost:8080"
	DefaultLogLevel          = "info"
	DefaultActivityWindowMs  = 30
	DefaultActivityThreshold = 0.9
	DefaultAllowGapMs        = 0
	DefaultPaddingMs         = 0
	DefaultMinDurationMs     = 0
	DefaultTimeoutS          = 0
)

// Config holds the adapter's full runtime configuration.
type Config struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	// PersistDSN is the PostgreSQL DSN for the mention audit sink
	// (internal/persist). Empty disables persistence.
	PersistDSN string `json:"persist_dsn" yaml:"persist_dsn"`

	// Detector selects the classifier backend: "webrtcvad", "stub", or
	// "auto"/empty (webrtcvad when compiled in, else stub).
	Detector string `json:"detector" yaml:"detector"`

	VAD VADParams `json:"vad" yaml:"vad"`
}

// VADParams is the spec §4.3 segmentation parameter table.
type VADParams struct {
	ActivityWindowMs  int     `json:"activity_window_ms" yaml:"activity_window_ms"`
	ActivityThreshold float64 `json:"activity_threshold" yaml:"activity_threshold"`
	AllowGapMs        int     `json:"allow_gap_ms" yaml:"allow_gap_ms"`
	PaddingMs         int     `json:"padding_ms" yaml:"padding_ms"`
	MinDurationMs     int     `json:"min_duration_ms" yaml:"min_duration_ms"`
	TimeoutS          int     `json:"timeout_s" yaml:"timeout_s"`
}

// ToSegmentConfig converts VADParams into the segment package's Config
// shape, the form the segmentation state machine actually consumes.
func (p VADParams) ToSegmentConfig() segment.Config {
	return segment.Config{
		ActivityWindowMs:  p.ActivityWindowMs,
		ActivityThreshold: p.ActivityThreshold,
		AllowGapMs:        p.AllowGapMs,
		PaddingMs:         p.PaddingMs,
		MinDurationMs:     p.MinDurationMs,
		TimeoutS:          p.TimeoutS,
	}
}

// Default returns a Config populated with every default value.
func Default() Config {
	return Config{
		ListenAddr: DefaultListenAddr,
		LogLevel:   DefaultLogLevel,
		Detector:   "stub",
		VAD: VADParams{
			ActivityWindowMs:  DefaultActivityWindowMs,
			ActivityThreshold: DefaultActivityThreshold,
			AllowGapMs:        DefaultAllowGapMs,
			PaddingMs:         DefaultPaddingMs,
			MinDurationMs:     DefaultMinDurationMs,
			TimeoutS:          DefaultTimeoutS,
		},
	}
}

// Validate checks cfg for internal consistency, mirroring
// segment.Config.Validate's constraints so configuration errors surface
// at startup rather than on the first request.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr must not be empty")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log_level %q is invalid; valid values: debug, info, warn, error", c.LogLevel)
	}
	switch c.Detector {
	case "", "auto", "webrtcvad", "stub":
	default:
		return fmt.Errorf("config: detector %q is invalid; valid values: auto, webrtcvad, stub", c.Detector)
	}
	return c.VAD.Validate()
}

// Validate checks the segmentation parameters against the spec's fixed
// ranges (activity_threshold ∈ [0,1]; all durations non-negative).
func (p VADParams) Validate() error {
	if p.ActivityWindowMs <= 0 {
		return fmt.Errorf("config: vad.activity_window_ms must be positive, got %d", p.ActivityWindowMs)
	}
	if p.ActivityThreshold < 0 || p.ActivityThreshold > 1 {
		return fmt.Errorf("config: vad.activity_threshold must be in [0,1], got %v", p.ActivityThreshold)
	}
	if p.AllowGapMs < 0 {
		return fmt.Errorf("config: vad.allow_gap_ms must not be negative, got %d", p.AllowGapMs)
	}
	if p.PaddingMs < 0 {
		return fmt.Errorf("config: vad.padding_ms must not be negative, got %d", p.PaddingMs)
	}
	if p.MinDurationMs < 0 {
		return fmt.Errorf("config: vad.min_duration_ms must not be negative, got %d", p.MinDurationMs)
	}
	if p.TimeoutS < 0 {
		return fmt.Errorf("config: vad.timeout_s must not be negative, got %d", p.TimeoutS)
	}
	return nil
}
