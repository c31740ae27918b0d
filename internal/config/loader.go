package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Loader loads configuration from environment variables, layered on top
// of Default(). Tests can override Lookup to inject deterministic maps.
type Loader struct {
	Lookup func(string) (string, bool)
}

// Load retrieves the adapter configuration from environment variables,
// starting from Default() and applying overrides in increasing priority:
// VADCORE_ADAPTER_CONFIG (a JSON blob), then individual VADCORE_* vars.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}

	cfg := Default()

	if raw, ok := l.Lookup("VADCORE_ADAPTER_CONFIG"); ok && strings.TrimSpace(raw) != "" {
		if err := applyJSON(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	overrideString(l.Lookup, "VADCORE_LISTEN_ADDR", &cfg.ListenAddr)
	overrideString(l.Lookup, "VADCORE_LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "VADCORE_PERSIST_DSN", &cfg.PersistDSN)
	overrideString(l.Lookup, "VADCORE_DETECTOR", &cfg.Detector)
	if err := overrideInt(l.Lookup, "VADCORE_ACTIVITY_WINDOW_MS", &cfg.VAD.ActivityWindowMs); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(l.Lookup, "VADCORE_ACTIVITY_THRESHOLD", &cfg.VAD.ActivityThreshold); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "VADCORE_ALLOW_GAP_MS", &cfg.VAD.AllowGapMs); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "VADCORE_PADDING_MS", &cfg.VAD.PaddingMs); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "VADCORE_MIN_DURATION_MS", &cfg.VAD.MinDurationMs); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "VADCORE_TIMEOUT_S", &cfg.VAD.TimeoutS); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyJSON(raw string, cfg *Config) error {
	type jsonVAD struct {
		ActivityWindowMs  *int     `json:"activity_window_ms"`
		ActivityThreshold *float64 `json:"activity_threshold"`
		AllowGapMs        *int     `json:"allow_gap_ms"`
		PaddingMs         *int     `json:"padding_ms"`
		MinDurationMs     *int     `json:"min_duration_ms"`
		TimeoutS          *int     `json:"timeout_s"`
	}
	type jsonConfig struct {
		ListenAddr string   `json:"listen_addr"`
		LogLevel   string   `json:"log_level"`
		PersistDSN string   `json:"persist_dsn"`
		Detector   string   `json:"detector"`
		VAD        *jsonVAD `json:"vad"`
	}
	var payload jsonConfig
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("config: decode VADCORE_ADAPTER_CONFIG: %w", err)
	}
	if payload.ListenAddr != "" {
		cfg.ListenAddr = payload.ListenAddr
	}
	if payload.LogLevel != "" {
		cfg.LogLevel = payload.LogLevel
	}
	if payload.PersistDSN != "" {
		cfg.PersistDSN = payload.PersistDSN
	}
	if payload.Detector != "" {
		cfg.Detector = payload.Detector
	}
	if payload.VAD != nil {
		if payload.VAD.ActivityWindowMs != nil {
			cfg.VAD.ActivityWindowMs = *payload.VAD.ActivityWindowMs
		}
		if payload.VAD.ActivityThreshold != nil {
			cfg.VAD.ActivityThreshold = *payload.VAD.ActivityThreshold
		}
		if payload.VAD.AllowGapMs != nil {
			cfg.VAD.AllowGapMs = *payload.VAD.AllowGapMs
		}
		if payload.VAD.PaddingMs != nil {
			cfg.VAD.PaddingMs = *payload.VAD.PaddingMs
		}
		if payload.VAD.MinDurationMs != nil {
			cfg.VAD.MinDurationMs = *payload.VAD.MinDurationMs
		}
		if payload.VAD.TimeoutS != nil {
			cfg.VAD.TimeoutS = *payload.VAD.TimeoutS
		}
	}
	return nil
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}
