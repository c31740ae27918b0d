package config

import "testing"

func TestLoaderDefaults(t *testing.T) {
	loader := Loader{
		Lookup: func(string) (string, bool) { return "", false },
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.VAD.ActivityThreshold != DefaultActivityThreshold {
		t.Errorf("ActivityThreshold = %v, want %v", cfg.VAD.ActivityThreshold, DefaultActivityThreshold)
	}
	if cfg.VAD.ActivityWindowMs != DefaultActivityWindowMs {
		t.Errorf("ActivityWindowMs = %d, want %d", cfg.VAD.ActivityWindowMs, DefaultActivityWindowMs)
	}
	if cfg.VAD.PaddingMs != DefaultPaddingMs {
		t.Errorf("PaddingMs = %d, want %d", cfg.VAD.PaddingMs, DefaultPaddingMs)
	}
}

func TestLoaderJSON(t *testing.T) {
	env := map[string]string{
		"VADCORE_ADAPTER_CONFIG": `{"vad":{"activity_threshold":0.7,"padding_ms":100},"listen_addr":"localhost:9999"}`,
	}
	loader := Loader{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VAD.ActivityThreshold != 0.7 {
		t.Errorf("ActivityThreshold = %v, want 0.7", cfg.VAD.ActivityThreshold)
	}
	if cfg.VAD.PaddingMs != 100 {
		t.Errorf("PaddingMs = %d, want 100", cfg.VAD.PaddingMs)
	}
	if cfg.ListenAddr != "localhost:9999" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, "localhost:9999")
	}
	// Unset fields keep defaults.
	if cfg.VAD.AllowGapMs != DefaultAllowGapMs {
		t.Errorf("AllowGapMs = %d, want default %d", cfg.VAD.AllowGapMs, DefaultAllowGapMs)
	}
}

func TestLoaderEnvOverride(t *testing.T) {
	env := map[string]string{
		"VADCORE_ADAPTER_CONFIG":     `{"vad":{"activity_threshold":0.3}}`,
		"VADCORE_LISTEN_ADDR":        "127.0.0.1:5555",
		"VADCORE_ACTIVITY_THRESHOLD": "0.8",
		"VADCORE_PADDING_MS":         "500",
	}
	loader := Loader{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	// Env var overrides JSON.
	if cfg.VAD.ActivityThreshold != 0.8 {
		t.Errorf("ActivityThreshold = %v, want 0.8 (env override)", cfg.VAD.ActivityThreshold)
	}
	if cfg.ListenAddr != "127.0.0.1:5555" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, "127.0.0.1:5555")
	}
	if cfg.VAD.PaddingMs != 500 {
		t.Errorf("PaddingMs = %d, want 500", cfg.VAD.PaddingMs)
	}
}

func TestLoaderInvalidJSON(t *testing.T) {
	env := map[string]string{
		"VADCORE_ADAPTER_CONFIG": `{bad json}`,
	}
	loader := Loader{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoaderRejectsInvalidOverride(t *testing.T) {
	env := map[string]string{
		"VADCORE_DETECTOR": "not-a-real-detector",
	}
	loader := Loader{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for invalid detector")
	}
}
