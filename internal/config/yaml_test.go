package config

import (
	"strings"
	"testing"
)

func TestLoadYAMLAppliesOverridesOnTopOfDefaults(t *testing.T) {
	doc := `
listen_addr: ":9090"
detector: webrtcvad
vad:
  activity_threshold: 0.75
  padding_ms: 90
`
	cfg, err := LoadYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.Detector != "webrtcvad" {
		t.Errorf("Detector = %q, want webrtcvad", cfg.Detector)
	}
	if cfg.VAD.ActivityThreshold != 0.75 {
		t.Errorf("ActivityThreshold = %v, want 0.75", cfg.VAD.ActivityThreshold)
	}
	if cfg.VAD.PaddingMs != 90 {
		t.Errorf("PaddingMs = %d, want 90", cfg.VAD.PaddingMs)
	}
	// Untouched fields keep their defaults.
	if cfg.VAD.AllowGapMs != DefaultAllowGapMs {
		t.Errorf("AllowGapMs = %d, want default %d", cfg.VAD.AllowGapMs, DefaultAllowGapMs)
	}
}

func TestLoadYAMLEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want Default()", cfg)
	}
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	doc := `nonexistent_field: true`
	if _, err := LoadYAML(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadYAMLRejectsInvalidValues(t *testing.T) {
	doc := `
vad:
  activity_threshold: 5.0
`
	if _, err := LoadYAML(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for activity_threshold out of range")
	}
}

func TestLoadYAMLFileMissingReturnsError(t *testing.T) {
	if _, err := LoadYAMLFile("/nonexistent/path/to/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
