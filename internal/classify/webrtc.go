//go:build webrtcvad

package classify

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/vadcore/segmenter/internal/frame"
)

// nativeAvailable is true when this binary was built with -tags webrtcvad.
const nativeAvailable = true

// WebRTCClassifier wraps libwebrtc's energy/aggressiveness-mode voice
// activity detector, the reference classifier spec §4.1 describes. Modes
// range 0 (most permissive, fewest false negatives) to 3 (most aggressive,
// fewest false positives).
type WebRTCClassifier struct {
	vad *webrtcvad.VAD
}

// NewWebRTCClassifier creates a classifier at the given aggressiveness mode.
func NewWebRTCClassifier(mode int) (*WebRTCClassifier, error) {
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("classify: invalid aggressiveness mode %d, want 0-3", mode)
	}
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("classify: create webrtcvad: %w", err)
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("classify: set mode %d: %w", mode, err)
	}
	return &WebRTCClassifier{vad: vad}, nil
}

// IsVoice implements Classifier. f is validated and mixed to mono before
// being handed to the native VAD, which only ever sees mono int16 (spec §4.1).
func (c *WebRTCClassifier) IsVoice(f frame.Frame) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}
	mono := f.Mono()
	return c.vad.Process(mono.Rate, mono.Bytes())
}

// Close is a no-op; the underlying cgo VAD handle has no close semantics.
func (c *WebRTCClassifier) Close() error { return nil }

func newNative(mode int) (Classifier, error) {
	return NewWebRTCClassifier(mode)
}
