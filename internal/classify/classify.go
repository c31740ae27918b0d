// Package classify implements the frame classifier (spec component 1): a
// stateless, pure is_voice(frame) -> bool oracle. Keeping it pure makes the
// activity window and segmentation state machine trivially testable with
// deterministic mocks.
package classify

import (
	"github.com/vadcore/segmenter/internal/frame"
)

// Classifier maps a single PCM frame to a voice/non-voice verdict.
// Implementations must validate frame shape (delegated to frame.Frame) and
// mix multi-channel input to mono before classification.
type Classifier interface {
	// IsVoice reports whether f contains voice activity. f must already be
	// validated (see frame.New); IsVoice mixes to mono internally if f has
	// more than one channel.
	IsVoice(f frame.Frame) (bool, error)

	// Close releases any native resources held by the classifier. Safe to
	// call on classifiers that hold none.
	Close() error
}

// NativeAvailable reports whether a native (non-stub) classifier backend is
// compiled into this binary. Mirrors the teacher's probe-before-accept
// pattern: callers check this before requesting a native engine so they can
// fail fast or fall back to the stub.
func NativeAvailable() bool { return nativeAvailable }

// NewNative constructs the compiled-in native classifier at the given
// aggressiveness mode (0-3, most permissive to most aggressive). Returns
// ErrNativeUnavailable when built without the webrtcvad tag.
func NewNative(mode int) (Classifier, error) {
	return newNative(mode)
}
