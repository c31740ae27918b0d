package classify

import "github.com/vadcore/segmenter/internal/frame"

// DefaultEnergyThreshold is the default StubClassifier threshold: a mono
// sample's absolute value must exceed this to count as voice.
const DefaultEnergyThreshold = 512

// StubClassifier is a stateless, deterministic energy-threshold classifier
// used when no native backend is compiled in. Unlike the teacher's stub
// engine (which alternates speech/silence via an internal counter), this
// stub is a pure function of its input so it satisfies the classifier
// idempotence property (spec §8.6): identical frames always classify
// identically, with no hidden state to desync from the caller's stream
// position.
type StubClassifier struct {
	// Threshold is the value a sample's absolute value (post mono-mixdown)
	// must exceed to count as voice.
	Threshold int16
}

// NewStubClassifier creates a StubClassifier with DefaultEnergyThreshold.
func NewStubClassifier() *StubClassifier {
	return &StubClassifier{Threshold: DefaultEnergyThreshold}
}

// IsVoice implements Classifier using a simple energy threshold on the
// mono-mixed frame.
func (c *StubClassifier) IsVoice(f frame.Frame) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}
	mono := f.Mono()
	threshold := c.Threshold
	if threshold == 0 {
		threshold = DefaultEnergyThreshold
	}
	for _, s := range mono.Samples {
		if s > threshold || s < -threshold {
			return true, nil
		}
	}
	return false, nil
}

// Close is a no-op for the stub classifier.
func (c *StubClassifier) Close() error { return nil }

// MockClassifier wraps an arbitrary decision function, for deterministic
// tests such as spec §8's "is_voice(f) = (max(f) == 1)" fixture.
type MockClassifier struct {
	Decide func(f frame.Frame) bool
}

// IsVoice implements Classifier by delegating to Decide.
func (c *MockClassifier) IsVoice(f frame.Frame) (bool, error) {
	return c.Decide(f), nil
}

// Close is a no-op for the mock classifier.
func (c *MockClassifier) Close() error { return nil }
