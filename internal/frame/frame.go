// Package frame defines the fixed-shape PCM audio frame that flows through
// the classifier, activity window, and segmentation state machine.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SampleRate is the only sample rate the reference pipeline accepts.
const SampleRate = 16000

// allowedDurationsMs are the frame durations the reference classifier
// accepts, in milliseconds.
var allowedDurationsMs = map[int]bool{10: true, 20: true, 30: true}

// Errors returned by Frame validation. These map directly onto spec §4.1
// and §7: each is fatal to the current invocation and propagates.
var (
	ErrInvalidSampleFormat  = errors.New("frame: invalid sample format, expected signed 16-bit PCM")
	ErrUnsupportedRate      = errors.New("frame: unsupported sample rate")
	ErrInvalidFrameDuration = errors.New("frame: invalid frame duration")
)

// Frame is an immutable fixed-shape block of signed 16-bit PCM samples,
// interleaved by channel. Samples holds Channels*SamplesPerChannel int16
// values.
type Frame struct {
	Rate             int
	Channels         int
	SamplesPerChan   int
	Samples          []int16
}

// New builds a Frame from raw little-endian s16le bytes and validates its
// shape against the reference classifier's constraints (spec §4.1).
func New(pcm []byte, rate, channels int) (Frame, error) {
	if len(pcm)%2 != 0 {
		return Frame{}, fmt.Errorf("%w: odd byte length %d", ErrInvalidSampleFormat, len(pcm))
	}
	if channels <= 0 {
		return Frame{}, fmt.Errorf("%w: channels must be positive, got %d", ErrInvalidSampleFormat, channels)
	}
	n := len(pcm) / 2
	if n%channels != 0 {
		return Frame{}, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrInvalidSampleFormat, n, channels)
	}

	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i : 2*i+2]))
	}

	f := Frame{
		Rate:           rate,
		Channels:       channels,
		SamplesPerChan: n / channels,
		Samples:        samples,
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// DurationMs returns the frame's duration in milliseconds: 1000*N/R.
func (f Frame) DurationMs() int {
	if f.Rate == 0 {
		return 0
	}
	return 1000 * f.SamplesPerChan / f.Rate
}

// Validate checks the frame against the reference classifier's fixed
// constraints: 16kHz only, duration in {10,20,30}ms.
func (f Frame) Validate() error {
	if f.Rate != SampleRate {
		return fmt.Errorf("%w: %d, expected %d", ErrUnsupportedRate, f.Rate, SampleRate)
	}
	if !allowedDurationsMs[f.DurationMs()] {
		return fmt.Errorf("%w: %dms, expected one of 10/20/30ms", ErrInvalidFrameDuration, f.DurationMs())
	}
	return nil
}

// Mono returns a single-channel copy of f. If f already has one channel it
// is returned unchanged. Otherwise each output sample is the integer mean
// of the channels for that sample index (spec §4.1, §9 — integer
// arithmetic, not float, to avoid quantization ambiguity).
func (f Frame) Mono() Frame {
	if f.Channels == 1 {
		return f
	}
	mono := make([]int16, f.SamplesPerChan)
	for i := 0; i < f.SamplesPerChan; i++ {
		var sum int32
		for c := 0; c < f.Channels; c++ {
			sum += int32(f.Samples[i*f.Channels+c])
		}
		mono[i] = int16(sum / int32(f.Channels))
	}
	return Frame{
		Rate:           f.Rate,
		Channels:       1,
		SamplesPerChan: f.SamplesPerChan,
		Samples:        mono,
	}
}

// Bytes serializes the frame back to little-endian s16le PCM bytes.
func (f Frame) Bytes() []byte {
	out := make([]byte, len(f.Samples)*2)
	for i, s := range f.Samples {
		binary.LittleEndian.PutUint16(out[2*i:2*i+2], uint16(s))
	}
	return out
}

// Max returns the largest sample value in the frame. Used by mock
// classifiers in tests (spec §8's "is_voice(f) = (max(f) == 1)" fixture).
func (f Frame) Max() int16 {
	if len(f.Samples) == 0 {
		return 0
	}
	m := f.Samples[0]
	for _, s := range f.Samples[1:] {
		if s > m {
			m = s
		}
	}
	return m
}
