package segment

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/vadcore/segmenter/internal/classify"
	"github.com/vadcore/segmenter/internal/frame"
)

// sliceSource replays a fixed sequence of frames, then reports exhaustion.
type sliceSource struct {
	frames []frame.Frame
	pos    int
}

func (s *sliceSource) Next() (frame.Frame, bool, error) {
	if s.pos >= len(s.frames) {
		return frame.Frame{}, false, nil
	}
	f := s.frames[s.pos]
	s.pos++
	return f, true, nil
}

// mockFrame builds a 30ms/16kHz mono frame whose first sample is 1 and the
// rest 0 (voice, per the mock classifier is_voice(f) = max(f) == 1), or
// whose samples are all 0.
func mockFrame(t *testing.T, voiced bool) frame.Frame {
	t.Helper()
	samples := make([]int16, 480)
	if voiced {
		samples[0] = 1
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:2*i+2], uint16(s))
	}
	f, err := frame.New(buf, frame.SampleRate, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func mockClassifier() classify.Classifier {
	return &classify.MockClassifier{Decide: func(f frame.Frame) bool {
		return f.Max() == 1
	}}
}

func buildFrames(t *testing.T, pattern ...bool) []frame.Frame {
	t.Helper()
	out := make([]frame.Frame, len(pattern))
	for i, v := range pattern {
		out[i] = mockFrame(t, v)
	}
	return out
}

func repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]bool) []bool {
	var out []bool
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Scenario 1 (spec §8): silence x10 + voice x10 + silence x infinite,
// padding=3*D, allow_gap=0, min_duration=0 -> offset=7, consumed>=23.
//
// spec.md's own worked example states |frames|=13 ("3 padding + 10
// voice"), but its consumed>=23 figure only arises if the trailing gap
// frame plus two more padding pulls are taken (see DESIGN.md's Open
// Question decision #5): the CLOSING phase always tops the trailing
// padding up to paddingFrames, exactly as scenario 4 requires, which
// makes the true frame count 16 (3 leading + 10 voice + 3 trailing).
func TestScenario1LeadingAndTrailingPadding(t *testing.T) {
	pattern := concat(repeat(false, 10), repeat(true, 10), repeat(false, 30))
	src := &sliceSource{frames: buildFrames(t, pattern...)}
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 0, PaddingMs: 90, MinDurationMs: 0}
	m := New(mockClassifier(), cfg)
	seg, err := m.Run(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.Offset != 7 {
		t.Errorf("Offset = %d, want 7", seg.Offset)
	}
	if len(seg.Frames) != 16 {
		t.Errorf("len(Frames) = %d, want 16 (3 leading + 10 voice + 3 trailing padding)", len(seg.Frames))
	}
	if seg.Consumed < 23 {
		t.Errorf("Consumed = %d, want >= 23", seg.Consumed)
	}
}

// Scenario 2 (spec §8): silence x10 + voice x10 + silence x infinite,
// padding=0 -> offset=10, frames=10, consumed>=20.
func TestScenario2NoPadding(t *testing.T) {
	pattern := concat(repeat(false, 10), repeat(true, 10), repeat(false, 30))
	src := &sliceSource{frames: buildFrames(t, pattern...)}
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 0, PaddingMs: 0, MinDurationMs: 0}
	m := New(mockClassifier(), cfg)
	seg, err := m.Run(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.Offset != 10 {
		t.Errorf("Offset = %d, want 10", seg.Offset)
	}
	if len(seg.Frames) != 10 {
		t.Errorf("len(Frames) = %d, want 10", len(seg.Frames))
	}
	if seg.Consumed < 20 {
		t.Errorf("Consumed = %d, want >= 20", seg.Consumed)
	}
}

// Scenario 3 (spec §8): voice x10 + silence x infinite, padding=0 ->
// offset=0, frames=10, consumed>=10.
func TestScenario3VoiceFirst(t *testing.T) {
	pattern := concat(repeat(true, 10), repeat(false, 30))
	src := &sliceSource{frames: buildFrames(t, pattern...)}
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 0, PaddingMs: 0, MinDurationMs: 0}
	m := New(mockClassifier(), cfg)
	seg, err := m.Run(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.Offset != 0 {
		t.Errorf("Offset = %d, want 0", seg.Offset)
	}
	if len(seg.Frames) != 10 {
		t.Errorf("len(Frames) = %d, want 10", len(seg.Frames))
	}
	if seg.Consumed < 10 {
		t.Errorf("Consumed = %d, want >= 10", seg.Consumed)
	}
}

// Scenario 4 (spec §8): silence x5 + voice x10 + silence x infinite,
// padding=10*D, allow_gap=0 -> offset=0, frames=25, consumed>=25.
func TestScenario4FullPrePostPadding(t *testing.T) {
	pattern := concat(repeat(false, 5), repeat(true, 10), repeat(false, 30))
	src := &sliceSource{frames: buildFrames(t, pattern...)}
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 0, PaddingMs: 300, MinDurationMs: 0}
	m := New(mockClassifier(), cfg)
	seg, err := m.Run(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.Offset != 0 {
		t.Errorf("Offset = %d, want 0", seg.Offset)
	}
	if len(seg.Frames) != 25 {
		t.Errorf("len(Frames) = %d, want 25", len(seg.Frames))
	}
	if seg.Consumed != 25 {
		t.Errorf("Consumed = %d, want 25", seg.Consumed)
	}
}

// Scenario 6 (spec §8): allow_gap=5*D, voice x3 + silence x3 + voice x3 +
// silence x20 -> one segment of length 9 (the gap is absorbed).
func TestScenario6GapAbsorbed(t *testing.T) {
	pattern := concat(repeat(true, 3), repeat(false, 3), repeat(true, 3), repeat(false, 20))
	src := &sliceSource{frames: buildFrames(t, pattern...)}
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 150, PaddingMs: 0, MinDurationMs: 0}
	m := New(mockClassifier(), cfg)
	seg, err := m.Run(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.Offset != 0 {
		t.Errorf("Offset = %d, want 0", seg.Offset)
	}
	if len(seg.Frames) != 9 {
		t.Errorf("len(Frames) = %d, want 9", len(seg.Frames))
	}
}

// Spec §8 universal invariant 3: pure silence of any length yields
// (frames=[], offset=-1, consumed=N).
func TestPureSilenceYieldsEmptySegment(t *testing.T) {
	pattern := repeat(false, 40)
	src := &sliceSource{frames: buildFrames(t, pattern...)}
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 0, PaddingMs: 0, MinDurationMs: 0}
	m := New(mockClassifier(), cfg)
	seg, err := m.Run(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seg.Empty() {
		t.Fatalf("seg = %+v, want empty", seg)
	}
	if seg.Offset != -1 {
		t.Errorf("Offset = %d, want -1", seg.Offset)
	}
	if seg.Consumed != 40 {
		t.Errorf("Consumed = %d, want 40", seg.Consumed)
	}
}

// Spec §8 universal invariant 5: min_duration greater than the longest
// voiced run yields no segment (the short candidate is discarded and
// detection resumes, eventually exhausting the source).
func TestMinDurationDiscardsShortCandidate(t *testing.T) {
	pattern := concat(repeat(true, 3), repeat(false, 40))
	src := &sliceSource{frames: buildFrames(t, pattern...)}
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 0, PaddingMs: 0, MinDurationMs: 1000}
	m := New(mockClassifier(), cfg)
	seg, err := m.Run(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seg.Empty() {
		t.Fatalf("seg = %+v, want empty (candidate shorter than min_duration)", seg)
	}
}

func TestTimeoutWhenNoVoiceArrives(t *testing.T) {
	pattern := repeat(false, 1000)
	src := &sliceSource{frames: buildFrames(t, pattern...)}
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 0, PaddingMs: 0, MinDurationMs: 0, TimeoutS: 1}
	m := New(mockClassifier(), cfg)
	_, err := m.Run(src)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	pattern := concat(repeat(false, 5), repeat(true, 8), repeat(false, 30))
	cfg := Config{ActivityWindowMs: 30, ActivityThreshold: 0.5, AllowGapMs: 60, PaddingMs: 60, MinDurationMs: 30}

	run := func() Segment {
		src := &sliceSource{frames: buildFrames(t, pattern...)}
		m := New(mockClassifier(), cfg)
		seg, err := m.Run(src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return seg
	}

	a, b := run(), run()
	if a.Offset != b.Offset || len(a.Frames) != len(b.Frames) || a.Consumed != b.Consumed {
		t.Fatalf("runs diverged: %+v vs %+v", a, b)
	}
}
