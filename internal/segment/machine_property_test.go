package segment

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vadcore/segmenter/internal/frame"
)

// genPattern draws a random voice/silence boolean stream, grounded on
// doismellburning-samoyed's use of rapid.SliceOf over primitive generators
// for round-trip property checks.
func genPattern(t *rapid.T) []bool {
	return rapid.SliceOfN(rapid.Boolean(), 0, 200).Draw(t, "pattern")
}

func genConfig(t *rapid.T) Config {
	return Config{
		ActivityWindowMs:  rapid.SampledFrom([]int{30, 60, 90}).Draw(t, "activityWindowMs"),
		ActivityThreshold: rapid.Float64Range(0, 1).Draw(t, "activityThreshold"),
		AllowGapMs:        rapid.SampledFrom([]int{0, 30, 60, 150}).Draw(t, "allowGapMs"),
		PaddingMs:         rapid.SampledFrom([]int{0, 30, 60, 300}).Draw(t, "paddingMs"),
		MinDurationMs:     rapid.SampledFrom([]int{0, 30, 90}).Draw(t, "minDurationMs"),
	}
}

// TestInvariantOffsetEmptyEquivalence checks spec §8 universal invariant 1:
// offset == -1 iff len(frames) == 0, for all configurations and inputs.
func TestInvariantOffsetEmptyEquivalence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pattern := genPattern(t)
		cfg := genConfig(t)
		src := &sliceSource{frames: buildFramesRapid(pattern)}
		m := New(mockClassifier(), cfg)
		seg, err := m.Run(src)
		if err != nil {
			return
		}
		if (seg.Offset == -1) != (len(seg.Frames) == 0) {
			t.Fatalf("offset=%d len(frames)=%d violate the -1<=>empty equivalence", seg.Offset, len(seg.Frames))
		}
	})
}

// TestInvariantConsumedBound checks spec §8 universal invariant 2:
// consumed >= offset + len(frames) whenever offset >= 0.
func TestInvariantConsumedBound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pattern := genPattern(t)
		cfg := genConfig(t)
		src := &sliceSource{frames: buildFramesRapid(pattern)}
		m := New(mockClassifier(), cfg)
		seg, err := m.Run(src)
		if err != nil {
			return
		}
		if seg.Offset >= 0 && seg.Consumed < seg.Offset+len(seg.Frames) {
			t.Fatalf("consumed=%d < offset=%d + len(frames)=%d", seg.Consumed, seg.Offset, len(seg.Frames))
		}
	})
}

// TestInvariantDeterminism checks spec §8 universal invariant 7: identical
// streams and configs produce bitwise-identical segments.
func TestInvariantDeterminism(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pattern := genPattern(t)
		cfg := genConfig(t)

		src1 := &sliceSource{frames: buildFramesRapid(pattern)}
		src2 := &sliceSource{frames: buildFramesRapid(pattern)}
		seg1, err1 := New(mockClassifier(), cfg).Run(src1)
		seg2, err2 := New(mockClassifier(), cfg).Run(src2)

		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("errors diverged: %v vs %v", err1, err2)
		}
		if err1 != nil {
			return
		}
		if seg1.Offset != seg2.Offset || seg1.Consumed != seg2.Consumed || len(seg1.Frames) != len(seg2.Frames) {
			t.Fatalf("segments diverged: %+v vs %+v", seg1, seg2)
		}
	})
}

func buildFramesRapid(pattern []bool) []frame.Frame {
	out := make([]frame.Frame, len(pattern))
	for i, v := range pattern {
		samples := make([]int16, 480)
		if v {
			samples[0] = 1
		}
		buf := make([]byte, len(samples)*2)
		for j, s := range samples {
			buf[2*j] = byte(uint16(s))
			buf[2*j+1] = byte(uint16(s) >> 8)
		}
		f, err := frame.New(buf, frame.SampleRate, 1)
		if err != nil {
			panic(err)
		}
		out[i] = f
	}
	return out
}
