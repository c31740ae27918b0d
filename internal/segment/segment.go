// Package segment implements the segmentation state machine (spec
// component 3, §4.3) — the core of the engine. It consumes (frame,
// activity) pairs pulled from a classifier+activity-window pipeline and
// emits one speech Segment per invocation, honouring padding, gap
// tolerance, minimum duration, and a startup timeout.
package segment

import (
	"errors"
	"fmt"

	"github.com/vadcore/segmenter/internal/frame"
)

// ErrTimeout is raised when no voice is detected within timeout_s of
// wall time (measured in input frames) while in SEARCHING.
var ErrTimeout = errors.New("segment: timeout waiting for voice")

// Config holds the segmentation state machine's tunables (spec §4.3).
type Config struct {
	// ActivityWindowMs is W's millisecond basis (Machine.Run derives
	// W = max(1, floor(ActivityWindowMs/frameDurationMs)); internal/activity.New
	// clamps W to at least 1).
	ActivityWindowMs int
	// ActivityThreshold is the minimum activity ratio, in [0,1], to treat
	// a frame as voice-present.
	ActivityThreshold float64
	// AllowGapMs is the maximum tolerated silence run inside an utterance.
	AllowGapMs int
	// PaddingMs is the pre-roll/post-roll retained around detected speech.
	PaddingMs int
	// MinDurationMs is the minimum voiced duration; shorter candidates are
	// discarded and detection resumes.
	MinDurationMs int
	// TimeoutS is the maximum wall time, in seconds, before the first
	// voiced frame; 0 disables the timeout.
	TimeoutS int
}

// Validate reports whether the configuration is internally consistent.
func (c Config) Validate() error {
	if c.ActivityWindowMs < 0 {
		return fmt.Errorf("segment: ActivityWindowMs must be >= 0, got %d", c.ActivityWindowMs)
	}
	if c.ActivityThreshold < 0 || c.ActivityThreshold > 1 {
		return fmt.Errorf("segment: ActivityThreshold must be in [0,1], got %v", c.ActivityThreshold)
	}
	if c.AllowGapMs < 0 {
		return fmt.Errorf("segment: AllowGapMs must be >= 0, got %d", c.AllowGapMs)
	}
	if c.PaddingMs < 0 {
		return fmt.Errorf("segment: PaddingMs must be >= 0, got %d", c.PaddingMs)
	}
	if c.MinDurationMs < 0 {
		return fmt.Errorf("segment: MinDurationMs must be >= 0, got %d", c.MinDurationMs)
	}
	if c.TimeoutS < 0 {
		return fmt.Errorf("segment: TimeoutS must be >= 0, got %d", c.TimeoutS)
	}
	return nil
}

// Segment is a value emitted by the segmentation state machine (spec §3).
type Segment struct {
	// Frames is the ordered sequence of frames (speech plus padding).
	Frames []frame.Frame
	// Offset is the index, in frames from the start of this invocation,
	// of the first frame in Frames. -1 iff no segment was produced.
	Offset int
	// Consumed is the total number of frames read from the source during
	// this invocation. Always >= Offset + len(Frames) when Offset >= 0.
	Consumed int
}

// Empty reports whether the segment carries no detected speech.
func (s Segment) Empty() bool { return s.Offset == -1 }

// Source pulls frames one at a time. It returns io.EOF-shaped exhaustion
// via ok=false; callers must not call Next again afterwards.
type Source interface {
	Next() (f frame.Frame, ok bool, err error)
}
