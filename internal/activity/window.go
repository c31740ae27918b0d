// Package activity implements the sliding activity window (spec component
// 2): a bounded window of the last W classifier verdicts, reported as a
// voiced-fraction ratio.
package activity

import "github.com/vadcore/segmenter/internal/frame"

// Window tracks an activity ratio over a fixed-size trailing window of
// classifier verdicts. It updates in O(1) per step by incrementing for the
// newest verdict and decrementing for the evicted oldest one, never
// resumming the window.
type Window struct {
	size    int
	buf     []bool
	pos     int
	filled  int
	voiced  int
}

// New creates a Window of size W, computed by the caller as
// max(1, floor(activityWindowMs / frameDurationMs)).
func New(w int) *Window {
	if w < 1 {
		w = 1
	}
	return &Window{size: w, buf: make([]bool, w)}
}

// Size returns W.
func (win *Window) Size() int { return win.size }

// Step folds in one classifier verdict and returns the current activity
// ratio. ok is false during warm-up (the first W-1 steps), mirroring the
// explicit None sentinel of spec §4.2; it must never be mistaken for a
// zero ratio by callers.
func (win *Window) Step(voice bool) (ratioVal float64, ok bool) {
	evicted := win.buf[win.pos]
	win.buf[win.pos] = voice
	win.pos = (win.pos + 1) % win.size

	if win.filled < win.size {
		win.filled++
	} else if evicted {
		win.voiced--
	}
	if voice {
		win.voiced++
	}

	if win.filled < win.size {
		return 0, false
	}
	return float64(win.voiced) / float64(win.size), true
}

// Ratio is a convenience wrapper combining Step with the frame it was
// computed from, used by internal/segment to keep (frame, activity) pairs
// together as they flow downstream.
type Ratio struct {
	Frame    frame.Frame
	Activity float64
	Defined  bool
}
