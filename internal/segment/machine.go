package segment

import (
	"github.com/vadcore/segmenter/internal/activity"
	"github.com/vadcore/segmenter/internal/classify"
	"github.com/vadcore/segmenter/internal/frame"
)

type state int

const (
	stateSearching state = iota
	stateAccumulating // covers both IN_SPEECH and IN_GAP; gapBuf length distinguishes them
)

// Machine is the segmentation state machine (spec §4.3). It is
// single-threaded and blocking by construction: Run never spawns a
// goroutine and pulls frames synchronously from its Source.
type Machine struct {
	classifier classify.Classifier
	cfg        Config
}

// New creates a Machine bound to a classifier and configuration.
func New(c classify.Classifier, cfg Config) *Machine {
	return &Machine{classifier: c, cfg: cfg}
}

// Run consumes src until one Segment completes or the source is exhausted,
// and returns it. A fresh Run call starts a new invocation with its own
// frame-index clock (spec §3: offsets are relative to the start of the
// current invocation).
func (m *Machine) Run(src Source) (Segment, error) {
	if err := m.cfg.Validate(); err != nil {
		return Segment{}, err
	}

	var (
		win           *activity.Window
		frameDurMs    int
		paddingFrames int
		ring          *ringBuffer
	)

	var (
		output []frame.Frame
		gapBuf []frame.Frame
		offset = -1
		idx    int
		st     = stateSearching
	)

	timeoutFrames := -1

	for {
		f, ok, err := src.Next()
		if err != nil {
			return Segment{}, err
		}
		if !ok {
			return finish(output, offset, idx), nil
		}

		if win == nil {
			frameDurMs = f.DurationMs()
			if frameDurMs <= 0 {
				frameDurMs = 1
			}
			w := 1
			if m.cfg.ActivityWindowMs > 0 {
				w = m.cfg.ActivityWindowMs / frameDurMs
			}
			win = activity.New(w)
			paddingFrames = m.cfg.PaddingMs / frameDurMs
			ring = newRingBuffer(paddingFrames + win.Size() - 1)
			if m.cfg.TimeoutS > 0 {
				timeoutFrames = m.cfg.TimeoutS * 1000 / frameDurMs
			}
		}

		voice, err := m.classifier.IsVoice(f)
		if err != nil {
			return Segment{}, err
		}
		act, defined := win.Step(voice)
		voicePresent := defined && act >= m.cfg.ActivityThreshold

		switch st {
		case stateSearching:
			if timeoutFrames >= 0 && idx > timeoutFrames {
				return Segment{}, ErrTimeout
			}
			if voicePresent {
				preRoll := ring.drain(paddingFrames)
				offset = idx - len(preRoll)
				output = append(output, preRoll...)
				output = append(output, f)
				gapBuf = gapBuf[:0]
				st = stateAccumulating
			} else {
				ring.push(f)
			}

		case stateAccumulating:
			if voicePresent {
				if len(gapBuf) > 0 {
					output = append(output, gapBuf...)
					gapBuf = gapBuf[:0]
				}
				output = append(output, f)
			} else {
				gapBuf = append(gapBuf, f)
				gapDurMs := len(gapBuf) * frameDurMs
				if gapDurMs > m.cfg.AllowGapMs {
					voicedDurMs := len(output) * frameDurMs
					if voicedDurMs >= m.cfg.MinDurationMs {
						closed, consumedExtra, err := closeOut(src, gapBuf, paddingFrames)
						if err != nil {
							return Segment{}, err
						}
						output = append(output, closed...)
						idx += len(consumedExtra)
						return finish(output, offset, idx+1), nil
					}
					// Candidate too short: discard everything, including
					// the pre-roll, and resume SEARCHING from this frame.
					output = output[:0]
					offset = -1
					ring.reset()
					ring.push(f)
					gapBuf = gapBuf[:0]
					st = stateSearching
				}
			}
		}

		idx++
	}
}

// closeOut implements the CLOSING phase (spec §4.3 step 3): the pending gap
// buffer is flushed first (capped at paddingFrames), then additional frames
// are pulled from the source to reach paddingFrames trailing frames total.
// Returns the frames appended to the segment and the frames newly pulled
// from src (for the caller's consumed accounting; gapBuf frames were
// already counted when originally read).
func closeOut(src Source, gapBuf []frame.Frame, paddingFrames int) (appended []frame.Frame, pulled []frame.Frame, err error) {
	flushed := gapBuf
	if len(flushed) > paddingFrames {
		flushed = flushed[:paddingFrames]
	}
	appended = append(appended, flushed...)

	remaining := paddingFrames - len(flushed)
	for i := 0; i < remaining; i++ {
		f, ok, err := src.Next()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		appended = append(appended, f)
		pulled = append(pulled, f)
	}
	return appended, pulled, nil
}

func finish(output []frame.Frame, offset, consumed int) Segment {
	if len(output) == 0 {
		offset = -1
	}
	return Segment{Frames: output, Offset: offset, Consumed: consumed}
}
