package segment

import (
	"sync/atomic"

	"github.com/vadcore/segmenter/internal/frame"
)

// GatingMachine is the ControllerVAD-equivalent alternative to Machine
// (spec §4.4 "gating variant", fully specified in
// original_source/src/cltl/vad/controller_vad.py). It ignores its own
// activity ratio entirely: accumulation starts when an externally set
// Active flag is set and ends once Active transitions back to false,
// after appending up to paddingFrames trailing frames. allow_gap and
// min_duration are both treated as zero; padding applies as both pre-roll
// (retained in a ring buffer while the gate is closed) and post-roll.
type GatingMachine struct {
	active        atomic.Bool
	paddingFrames int
}

// NewGatingMachine creates a GatingMachine that retains up to paddingMs of
// pre-roll before the gate opens. frameDurMs is the fixed frame duration
// of the stream this machine will see.
func NewGatingMachine(paddingMs, frameDurMs int) *GatingMachine {
	frames := 0
	if frameDurMs > 0 {
		frames = paddingMs / frameDurMs
	}
	return &GatingMachine{paddingFrames: frames}
}

// SetActive sets the external gate. The only writer is the HTTP control
// endpoint (spec §6, §9); reads happen from the driver loop. Both sides
// use atomic load/store, per spec §9's "shared mutable active flag" note.
func (g *GatingMachine) SetActive(v bool) { g.active.Store(v) }

// Active reports the current gate state.
func (g *GatingMachine) Active() bool { return g.active.Load() }

// Run reads frames into a pre-roll ring buffer while the gate is closed,
// starts emitting once Active becomes true (pre-roll first, then live
// frames), and, once Active transitions back to false, appends up to
// paddingFrames trailing frames before returning (or until the source is
// exhausted).
func (g *GatingMachine) Run(src Source) (Segment, error) {
	ring := newRingBuffer(g.paddingFrames)
	var output []frame.Frame
	offset := -1
	idx := 0
	started := false

	for {
		f, ok, err := src.Next()
		if err != nil {
			return Segment{}, err
		}
		if !ok {
			return finish(output, offset, idx), nil
		}

		if g.Active() {
			if !started {
				preRoll := ring.drain(g.paddingFrames)
				offset = idx - len(preRoll)
				output = append(output, preRoll...)
				started = true
			}
			output = append(output, f)
			idx++
			continue
		}

		if started {
			// Gate just closed: append up to paddingFrames trailing
			// frames before returning, mirroring controller_vad.py's
			// `for _ in range(self._padding_size): audio.put(frame); ...`
			// loop (the frame that found the gate closed is itself the
			// first trailing frame, then closeOut tops up the rest).
			closed, pulled, err := closeOut(src, []frame.Frame{f}, g.paddingFrames)
			if err != nil {
				return Segment{}, err
			}
			output = append(output, closed...)
			idx += len(pulled)
			return finish(output, offset, idx+1), nil
		}

		ring.push(f)
		idx++
	}
}
