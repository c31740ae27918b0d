// Package driver wraps a segmentation state machine so a caller streaming
// an open-ended source obtains successive segments, with cooperative
// cancellation (spec component 4, §4.4, §5).
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vadcore/segmenter/internal/frame"
	"github.com/vadcore/segmenter/internal/segment"
)

// Segmenter is satisfied by both segment.Machine and segment.GatingMachine,
// so the driver's byte-range/mention-conversion logic is shared across
// both segmentation variants (spec §4.4).
type Segmenter interface {
	Run(src segment.Source) (segment.Segment, error)
}

// Mention is a published boundary-level fact: the byte range of a detected
// segment within its upstream source (spec §6 "event interface").
type Mention struct {
	SignalID string
	Start    int64
	Stop     int64
}

// Driver repeatedly invokes a Segmenter against a Source, advancing a
// running source-offset counter and converting each non-empty Segment into
// a Mention.
type Driver struct {
	segmenter Segmenter
	frameSize int // bytes per frame: SamplesPerChan * Channels * 2
	logger    *slog.Logger

	cancelled atomic.Bool

	// active enforces "at most one driver task per audio-signal identity"
	// (spec §5): a Run call for a signalID already present here is a
	// programmer error, logged and ignored rather than started, queued,
	// or merged with the running call.
	mu     sync.Mutex
	active map[string]bool
}

// New creates a Driver. frameSize is the fixed byte size of every frame the
// source will produce (SamplesPerChan * Channels * 2), used to convert
// frame offsets into byte ranges.
func New(s Segmenter, frameSize int, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{segmenter: s, frameSize: frameSize, logger: logger, active: make(map[string]bool)}
}

// Cancel requests cooperative cancellation. Per spec §5 this is checked
// only between iterations, never mid-segment: an in-progress Run call
// always completes its current segment first.
func (d *Driver) Cancel() { d.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (d *Driver) Cancelled() bool { return d.cancelled.Load() }

// Run drives segment.Machine/GatingMachine.Run in a loop against src,
// publishing a Mention for each non-empty segment via emit, until the
// source is exhausted (consumed == 0) or Cancel is called. It returns the
// context's error if ctx is cancelled between iterations.
//
// A Run call for a signalID that already has a Run in flight is a
// programmer error (spec §5): it is logged and ignored immediately rather
// than queued behind, or merged into, the running call — in the real call
// path this is unreachable, since internal/eventbus.Worker already gates
// concurrent starts per signal before ever calling Run twice for the same
// signalID; this guard covers any other caller of Driver directly.
func (d *Driver) Run(ctx context.Context, signalID string, src segment.Source, emit func(Mention)) error {
	d.mu.Lock()
	if d.active[signalID] {
		d.mu.Unlock()
		d.logger.Warn("ignored duplicate driver start for already-active signal", "signal_id", signalID)
		return nil
	}
	d.active[signalID] = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.active, signalID)
		d.mu.Unlock()
	}()

	return d.runLocked(ctx, signalID, src, emit)
}

func (d *Driver) runLocked(ctx context.Context, signalID string, src segment.Source, emit func(Mention)) error {
	var sourceOffset int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Cancelled() {
			d.logger.Info("driver cancelled", "signal_id", signalID)
			return nil
		}

		seg, err := d.segmenter.Run(src)
		if err != nil {
			if err == segment.ErrTimeout {
				// Timeout is "no segment this iteration", not fatal to the
				// driver (spec §7).
				d.logger.Debug("segment timeout, continuing", "signal_id", signalID)
				continue
			}
			return fmt.Errorf("driver: signal %s: %w", signalID, err)
		}

		if !seg.Empty() {
			start := sourceOffset + int64(seg.Offset)*int64(d.frameSize)
			stop := start + int64(totalBytes(seg.Frames))
			emit(Mention{SignalID: signalID, Start: start, Stop: stop})
		}

		sourceOffset += int64(seg.Consumed) * int64(d.frameSize)

		if seg.Consumed == 0 {
			return nil // source exhausted
		}
	}
}

func totalBytes(frames []frame.Frame) int64 {
	var total int64
	for _, f := range frames {
		total += int64(len(f.Bytes()))
	}
	return total
}
