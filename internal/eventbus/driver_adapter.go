package eventbus

import (
	"context"

	"github.com/vadcore/segmenter/internal/driver"
	"github.com/vadcore/segmenter/internal/segment"
)

// DriverRunner adapts a driver.Driver plus a bound segment.Source into the
// Runner interface HandleStarted expects, translating each driver.Mention
// into a VadMentionEvent the way the teacher's _create_payload does
// (Index.from_range + VadAnnotation.for_activation).
type DriverRunner struct {
	Driver *driver.Driver
	Source segment.Source
	// DetectorName identifies the classifier/detector in published
	// annotations (VadAnnotation.Source).
	DetectorName string
	// Now supplies the annotation timestamp; defaults to a zero timestamp
	// if nil (callers should inject a clock to avoid relying on wall time
	// inside a workflow-style caller).
	Now func() int64
}

// Run implements Runner.
func (r *DriverRunner) Run(ctx context.Context, signalID string, emit func(VadMentionEvent)) error {
	return r.Driver.Run(ctx, signalID, r.Source, func(m driver.Mention) {
		var ts int64
		if r.Now != nil {
			ts = r.Now()
		}
		emit(VadMentionEvent{
			Segment:    Segment{SignalID: m.SignalID, Start: m.Start, Stop: m.Stop},
			Annotation: ForActivation(r.DetectorName, ts),
		})
	})
}
