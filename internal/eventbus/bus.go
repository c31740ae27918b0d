// Package eventbus implements the driver's event interface (spec §6): an
// in-process topic worker that consumes AudioSignalStarted/Stopped events
// on a mic topic and publishes VadMentionEvent on a VAD topic, grounded on
// original_source/src/cltl_service/vad/service.py's TopicWorker pattern.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// AudioSignalStarted announces that a new audio signal is available for
// processing. Files[0] is the URL the driver should read from.
type AudioSignalStarted struct {
	SignalID string
	Files    []string
}

// AudioSignalStopped announces that a signal's upstream source has ended.
type AudioSignalStopped struct {
	SignalID string
}

// VadMentionEvent is the boundary-level fact published on the VAD topic:
// a segment-range index paired with a VadAnnotation.
type VadMentionEvent struct {
	Segment    Segment
	Annotation VadAnnotation
}

// Segment mirrors emissor's Index.from_range: a byte-range reference into
// a named signal.
type Segment struct {
	SignalID string
	Start    int64
	Stop     int64
}

// VadAnnotation carries the detector's confidence and identity.
type VadAnnotation struct {
	Value     float64
	Source    string
	Timestamp int64
}

// ForActivation builds a VadAnnotation with Value=1.0, matching the
// teacher's VadAnnotation.for_activation helper.
func ForActivation(source string, timestamp int64) VadAnnotation {
	return VadAnnotation{Value: 1, Source: source, Timestamp: timestamp}
}

// Bus is a minimal typed in-process pub/sub: one mic-topic handler function
// per signal lifecycle event, and fan-out subscribers for VadMentionEvent.
// Unlike the teacher's TopicWorker, which dispatches arbitrary payload
// types through a single processor, Bus splits the two directions into
// dedicated channels since spec §6 only ever names these two event shapes.
type Bus struct {
	logger *slog.Logger

	mu          sync.RWMutex
	mentionSubs map[int]chan VadMentionEvent
	nextSubID   int
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger, mentionSubs: make(map[int]chan VadMentionEvent)}
}

// PublishMention fans VadMentionEvent out to every live subscriber. Slow
// subscribers are dropped from, not allowed to block, the publish path:
// each subscriber channel is buffered and a full channel causes that
// event to be skipped for that subscriber, logged at debug level.
func (b *Bus) PublishMention(ev VadMentionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.mentionSubs {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("dropping mention for slow subscriber", "subscriber", id)
		}
	}
}

// SubscribeMentions registers a new mention subscriber and returns its
// channel plus an unsubscribe function. The channel is closed by
// unsubscribe; callers must drain it until closed.
func (b *Bus) SubscribeMentions(ctx context.Context, buffer int) (<-chan VadMentionEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan VadMentionEvent, buffer)

	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.mentionSubs[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.mentionSubs[id]; ok {
			delete(b.mentionSubs, id)
			close(ch)
		}
		b.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return ch, unsubscribe
}
