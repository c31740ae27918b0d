package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// mentionWireEvent is the JSON shape sent to websocket subscribers.
type mentionWireEvent struct {
	SignalID  string  `json:"signal_id"`
	Start     int64   `json:"start"`
	Stop      int64   `json:"stop"`
	Value     float64 `json:"value"`
	Source    string  `json:"source"`
	Timestamp int64   `json:"timestamp"`
}

// Broadcaster serves live VadMentionEvent traffic over a websocket
// connection per subscriber, grounded on the client-side dial/write/read
// shape of MrWong99-glyphoxa's pkg/provider/s2s/openai.Session, mirrored
// here on the accept side.
type Broadcaster struct {
	bus    *Bus
	logger *slog.Logger
}

// NewBroadcaster creates a Broadcaster over bus.
func NewBroadcaster(bus *Bus, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{bus: bus, logger: logger}
}

// ServeHTTP upgrades the request to a websocket and streams mentions until
// the client disconnects or the request context is cancelled.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "broadcaster closing")

	ctx := r.Context()
	mentions, unsubscribe := b.bus.SubscribeMentions(ctx, 16)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "context done")
			return
		case ev, ok := <-mentions:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "subscription closed")
				return
			}
			data, err := json.Marshal(mentionWireEvent{
				SignalID:  ev.Segment.SignalID,
				Start:     ev.Segment.Start,
				Stop:      ev.Segment.Stop,
				Value:     ev.Annotation.Value,
				Source:    ev.Annotation.Source,
				Timestamp: ev.Annotation.Timestamp,
			})
			if err != nil {
				b.logger.Error("marshal mention event", "error", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				b.logger.Debug("websocket write failed, dropping subscriber", "error", err)
				conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// DialMentions is a client helper (used by cmd/vadmon) that connects to a
// Broadcaster endpoint and decodes VadMentionEvent JSON off the wire.
func DialMentions(ctx context.Context, url string) (<-chan VadMentionEvent, func(), error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan VadMentionEvent, 16)
	closeFn := func() { conn.Close(websocket.StatusNormalClosure, "client closing") }

	go func() {
		defer close(out)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var wire mentionWireEvent
			if err := json.Unmarshal(data, &wire); err != nil {
				continue
			}
			select {
			case out <- VadMentionEvent{
				Segment:    Segment{SignalID: wire.SignalID, Start: wire.Start, Stop: wire.Stop},
				Annotation: VadAnnotation{Value: wire.Value, Source: wire.Source, Timestamp: wire.Timestamp},
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, closeFn, nil
}
