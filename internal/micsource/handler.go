package micsource

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ContentType renders the audio/L16 MIME type for these parameters
// (spec §6 "Microphone source").
func (p Params) ContentType() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d; frame_size=%d", p.Rate, p.Channels, p.FrameSize)
}

// Source is satisfied by *Mic; kept as an interface so Handler is testable
// without a real capture device.
type Source interface {
	io.Reader
	Params() Params
}

// Handler serves GET /mic per spec §6: an audio/L16 response streaming raw
// interleaved s16le PCM, with no framing or length prefix.
type Handler struct {
	Source Source
	Logger *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// RegisterRoutes wires GET /mic onto mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /mic", h.handleMic)
}

func (h *Handler) handleMic(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", h.Source.Params().ContentType())
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	buf := make([]byte, h.Source.Params().BytesPerFrame())
	for {
		n, err := h.Source.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				h.logger().Error("mic stream ended with error", "error", err)
			}
			return
		}
		select {
		case <-r.Context().Done():
			return
		default:
		}
	}
}
