// Package httpapi implements spec §6's external HTTP interfaces: the
// microphone source content-type contract, /listen, /calibrate, and the
// gating machine's REST control endpoints, all on a plain
// net/http.ServeMux with Go 1.22 method+path routing (grounded on
// MrWong99-glyphoxa/internal/health/health.go — the pack's own precedent
// for skipping a router library).
package httpapi

import (
	"fmt"
	"mime"
	"strconv"
	"strings"
)

// ErrUnsupportedContentType is returned when a source's content-type is
// not exactly audio/L16 with {rate, channels, frame_size} parameters
// (spec §6 "Client parser", §7).
var ErrUnsupportedContentType = fmt.Errorf("httpapi: unsupported content type")

// AudioParams describes an audio/L16 stream's framing, parsed from its
// Content-Type header.
type AudioParams struct {
	Rate      int
	Channels  int
	FrameSize int // samples per channel
}

// BytesPerFrame returns the byte size of one frame: FrameSize * Channels * 2.
func (p AudioParams) BytesPerFrame() int {
	return p.FrameSize * p.Channels * 2
}

// ContentType renders the MIME type for an audio/L16 response with these
// parameters (spec §6 "Microphone source").
func (p AudioParams) ContentType() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d; frame_size=%d", p.Rate, p.Channels, p.FrameSize)
}

// ParseContentType validates and parses an audio/L16 Content-Type header.
// Readers MUST reject any primary type other than audio/L16, or any
// parameter set other than exactly {rate, channels, frame_size}.
func ParseContentType(header string) (AudioParams, error) {
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		return AudioParams{}, fmt.Errorf("%w: %v", ErrUnsupportedContentType, err)
	}
	if !strings.EqualFold(mediaType, "audio/L16") {
		return AudioParams{}, fmt.Errorf("%w: primary type %q", ErrUnsupportedContentType, mediaType)
	}
	want := map[string]bool{"rate": true, "channels": true, "frame_size": true}
	if len(params) != len(want) {
		return AudioParams{}, fmt.Errorf("%w: expected exactly {rate,channels,frame_size}, got %v", ErrUnsupportedContentType, params)
	}
	out := AudioParams{}
	for k := range want {
		v, ok := params[k]
		if !ok {
			return AudioParams{}, fmt.Errorf("%w: missing parameter %q", ErrUnsupportedContentType, k)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return AudioParams{}, fmt.Errorf("%w: parameter %q not an integer: %v", ErrUnsupportedContentType, k, v)
		}
		switch k {
		case "rate":
			out.Rate = n
		case "channels":
			out.Channels = n
		case "frame_size":
			out.FrameSize = n
		}
	}
	return out, nil
}
