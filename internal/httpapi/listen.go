package httpapi

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vadcore/segmenter/internal/frame"
	"github.com/vadcore/segmenter/internal/segment"
)

// Segmenter is satisfied by segment.Machine; kept local to avoid importing
// the gating variant here (listen/calibrate only ever drive the core
// state machine per spec §6).
type Segmenter interface {
	Run(src segment.Source) (segment.Segment, error)
}

// httpFrameSource adapts a streaming HTTP body into a segment.Source,
// pulling exactly BytesPerFrame() bytes per Next() call, grounded on
// original_source/src/app/vad.py's `iter_content(bytes_per_frame)`
// generator.
type httpFrameSource struct {
	r      *bufio.Reader
	params AudioParams
}

func (s *httpFrameSource) Next() (frame.Frame, bool, error) {
	buf := make([]byte, s.params.BytesPerFrame())
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return frame.Frame{}, false, nil
		}
		return frame.Frame{}, false, err
	}
	f, err := frame.New(buf, s.params.Rate, s.params.Channels)
	if err != nil {
		return frame.Frame{}, false, err
	}
	return f, true, nil
}

// SourceDialer opens a streaming GET to url and returns its body and
// parsed AudioParams. Exposed as a field so tests can substitute an
// in-process fake instead of a real HTTP round trip.
type SourceDialer func(url string) (io.ReadCloser, AudioParams, error)

// Server implements spec §6's /listen and /calibrate endpoints, wired onto
// a net/http.ServeMux. The gating control endpoints are served separately
// by ControlServer.
type Server struct {
	NewSegmenter func() Segmenter
	Dial         SourceDialer
	Logger       *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// RegisterRoutes wires /listen and /calibrate onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /listen", s.handleListen)
	mux.HandleFunc("GET /calibrate", s.handleCalibrate)
}

// handleListen implements spec §6's "Listen endpoint": blocks until a
// segment is detected, returns 200 with the segment's PCM bytes under the
// upstream content-type, or 400 on Timeout.
func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	body, params, err := s.Dial(url)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer body.Close()

	src := &httpFrameSource{r: bufio.NewReader(body), params: params}
	seg, err := s.NewSegmenter().Run(src)
	if errors.Is(err, segment.ErrTimeout) {
		http.Error(w, "timeout waiting for voice", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger().Error("listen failed", "url", url, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", params.ContentType())
	w.WriteHeader(http.StatusOK)
	for _, f := range seg.Frames {
		if _, err := w.Write(f.Bytes()); err != nil {
			return
		}
	}
}

// handleCalibrate implements spec §6's "Calibrate endpoint": runs the
// segmentation engine on the upstream source for N seconds to warm the
// classifier; Timeout errors inside the window are swallowed (spec §7,
// §9's preserved asymmetry).
func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	seconds := 10
	if v := r.URL.Query().Get("sec"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			seconds = n
		}
	}

	body, params, err := s.Dial(url)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer body.Close()

	src := &httpFrameSource{r: bufio.NewReader(body), params: params}
	deadline := time.Now().Add(time.Duration(seconds) * time.Second)
	for time.Now().Before(deadline) {
		seg, err := s.NewSegmenter().Run(src)
		if errors.Is(err, segment.ErrTimeout) {
			continue
		}
		if err != nil {
			s.logger().Debug("calibrate source error", "url", url, "error", err)
			break
		}
		if seg.Consumed == 0 {
			break // source exhausted
		}
	}
	w.WriteHeader(http.StatusOK)
}
