package micsource

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestMic(chunks ...[]byte) *Mic {
	m := &Mic{
		params: Params{Rate: 16000, Channels: 1, FrameSize: 480},
		frames: make(chan []byte, queueCapacity),
	}
	for _, c := range chunks {
		m.frames <- c
	}
	close(m.frames)
	return m
}

func TestParamsBytesPerFrame(t *testing.T) {
	p := Params{Rate: 16000, Channels: 2, FrameSize: 480}
	if got, want := p.BytesPerFrame(), 480*2*2; got != want {
		t.Errorf("BytesPerFrame() = %d, want %d", got, want)
	}
}

func TestParamsContentType(t *testing.T) {
	p := Params{Rate: 16000, Channels: 1, FrameSize: 480}
	want := "audio/L16; rate=16000; channels=1; frame_size=480"
	if got := p.ContentType(); got != want {
		t.Errorf("ContentType() = %q, want %q", got, want)
	}
}

func TestMicReadReturnsWholeChunk(t *testing.T) {
	m := newTestMic([]byte{1, 2, 3, 4})
	buf := make([]byte, 16)
	n, err := m.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 4 || !bytes.Equal(buf[:4], []byte{1, 2, 3, 4}) {
		t.Errorf("Read() = %d bytes %v, want 4 bytes [1 2 3 4]", n, buf[:n])
	}
}

func TestMicReadSplitsAcrossSmallBuffer(t *testing.T) {
	m := newTestMic([]byte{1, 2, 3, 4})
	var got []byte
	buf := make([]byte, 3)
	for len(got) < 4 {
		n, err := m.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			t.Fatalf("unexpected error before draining chunk: %v", err)
		}
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("got = %v, want [1 2 3 4]", got)
	}
}

func TestMicReadConcatenatesSuccessiveChunks(t *testing.T) {
	m := newTestMic([]byte{1, 2}, []byte{3, 4})
	var got []byte
	buf := make([]byte, 16)
	for i := 0; i < 2; i++ {
		n, err := m.Read(buf)
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		got = append(got, buf[:n]...)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("got = %v, want [1 2 3 4]", got)
	}
}

func TestMicReadEOFAfterChannelClosed(t *testing.T) {
	m := newTestMic()
	buf := make([]byte, 4)
	if _, err := m.Read(buf); err != io.EOF {
		t.Errorf("Read() error = %v, want io.EOF", err)
	}
}

func TestMicDropsCountsOverflow(t *testing.T) {
	m := &Mic{params: Params{Rate: 16000, Channels: 1, FrameSize: 480}, frames: make(chan []byte, 1)}
	m.frames <- []byte{1}
	select {
	case m.frames <- []byte{2}:
		t.Fatal("channel should have been full")
	default:
		m.drops.Add(1)
	}
	if got := m.Drops(); got != 1 {
		t.Errorf("Drops() = %d, want 1", got)
	}
}

type staticSource struct {
	data   []byte
	params Params
}

func (s *staticSource) Params() Params { return s.params }
func (s *staticSource) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.data)
	s.data = s.data[n:]
	return n, nil
}

func TestHandlerServesContentTypeAndBody(t *testing.T) {
	src := &staticSource{data: []byte{1, 2, 3, 4}, params: Params{Rate: 16000, Channels: 1, FrameSize: 2}}
	h := &Handler{Source: src}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/mic", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if got, want := rec.Header().Get("Content-Type"), "audio/L16; rate=16000; channels=1; frame_size=2"; got != want {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
	if !bytes.Equal(rec.Body.Bytes(), []byte{1, 2, 3, 4}) {
		t.Errorf("body = %v, want [1 2 3 4]", rec.Body.Bytes())
	}
}
