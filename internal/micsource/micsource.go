// Package micsource captures live microphone audio via miniaudio
// (github.com/gen2brain/malgo) and serves it as spec §6's "Microphone
// source": a continuous audio/L16 byte stream framed into fixed-size
// chunks, grounded on
// hammamikhairi-otto/internal/wakeword/detector.go's malgo capture
// pattern and original_source/src/app/backend.py's Mic class (buffered
// capture with a drop counter instead of a hard backpressure failure,
// per spec §5 "backpressure").
package micsource

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// Params describes the capture format, matching httpapi.AudioParams.
type Params struct {
	Rate      int
	Channels  int
	FrameSize int // samples per channel
}

// BytesPerFrame returns the byte size of one frame.
func (p Params) BytesPerFrame() int {
	return p.FrameSize * p.Channels * 2
}

// Mic wraps a single capture device and exposes its frames as an
// io.Reader, so it can be served directly as an HTTP response body
// (spec §6). BUFFER-style queuing (original_source's Mic.BUFFER) is
// implemented as a bounded channel with a drop counter rather than
// blocking the capture callback.
type Mic struct {
	params Params
	logger *slog.Logger

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	frames chan []byte
	drops  atomic.Int64

	pending []byte // leftover bytes from a partial Read
}

const queueCapacity = 32

// Open starts capturing from the default input device at the given
// parameters.
func Open(params Params, logger *slog.Logger) (*Mic, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mic{params: params, logger: logger, frames: make(chan []byte, queueCapacity)}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("micsource: init context: %w", err)
	}
	m.ctx = ctx

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = uint32(params.Rate)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = uint32(params.Channels)
	devCfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, _ uint32) {
			if len(raw) == 0 {
				return
			}
			chunk := make([]byte, len(raw))
			copy(chunk, raw)
			select {
			case m.frames <- chunk:
			default:
				m.drops.Add(1)
				m.logger.Warn("micsource: dropped audio chunk, consumer too slow")
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, devCfg, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("micsource: init device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("micsource: start device: %w", err)
	}

	return m, nil
}

// Params returns the capture parameters.
func (m *Mic) Params() Params { return m.params }

// Drops returns the number of audio chunks dropped due to a slow consumer.
func (m *Mic) Drops() int64 { return m.drops.Load() }

// Read implements io.Reader, blocking until at least one captured chunk is
// available.
func (m *Mic) Read(p []byte) (int, error) {
	if len(m.pending) == 0 {
		chunk, ok := <-m.frames
		if !ok {
			return 0, io.EOF
		}
		m.pending = chunk
	}
	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

// Close stops capture and releases the device.
func (m *Mic) Close() error {
	m.device.Stop()
	m.device.Uninit()
	m.ctx.Uninit()
	m.ctx.Free()
	close(m.frames)
	return nil
}
