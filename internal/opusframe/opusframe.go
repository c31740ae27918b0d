// Package opusframe adapts an Opus-encoded audio source (e.g. WebRTC
// telephony capture) into the frame.Frame shape the segmentation engine
// consumes. It decodes with layeh.com/gopus, grounded on
// MrWong99-glyphoxa/pkg/audio/discord/opus.go's decoder wrapper, then
// downmixes and resamples to the engine's fixed 16kHz mono contract using
// the linear-interpolation technique from
// agalue-sherpa-voice-assistant/internal/audio/resampler.go (sufficient
// quality for voice activity detection, per that package's own doc
// comment).
package opusframe

import (
	"fmt"

	"layeh.com/gopus"

	"github.com/vadcore/segmenter/internal/frame"
)

// SourceRate and SourceChannels describe the Opus stream's native format.
// Telephony/WebRTC capture commonly runs wideband Opus at 48kHz stereo;
// the engine only accepts 16kHz mono (frame.SampleRate), so every decoded
// packet is downmixed and resampled before it becomes a frame.Frame.
const (
	SourceRate     = 48000
	SourceChannels = 2
)

// FrameMs is the Opus frame duration this decoder expects, chosen from
// frame.Frame's allowed set {10,20,30}.
const FrameMs = 20

// sourceSamplesPerFrame is the number of samples per channel gopus must
// decode from one Opus packet at SourceRate/FrameMs.
const sourceSamplesPerFrame = SourceRate * FrameMs / 1000

// Decoder turns a stream of Opus packets into 16kHz mono frame.Frame
// values. It is stateful (gopus.Decoder carries codec history across
// packets), so a Decoder must not be shared between concurrent streams.
type Decoder struct {
	dec        *gopus.Decoder
	lastSample int16 // resampler continuity across packet boundaries
}

// NewDecoder creates a Decoder configured for SourceRate/SourceChannels
// Opus audio.
func NewDecoder() (*Decoder, error) {
	dec, err := gopus.NewDecoder(SourceRate, SourceChannels)
	if err != nil {
		return nil, fmt.Errorf("opusframe: create decoder: %w", err)
	}
	return &Decoder{dec: dec}, nil
}

// Decode decodes one Opus packet into a valid 16kHz mono frame.Frame.
func (d *Decoder) Decode(packet []byte) (frame.Frame, error) {
	pcm, err := d.dec.Decode(packet, sourceSamplesPerFrame, false)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("opusframe: opus decode: %w", err)
	}

	mono := downmix(pcm, SourceChannels)
	resampled := d.resample(mono, SourceRate, frame.SampleRate)

	out := make([]byte, len(resampled)*2)
	for i, s := range resampled {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return frame.New(out, frame.SampleRate, 1)
}

// downmix averages interleaved multi-channel int16 samples down to mono,
// matching frame.Frame.Mono's integer-mean approach (spec §9).
func downmix(pcm []int16, channels int) []int16 {
	if channels == 1 {
		return pcm
	}
	n := len(pcm) / channels
	mono := make([]int16, n)
	for i := 0; i < n; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(pcm[i*channels+c])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}

// resample converts mono to channel samples from fromRate to toRate using
// linear interpolation, carrying the trailing sample across calls so
// packet boundaries don't introduce a discontinuity.
func (d *Decoder) resample(input []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(input) == 0 {
		return input
	}
	ratio := float64(toRate) / float64(fromRate)
	outLen := int(float64(len(input)) * ratio)
	output := make([]int16, outLen)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s1 := d.lastSample
		if srcIdx < len(input) {
			s1 = input[srcIdx]
		}
		s2 := s1
		if srcIdx+1 < len(input) {
			s2 = input[srcIdx+1]
		} else if srcIdx < len(input) {
			s2 = input[len(input)-1]
		}
		output[i] = int16(float64(s1) + (float64(s2)-float64(s1))*frac)
	}

	d.lastSample = input[len(input)-1]
	return output
}
