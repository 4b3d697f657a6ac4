package capture

import (
	"encoding/binary"
	"math"

	"github.com/voceware/livetranslate/pkg/core/audio"
)

// FrameSamples is the fixed frame size sent to the cloud and the
// recognizer. 4096 samples is 256 ms at the capture rate.
const FrameSamples = 4096

// Framer accumulates float32 samples and emits fixed-size PCM frames.
// Not safe for concurrent use; the device callback is its only caller.
type Framer struct {
	sampleRate int
	frameSize  int
	pending    []float32
}

// NewFramer builds a framer emitting frames of frameSize samples.
func NewFramer(sampleRate, frameSize int) *Framer {
	return &Framer{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		pending:    make([]float32, 0, frameSize),
	}
}

// Push appends samples and returns every complete frame now available.
// Leftover samples stay pending for the next call.
func (f *Framer) Push(samples []float32) []Frame {
	f.pending = append(f.pending, samples...)

	var frames []Frame
	for len(f.pending) >= f.frameSize {
		chunk := f.pending[:f.frameSize]
		frames = append(frames, Frame{
			Data:       audio.EncodePCM16(chunk),
			SampleRate: f.sampleRate,
			MIMEType:   audio.CaptureMIMEType,
		})
		f.pending = f.pending[f.frameSize:]
	}
	if len(frames) > 0 {
		// Compact so pending does not alias the emitted frames' backing array.
		f.pending = append(make([]float32, 0, f.frameSize), f.pending...)
	}
	return frames
}

// Pending reports how many samples are waiting for the next frame.
func (f *Framer) Pending() int {
	return len(f.pending)
}

// decodeF32 reads little-endian float32 device samples.
func decodeF32(data []byte, frameCount uint32) []float32 {
	n := int(frameCount)
	if max := len(data) / 4; n > max {
		n = max
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
