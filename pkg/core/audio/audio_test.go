package audio

import (
	"math"
	"testing"
)

func TestEncodePCM16(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float32
		expected []int16
	}{
		{
			name:     "silence",
			samples:  []float32{0, 0, 0},
			expected: []int16{0, 0, 0},
		},
		{
			name:     "full scale",
			samples:  []float32{1, -1},
			expected: []int16{32767, -32767},
		},
		{
			name:     "clipping",
			samples:  []float32{2.5, -3.0},
			expected: []int16{32767, -32767},
		},
		{
			name:     "half amplitude",
			samples:  []float32{0.5, -0.5},
			expected: []int16{16384, -16384},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := EncodePCM16(tt.samples)
			if len(pcm) != len(tt.expected)*2 {
				t.Fatalf("expected %d bytes, got %d", len(tt.expected)*2, len(pcm))
			}
			for i, want := range tt.expected {
				got := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
				if got != want {
					t.Errorf("sample %d: expected %d, got %d", i, want, got)
				}
			}
		})
	}
}

func TestDecodePCM16IgnoresTrailingByte(t *testing.T) {
	out := DecodePCM16([]byte{0x00, 0x40, 0xff})
	if len(out) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(out))
	}
	if out[0] != 0.5 {
		t.Errorf("expected 0.5, got %f", out[0])
	}
}

// Decode then re-encode must round-trip to within one quantization step for
// in-range samples.
func TestPCM16RoundTrip(t *testing.T) {
	values := []int16{0, 1, -1, 100, -100, 16384, -16384, 32767, -32767, -32768}
	pcm := make([]byte, len(values)*2)
	for i, v := range values {
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}

	again := EncodePCM16(DecodePCM16(pcm))
	for i, want := range values {
		got := int16(again[i*2]) | int16(again[i*2+1])<<8
		diff := int(got) - int(want)
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d: %d round-tripped to %d", i, want, got)
		}
	}
}

func TestRMSEnergy(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		expected float64
	}{
		{name: "silence", samples: []int16{0, 0, 0, 0}, expected: 0.0},
		{name: "max amplitude", samples: []int16{32767, 32767, 32767, 32767}, expected: 1.0},
		{name: "half amplitude", samples: []int16{16384, -16384, 16384, -16384}, expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := make([]byte, len(tt.samples)*2)
			for i, s := range tt.samples {
				pcm[i*2] = byte(s)
				pcm[i*2+1] = byte(s >> 8)
			}
			got := RMSEnergy(pcm)
			if math.Abs(got-tt.expected) > 0.01 {
				t.Errorf("expected RMS %.3f, got %.3f", tt.expected, got)
			}
		})
	}
}

func TestConfigMath(t *testing.T) {
	cfg := PlaybackConfig()
	if got := cfg.BytesPerSecond(); got != 48000 {
		t.Errorf("BytesPerSecond: expected 48000, got %d", got)
	}
	if got := cfg.DurationMs(48000); got != 1000 {
		t.Errorf("DurationMs: expected 1000, got %d", got)
	}
	if got := cfg.BytesForDurationMs(500); got != 24000 {
		t.Errorf("BytesForDurationMs: expected 24000, got %d", got)
	}
}
