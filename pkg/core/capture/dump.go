package capture

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/voceware/livetranslate/pkg/core/audio"
)

// Dump writes captured frames to a WAV file for diagnostics.
type Dump struct {
	mu   sync.Mutex
	file *os.File
	enc  *wav.Encoder
}

// NewDump creates path and prepares a 16-bit mono WAV at the capture rate.
func NewDump(path string) (*Dump, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("capture: create dump: %w", err)
	}
	cfg := audio.CaptureConfig()
	enc := wav.NewEncoder(f, cfg.SampleRate, cfg.BitsPerSample, cfg.Channels, 1)
	return &Dump{file: f, enc: enc}, nil
}

// Append writes one frame's samples.
func (d *Dump) Append(frame Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enc == nil {
		return
	}
	n := len(frame.Data) / 2
	data := make([]int, n)
	for i := 0; i < n; i++ {
		data[i] = int(int16(binary.LittleEndian.Uint16(frame.Data[i*2 : i*2+2])))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: frame.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := d.enc.Write(buf); err != nil {
		d.enc = nil
	}
}

// Close finalizes the WAV header and closes the file.
func (d *Dump) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if d.enc != nil {
		err = d.enc.Close()
		d.enc = nil
	}
	if d.file != nil {
		if cerr := d.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		d.file = nil
	}
	return err
}
