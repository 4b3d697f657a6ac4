package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/voceware/livetranslate/internal/metrics"
	"github.com/voceware/livetranslate/pkg/core/audio"
	"github.com/voceware/livetranslate/pkg/core/plan"
)

var (
	// ErrPermissionDenied means the OS refused access to the device.
	ErrPermissionDenied = errors.New("capture: permission denied")

	// ErrNoAudioTrack means system audio capture produced no usable track,
	// typically because the platform has no loopback endpoint.
	ErrNoAudioTrack = errors.New("capture: no audio track")

	// ErrSelectionCancelled means the user backed out of device selection.
	ErrSelectionCancelled = errors.New("capture: selection cancelled")
)

// Frame is one fixed-size chunk of captured audio, already encoded for
// the wire.
type Frame struct {
	Data       []byte
	SampleRate int
	MIMEType   string
}

// Capture owns a malgo context and at most one running device. Frames are
// delivered on a buffered channel; when the consumer falls behind, new
// frames are dropped rather than delivered late or out of order.
type Capture struct {
	ctx *malgo.AllocatedContext
	log *slog.Logger
	m   *metrics.Metrics

	mu      sync.Mutex
	device  *malgo.Device
	framer  *Framer
	frames  chan Frame
	dump    *Dump
	running bool
}

// New initializes the audio backend. Call Close when done.
func New(logger *slog.Logger, m *metrics.Metrics) (*Capture, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: init context: %w", err)
	}
	return &Capture{ctx: ctx, log: logger, m: m}, nil
}

// SetDump copies every captured frame into d until Close. Must be called
// before Open.
func (c *Capture) SetDump(d *Dump) {
	c.mu.Lock()
	c.dump = d
	c.mu.Unlock()
}

// Open starts capturing from the given source. Microphone sources use the
// configured device, or the system default when the ID is empty. System
// audio uses the platform loopback endpoint.
func (c *Capture) Open(src plan.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("capture: already open")
	}

	cfg := audio.CaptureConfig()
	frames := make(chan Frame, 32)
	framer := NewFramer(cfg.SampleRate, FrameSamples)

	var deviceCfg malgo.DeviceConfig
	switch src.Kind {
	case plan.SourceSystemAudio:
		deviceCfg = malgo.DefaultDeviceConfig(malgo.Loopback)
	case plan.SourceMicrophone:
		deviceCfg = malgo.DefaultDeviceConfig(malgo.Capture)
		if src.DeviceID != "" {
			info, err := c.findDeviceLocked(src.DeviceID)
			if err != nil {
				return err
			}
			id := info.ID
			deviceCfg.Capture.DeviceID = id.Pointer()
		}
	default:
		return fmt.Errorf("capture: unknown source kind %d", src.Kind)
	}
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = uint32(cfg.Channels)
	deviceCfg.SampleRate = uint32(cfg.SampleRate)

	dump := c.dump
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pSamples []byte, frameCount uint32) {
			samples := decodeF32(pSamples, frameCount)
			for _, frame := range framer.Push(samples) {
				if dump != nil {
					dump.Append(frame)
				}
				select {
				case frames <- frame:
					if c.m != nil {
						c.m.FramesCaptured.Inc()
						c.m.BytesCaptured.Add(float64(len(frame.Data)))
					}
				default:
					if c.m != nil {
						c.m.FramesDropped.Inc()
					}
				}
			}
		},
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return classifyInitError(src, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return classifyInitError(src, err)
	}

	c.device = device
	c.framer = framer
	c.frames = frames
	c.running = true
	c.log.Info("capture started", "source", src.Kind, "device", src.DeviceID, "rate", cfg.SampleRate)
	return nil
}

// Frames yields captured frames. Nil before Open.
func (c *Capture) Frames() <-chan Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Stop ends the running capture and closes the frames channel. The
// Capture can Open again afterward.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.device.Uninit()
	c.device = nil
	c.running = false
	close(c.frames)
	c.frames = nil
}

// Close stops any running capture, flushes the dump, and releases the
// audio backend.
func (c *Capture) Close() error {
	c.Stop()
	c.mu.Lock()
	dump := c.dump
	c.dump = nil
	c.mu.Unlock()

	var err error
	if dump != nil {
		err = dump.Close()
	}
	if c.ctx != nil {
		if uerr := c.ctx.Uninit(); uerr != nil && err == nil {
			err = fmt.Errorf("capture: uninit context: %w", uerr)
		}
		c.ctx.Free()
	}
	return err
}

// classifyInitError maps backend failures onto the capture sentinels.
func classifyInitError(src plan.Source, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "permission") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if src.Kind == plan.SourceSystemAudio {
		return fmt.Errorf("%w: %v", ErrNoAudioTrack, err)
	}
	return fmt.Errorf("capture: open device: %w", err)
}
