package playback

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/voceware/livetranslate/pkg/core/audio"
)

// Speaker is a Sink backed by an ffplay subprocess consuming s16le PCM on
// stdin. ffplay consumes the stream at the sample rate, so a contiguous
// byte stream is inherently gapless and paced in realtime; Play writes
// immediately and never waits for the scheduled start time.
type Speaker struct {
	path       string
	sampleRate int
	channels   int
	volume     int
	log        *slog.Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewSpeaker creates an ffplay-backed sink. An empty path defaults to
// "ffplay" on PATH.
func NewSpeaker(cfg audio.Config, path string, logger *slog.Logger) *Speaker {
	if path == "" {
		path = "ffplay"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		path:       path,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		volume:     80,
		log:        logger,
	}
}

// Play appends the buffer to the speaker stream. The startAt time is
// already honored by stream position: ffplay drains stdin at the sample
// rate, so blocking here to pace would only stall the producer.
func (s *Speaker) Play(startAt float64, samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if err := s.ensureRunning(); err != nil {
		return err
	}

	pcm := audio.EncodePCM16(samples)

	s.mu.Lock()
	stdin := s.stdin
	s.mu.Unlock()
	if stdin == nil {
		return fmt.Errorf("speaker is not running")
	}
	if _, err := stdin.Write(pcm); err != nil {
		return fmt.Errorf("write to speaker: %w", err)
	}
	return nil
}

func (s *Speaker) ensureRunning() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		return nil
	}

	// ffplay does not accept ffmpeg-style `-ac`; use `-ch_layout`.
	chLayout := "mono"
	if s.channels == 2 {
		chLayout = "stereo"
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-volume", fmt.Sprintf("%d", s.volume),
		"-nodisp",
		"-f", "s16le",
		"-ch_layout", chLayout,
		"-ar", fmt.Sprintf("%d", s.sampleRate),
		"-i", "-",
	}
	cmd := exec.Command(s.path, args...)
	if runtime.GOOS == "darwin" {
		// ffplay uses SDL for audio output on macOS, which can pick a dummy
		// backend with no sound; prefer CoreAudio unless overridden.
		if os.Getenv("SDL_AUDIODRIVER") == "" {
			cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
		}
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start %s: %w", s.path, err)
	}
	s.cmd = cmd
	s.stdin = stdin
	go func(c *exec.Cmd) {
		_ = c.Wait()
		s.mu.Lock()
		if s.cmd == c {
			s.cmd = nil
			s.stdin = nil
		}
		s.mu.Unlock()
	}(cmd)

	s.log.Debug("speaker started", "path", s.path, "sample_rate", s.sampleRate)
	return nil
}

// Close stops the speaker process.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
	s.stdin = nil
	return nil
}
