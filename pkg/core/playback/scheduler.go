// Package playback schedules synthesized audio chunks for gapless output.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voceware/livetranslate/internal/metrics"
	"github.com/voceware/livetranslate/pkg/core/audio"
)

// Clock reports the output time base in seconds. Implementations must be
// monotonic.
type Clock interface {
	Now() float64
}

type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a clock measuring seconds since its creation.
func NewMonotonicClock() Clock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// Sink plays a decoded mono buffer starting at the given clock time.
type Sink interface {
	Play(startAt float64, samples []float32, sampleRate int) error
	Close() error
}

// Scheduler decodes inbound PCM16 chunks and schedules them back-to-back on
// a Sink. The cursor invariant: each chunk starts at max(cursor, now) and the
// cursor advances by the chunk's duration immediately after scheduling, so
// consecutive chunks play with no deliberate gap and never start in the past.
type Scheduler struct {
	clock Clock
	sink  Sink
	cfg   audio.Config
	log   *slog.Logger
	m     *metrics.Metrics

	mu     sync.Mutex
	cursor float64
}

// NewScheduler creates a scheduler for the given output format. The metrics
// argument may be nil.
func NewScheduler(clock Clock, sink Sink, cfg audio.Config, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{clock: clock, sink: sink, cfg: cfg, log: logger, m: m}
}

// Enqueue decodes one raw PCM16 chunk and schedules it. Decode or sink
// failures drop the single chunk and leave the cursor untouched; playback
// continues with subsequent chunks.
func (s *Scheduler) Enqueue(pcm []byte) {
	samples := audio.DecodePCM16(pcm)
	if len(samples) == 0 {
		s.log.Warn("playback: dropping undecodable chunk", "bytes", len(pcm))
		if s.m != nil {
			s.m.PlaybackChunksDropped.Inc()
		}
		return
	}
	duration := float64(len(samples)) / float64(s.cfg.SampleRate)

	s.mu.Lock()
	defer s.mu.Unlock()

	startAt := s.cursor
	if now := s.clock.Now(); now > startAt {
		startAt = now
	}
	if err := s.sink.Play(startAt, samples, s.cfg.SampleRate); err != nil {
		s.log.Warn("playback: dropping chunk", "error", err)
		if s.m != nil {
			s.m.PlaybackChunksDropped.Inc()
		}
		return
	}
	s.cursor = startAt + duration
	if s.m != nil {
		s.m.PlaybackChunksScheduled.Inc()
	}
}

// Cursor returns the time the next chunk would start at the earliest.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Close releases the sink.
func (s *Scheduler) Close() error {
	return s.sink.Close()
}
