// Package session wires capture, recognition, translation, the duplex
// cloud session, and playback into one running live-translate session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/voceware/livetranslate/internal/metrics"
	"github.com/voceware/livetranslate/pkg/core/capture"
	"github.com/voceware/livetranslate/pkg/core/display"
	"github.com/voceware/livetranslate/pkg/core/duplex"
	"github.com/voceware/livetranslate/pkg/core/plan"
	"github.com/voceware/livetranslate/pkg/core/recognize"
	"github.com/voceware/livetranslate/pkg/core/transcript"
	"github.com/voceware/livetranslate/pkg/core/translate"
)

// CapturePipeline is the audio source a session reads from.
type CapturePipeline interface {
	Open(src plan.Source) error
	Frames() <-chan capture.Frame
	Stop()
}

// Recognition is the local speech recognizer surface.
type Recognition interface {
	Start(ctx context.Context) error
	Stop()
	Active() bool
	SendAudio(pcm []byte) error
	Results() <-chan recognize.Result
}

// CloudSession is the duplex connection surface.
type CloudSession interface {
	Connect(ctx context.Context, cfg duplex.Config) error
	Events() <-chan duplex.Event
	SendRealtimeAudio(pcm []byte, mimeType string) error
	SendText(text string) error
	Close() error
}

// Player schedules synthesized audio for gapless playback.
type Player interface {
	Enqueue(pcm []byte)
	Close() error
}

// Deps holds everything a session needs. The recognizer may be nil when
// the mode does not use local recognition.
type Deps struct {
	Capture    CapturePipeline
	Recognizer Recognition
	Cloud      CloudSession
	Translator translate.Client
	Player     Player
	Board      *transcript.Board
	Sink       display.Sink
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	// CloudConfig is the duplex connection configuration minus the
	// instruction, which comes from the resolved plan.
	CloudConfig duplex.Config
}

// Session is one live capture/translate run. Construct with Start; a
// stopped session cannot be reused.
type Session struct {
	ID    string
	plan  plan.Plan
	langs plan.LanguagePair

	deps Deps
	log  *slog.Logger
	m    *metrics.Metrics

	// alive gates every event path so late callbacks from a stopped
	// session are ignored.
	alive atomic.Bool

	streamAudio bool
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// Start resolves the plan, acquires resources in order, and begins the
// event loops. On any acquisition failure it releases what it took and
// returns the error; nothing keeps running.
func Start(ctx context.Context, src plan.Source, langs plan.LanguagePair, deps Deps) (*Session, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	p := plan.Resolve(src, langs)
	s := &Session{
		ID:    uuid.NewString(),
		plan:  p,
		langs: langs,
		deps:  deps,
		m:     deps.Metrics,
	}
	s.log = log.With("session", s.ID, "mode", p.Mode)

	if err := deps.Capture.Open(src); err != nil {
		s.deps.Sink.Status("capture failed: " + err.Error())
		return nil, fmt.Errorf("session: open capture: %w", err)
	}

	recognizerActive := false
	if p.Mode == plan.ModeMicTranslate && deps.Recognizer != nil {
		if err := deps.Recognizer.Start(ctx); err != nil {
			s.log.Warn("local recognition unavailable, falling back to cloud streaming", "error", err)
		} else {
			recognizerActive = true
		}
	}
	// Routing is decided here, once, from the static plan and the
	// recognizer's activation outcome. A recognizer that dies later does
	// not flip it.
	s.streamAudio = p.EffectiveStreamAudio(recognizerActive)

	cloudCfg := deps.CloudConfig
	cloudCfg.Instruction = p.Instruction
	if err := deps.Cloud.Connect(ctx, cloudCfg); err != nil {
		if recognizerActive {
			deps.Recognizer.Stop()
		}
		deps.Capture.Stop()
		s.deps.Sink.Status("connection failed: " + err.Error())
		return nil, fmt.Errorf("session: connect cloud: %w", err)
	}

	s.alive.Store(true)
	if s.m != nil {
		s.m.SessionsStarted.Inc()
	}
	s.deps.Sink.Status("live")
	s.log.Info("session started", "stream_audio", s.streamAudio, "recognizer", recognizerActive)

	s.wg.Add(2)
	go s.forwardAudio()
	go s.cloudLoop()
	if recognizerActive {
		s.wg.Add(1)
		go s.recognizerLoop(ctx)
	}
	return s, nil
}

// Stop tears the session down. Order: recognizer first so no new finals
// arrive, then capture, then the cloud connection, then playback.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		wasLive := s.alive.Swap(false)
		if s.deps.Recognizer != nil {
			s.deps.Recognizer.Stop()
		}
		s.deps.Capture.Stop()
		_ = s.deps.Cloud.Close()
		s.wg.Wait()
		_ = s.deps.Player.Close()
		if wasLive {
			if s.m != nil {
				s.m.SessionsEnded.Inc()
			}
			s.deps.Sink.Status("session ended")
		}
		s.log.Info("session stopped")
	})
}

// forwardAudio routes captured frames to the recognizer, the cloud, or
// both, per the routing decision made at start.
func (s *Session) forwardAudio() {
	defer s.wg.Done()
	for frame := range s.deps.Capture.Frames() {
		if !s.alive.Load() {
			return
		}
		if s.deps.Recognizer != nil && s.deps.Recognizer.Active() {
			if err := s.deps.Recognizer.SendAudio(frame.Data); err != nil {
				s.log.Warn("recognizer send failed", "error", err)
			}
		}
		if s.streamAudio {
			if err := s.deps.Cloud.SendRealtimeAudio(frame.Data, frame.MIMEType); err != nil {
				s.log.Warn("cloud audio send failed", "error", err)
			}
		}
	}
}

// recognizerLoop consumes local recognition results. Interim hypotheses
// replace the raw interim slot; finals append and, when translation is
// active, are translated and handed to the cloud as a speak turn.
func (s *Session) recognizerLoop(ctx context.Context) {
	defer s.wg.Done()
	for res := range s.deps.Recognizer.Results() {
		if !s.alive.Load() {
			return
		}
		if !res.Final {
			s.deps.Sink.Interim(display.Raw, res.Text)
			continue
		}
		if res.Text == "" {
			continue
		}
		s.deps.Sink.Final(display.Raw, res.Text)
		if !s.langs.TranslationActive() {
			continue
		}
		translated := s.translateFinal(ctx, res.Text)
		if translated == "" {
			continue
		}
		s.deps.Sink.Final(display.Translated, translated)
		if err := s.deps.Cloud.SendText(translated); err != nil {
			s.log.Warn("speak turn send failed", "error", err)
		}
	}
}

// translateFinal returns "" on any failure so the caller skips downstream
// effects silently.
func (s *Session) translateFinal(ctx context.Context, text string) string {
	if s.deps.Translator == nil {
		return ""
	}
	if s.m != nil {
		s.m.TranslationRequests.Inc()
	}
	translated, err := s.deps.Translator.Translate(ctx, text, plan.DisplayName(s.langs.Output))
	if err != nil {
		if s.m != nil {
			s.m.TranslationFailures.Inc()
		}
		s.log.Warn("translation failed", "error", err)
		return ""
	}
	return translated
}

// cloudLoop consumes duplex events. Synthesized audio goes to the player;
// transcription fields drive the transcript boards; a missing output
// transcription falls back to the message's text parts.
func (s *Session) cloudLoop() {
	defer s.wg.Done()
	var pendingTranslated string
	for ev := range s.deps.Cloud.Events() {
		if !s.alive.Load() {
			// Keep draining so the connection can flush its terminal
			// event; only that event ends the loop.
			if _, ok := ev.(duplex.ClosedEvent); ok {
				return
			}
			continue
		}
		switch e := ev.(type) {
		case duplex.AudioEvent:
			s.deps.Player.Enqueue(e.Data)
			if s.plan.Mode == plan.ModeSystemTranslate {
				// Spoken output is the translation signal in this mode;
				// highlight the segment being translated.
				s.deps.Board.Raw.MarkLatestActive()
			}
		case duplex.InputTranscriptionEvent:
			s.deps.Sink.Final(display.Raw, e.Text)
		case duplex.OutputTranscriptionEvent:
			pendingTranslated += e.Text
			s.deps.Sink.Interim(display.Translated, pendingTranslated)
		case duplex.TextEvent:
			pendingTranslated += e.Text
			s.deps.Sink.Interim(display.Translated, pendingTranslated)
		case duplex.TurnCompleteEvent:
			if pendingTranslated != "" {
				s.deps.Sink.Final(display.Translated, pendingTranslated)
				pendingTranslated = ""
			}
		case duplex.InterruptedEvent:
			pendingTranslated = ""
			s.deps.Sink.Interim(display.Translated, "")
		case duplex.ClosedEvent:
			if e.Err != nil {
				s.deps.Sink.Status("connection lost: " + e.Err.Error())
			}
			s.endLive()
			return
		}
	}
}

// endLive exits the live display state after a cloud close or error. The
// user starts a new session explicitly; there is no reconnect.
func (s *Session) endLive() {
	if !s.alive.Swap(false) {
		return
	}
	if s.deps.Recognizer != nil {
		s.deps.Recognizer.Stop()
	}
	s.deps.Capture.Stop()
	s.deps.Sink.Status("session ended")
	if s.m != nil {
		s.m.SessionsEnded.Inc()
	}
	s.log.Info("cloud session ended")
}
