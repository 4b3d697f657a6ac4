package recognize

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/voceware/livetranslate/internal/metrics"
)

// Engines stop listening after silence, so the adapter restarts them with
// a short pause to avoid hammering a broken engine.
const restartDelay = 100 * time.Millisecond

// Fatal engine codes that disable recognition permanently.
func fatalCode(code string) bool {
	return code == "not-allowed" || code == "aborted"
}

// Result is one hypothesis surfaced by the Adapter.
type Result struct {
	Text  string
	Final bool
}

// Adapter keeps a Recognizer listening continuously. It restarts the
// engine whenever it ends on its own, and disables it permanently on
// fatal errors or on a restart that fails.
type Adapter struct {
	rec Recognizer
	log *slog.Logger
	m   *metrics.Metrics

	active  atomic.Bool
	results chan Result
	done    chan struct{}
}

// NewAdapter wraps rec. The adapter is inert until Start.
func NewAdapter(rec Recognizer, logger *slog.Logger, m *metrics.Metrics) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		rec:     rec,
		log:     logger,
		m:       m,
		results: make(chan Result, 64),
		done:    make(chan struct{}),
	}
}

// Start begins recognition. A start failure leaves the adapter inactive.
func (a *Adapter) Start(ctx context.Context) error {
	if err := a.rec.Start(ctx); err != nil {
		return err
	}
	a.active.Store(true)
	go a.loop(ctx)
	return nil
}

// Stop ends recognition and closes Results.
func (a *Adapter) Stop() {
	if !a.active.Swap(false) {
		select {
		case <-a.done:
			return
		default:
		}
	}
	a.rec.Stop()
	<-a.done
}

// Active reports whether the adapter is still listening or restarting.
func (a *Adapter) Active() bool {
	return a.active.Load()
}

// SendAudio forwards captured audio to the engine. Calls while the
// adapter is disabled are dropped silently.
func (a *Adapter) SendAudio(pcm []byte) error {
	if !a.active.Load() {
		return nil
	}
	return a.rec.SendAudio(pcm)
}

// Results yields recognition hypotheses. The channel closes once the
// adapter is stopped or disabled.
func (a *Adapter) Results() <-chan Result {
	return a.results
}

func (a *Adapter) loop(ctx context.Context) {
	defer close(a.done)
	defer close(a.results)

	for ev := range a.rec.Events() {
		switch e := ev.(type) {
		case ResultEvent:
			if a.m != nil {
				if e.Final {
					a.m.FinalResults.Inc()
				} else {
					a.m.InterimResults.Inc()
				}
			}
			select {
			case a.results <- Result{Text: e.Text, Final: e.Final}:
			case <-ctx.Done():
				a.active.Store(false)
				return
			}
		case ErrorEvent:
			if fatalCode(e.Code) {
				a.log.Warn("recognizer disabled", "code", e.Code, "message", e.Message)
				a.active.Store(false)
				if a.m != nil {
					a.m.RecognizerDisables.Inc()
				}
				a.rec.Stop()
				return
			}
			a.log.Warn("recognizer error", "code", e.Code, "message", e.Message)
		case EndedEvent:
			if !a.active.Load() {
				return
			}
			time.Sleep(restartDelay)
			if err := a.rec.Start(ctx); err != nil {
				a.log.Warn("recognizer restart failed", "error", err)
				a.active.Store(false)
				if a.m != nil {
					a.m.RecognizerDisables.Inc()
				}
				return
			}
			if a.m != nil {
				a.m.RecognizerRestarts.Inc()
			}
		}
	}
	a.active.Store(false)
}
