package duplex

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voceware/livetranslate/internal/metrics"
)

// State is the lifecycle of a managed duplex connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Manager owns one duplex connection at a time and tracks its state.
// It does not reconnect; a session that ends stays ended until the next
// Connect call.
type Manager struct {
	dial DialFunc
	log  *slog.Logger
	m    *metrics.Metrics

	mu       sync.Mutex
	state    State
	conn     Connection
	err      error
	pumpDone chan struct{}

	events chan Event
}

// NewManager builds an idle manager around the given dialer.
func NewManager(dial DialFunc, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if dial == nil {
		dial = Dial
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dial:   dial,
		log:    logger,
		m:      m,
		state:  StateIdle,
		events: make(chan Event, 256),
	}
}

// Events yields the events of the active connection plus any prior ones.
// The channel stays open across sessions and closes only when the manager
// is shut down via Shutdown. Consumers must keep draining it until a
// ClosedEvent arrives: data events are shed under backpressure, the
// terminal event is not.
func (mg *Manager) Events() <-chan Event {
	return mg.events
}

// State reports the current lifecycle state.
func (mg *Manager) State() State {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return mg.state
}

// Err reports the error that moved the manager to StateErrored, if any.
func (mg *Manager) Err() error {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return mg.err
}

// Connect dials a new session. It fails if a session is already active.
func (mg *Manager) Connect(ctx context.Context, cfg Config) error {
	mg.mu.Lock()
	if mg.state == StateConnecting || mg.state == StateOpen {
		mg.mu.Unlock()
		return ErrAlreadyConnected
	}
	mg.state = StateConnecting
	mg.err = nil
	mg.mu.Unlock()

	conn, err := mg.dial(ctx, cfg)
	if err != nil {
		mg.mu.Lock()
		mg.state = StateErrored
		mg.err = err
		mg.mu.Unlock()
		mg.log.Error("duplex connect failed", "error", err)
		return err
	}

	// Dial completes the setup handshake, so the session is usable as
	// soon as Connect returns.
	done := make(chan struct{})
	mg.mu.Lock()
	mg.conn = conn
	mg.state = StateOpen
	mg.pumpDone = done
	mg.mu.Unlock()

	go mg.pump(conn, done)
	return nil
}

// SendRealtimeAudio forwards one PCM frame to the active connection.
func (mg *Manager) SendRealtimeAudio(pcm []byte, mimeType string) error {
	conn, err := mg.active()
	if err != nil {
		return err
	}
	if err := conn.SendRealtimeAudio(pcm, mimeType); err != nil {
		return err
	}
	if mg.m != nil {
		mg.m.AudioFramesSent.Inc()
	}
	return nil
}

// SendText forwards one completed text turn to the active connection.
func (mg *Manager) SendText(text string) error {
	conn, err := mg.active()
	if err != nil {
		return err
	}
	if err := conn.SendText(text); err != nil {
		return err
	}
	if mg.m != nil {
		mg.m.TextTurnsSent.Inc()
	}
	return nil
}

// Close ends the active connection, if any. The manager can Connect again.
func (mg *Manager) Close() error {
	mg.mu.Lock()
	conn := mg.conn
	mg.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Shutdown closes the active connection, discards undelivered events, and
// closes the events channel. The manager must not be reused afterward.
func (mg *Manager) Shutdown() {
	_ = mg.Close()
	mg.mu.Lock()
	done := mg.pumpDone
	mg.mu.Unlock()
	for done != nil {
		select {
		case <-done:
			done = nil
		case <-mg.events:
		}
	}
	mg.mu.Lock()
	if mg.state != StateErrored {
		mg.state = StateClosed
	}
	mg.mu.Unlock()
	close(mg.events)
}

func (mg *Manager) active() (Connection, error) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	if mg.state != StateOpen || mg.conn == nil {
		return nil, ErrNotOpen
	}
	return mg.conn, nil
}

// pump forwards events from one connection until its channel closes. Data
// events are shed when the buffer is full; the terminal ClosedEvent is
// always delivered, synthesized if the channel drains without one.
func (mg *Manager) pump(conn Connection, done chan struct{}) {
	defer close(done)
	sawClosed := false
	for ev := range conn.Events() {
		switch e := ev.(type) {
		case OpenedEvent:
			mg.mu.Lock()
			mg.state = StateOpen
			mg.mu.Unlock()
			mg.log.Info("duplex session open")
		case GoAwayEvent:
			mg.log.Info("duplex server going away")
		case ClosedEvent:
			sawClosed = true
			mg.finish(e.Err)
		default:
			if mg.m != nil {
				mg.m.MessagesReceived.Inc()
			}
		}
		if _, terminal := ev.(ClosedEvent); terminal {
			mg.events <- ev
			continue
		}
		select {
		case mg.events <- ev:
		default:
		}
	}
	if !sawClosed {
		mg.finish(nil)
		mg.events <- ClosedEvent{}
	}
}

// finish records the terminal state of the connection being pumped.
func (mg *Manager) finish(err error) {
	mg.mu.Lock()
	if err != nil {
		mg.state = StateErrored
		mg.err = err
	} else if mg.state != StateErrored {
		mg.state = StateClosed
	}
	mg.conn = nil
	mg.mu.Unlock()
	if err != nil {
		mg.log.Error("duplex session ended", "error", err)
	} else {
		mg.log.Info("duplex session closed")
	}
}
