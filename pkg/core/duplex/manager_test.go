package duplex

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voceware/livetranslate/internal/metrics"
)

// fakeConn scripts a Connection for the manager tests.
type fakeConn struct {
	events chan Event

	mu     sync.Mutex
	audio  [][]byte
	texts  []string
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan Event, 16)}
}

func (f *fakeConn) Events() <-chan Event { return f.events }

func (f *fakeConn) SendRealtimeAudio(pcm []byte, mimeType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, pcm)
	return nil
}

func (f *fakeConn) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.events <- ClosedEvent{}
		close(f.events)
	}
	return nil
}

func (f *fakeConn) finish(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.events <- ClosedEvent{Err: err}
		close(f.events)
	}
}

func dialerFor(conn Connection, err error) DialFunc {
	return func(ctx context.Context, cfg Config) (Connection, error) {
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

func waitForState(t *testing.T, mg *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mg.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("manager state = %v, want %v", mg.State(), want)
}

func TestManagerConnectOpensAndSends(t *testing.T) {
	conn := newFakeConn()
	mg := NewManager(dialerFor(conn, nil), nil, metrics.New())

	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := mg.State(); got != StateOpen {
		t.Fatalf("state after Connect = %v, want %v", got, StateOpen)
	}

	if err := mg.SendRealtimeAudio([]byte{1, 2}, "audio/pcm;rate=16000"); err != nil {
		t.Fatalf("SendRealtimeAudio: %v", err)
	}
	if err := mg.SendText("hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	conn.mu.Lock()
	audioN, textN := len(conn.audio), len(conn.texts)
	conn.mu.Unlock()
	if audioN != 1 || textN != 1 {
		t.Fatalf("fake got %d audio frames and %d texts, want 1 and 1", audioN, textN)
	}
}

func TestManagerDialErrorMovesToErrored(t *testing.T) {
	dialErr := errors.New("refused")
	mg := NewManager(dialerFor(nil, dialErr), nil, nil)

	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); !errors.Is(err, dialErr) {
		t.Fatalf("Connect error = %v, want %v", err, dialErr)
	}
	if got := mg.State(); got != StateErrored {
		t.Fatalf("state = %v, want %v", got, StateErrored)
	}
	if !errors.Is(mg.Err(), dialErr) {
		t.Fatalf("Err() = %v, want %v", mg.Err(), dialErr)
	}
}

func TestManagerRejectsSecondConnect(t *testing.T) {
	conn := newFakeConn()
	mg := NewManager(dialerFor(conn, nil), nil, nil)

	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("second Connect error = %v, want %v", err, ErrAlreadyConnected)
	}
}

func TestManagerCleanCloseMovesToClosed(t *testing.T) {
	conn := newFakeConn()
	mg := NewManager(dialerFor(conn, nil), nil, nil)

	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := mg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitForState(t, mg, StateClosed)

	if err := mg.SendText("late"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("send after close = %v, want %v", err, ErrNotOpen)
	}
}

func TestManagerRemoteErrorMovesToErrored(t *testing.T) {
	conn := newFakeConn()
	mg := NewManager(dialerFor(conn, nil), nil, nil)

	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	remoteErr := errors.New("connection reset")
	conn.finish(remoteErr)

	waitForState(t, mg, StateErrored)
	if !errors.Is(mg.Err(), remoteErr) {
		t.Fatalf("Err() = %v, want %v", mg.Err(), remoteErr)
	}
}

func TestManagerDeliversTerminalEventUnderBackpressure(t *testing.T) {
	conn := &fakeConn{events: make(chan Event, 512)}
	mg := NewManager(dialerFor(conn, nil), nil, nil)

	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	// Flood well past the manager's buffer while nothing consumes, then
	// close. Data events may be shed; the terminal event must survive.
	for i := 0; i < 300; i++ {
		conn.events <- AudioEvent{Data: []byte{1}}
	}
	_ = conn.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-mg.Events():
			if _, ok := ev.(ClosedEvent); ok {
				waitForState(t, mg, StateClosed)
				return
			}
		case <-deadline:
			t.Fatal("terminal event never reached the consumer")
		}
	}
}

func TestManagerSynthesizesTerminalWhenChannelDrains(t *testing.T) {
	conn := newFakeConn()
	mg := NewManager(dialerFor(conn, nil), nil, nil)

	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	// A connection whose channel closes without a terminal event still
	// yields exactly one ClosedEvent downstream.
	close(conn.events)

	select {
	case ev := <-mg.Events():
		if _, ok := ev.(ClosedEvent); !ok {
			t.Fatalf("expected ClosedEvent, got %T", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the synthesized terminal event")
	}
	waitForState(t, mg, StateClosed)
}

func TestManagerForwardsEvents(t *testing.T) {
	conn := newFakeConn()
	mg := NewManager(dialerFor(conn, nil), nil, nil)

	if err := mg.Connect(context.Background(), Config{APIKey: "k"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn.events <- InputTranscriptionEvent{Text: "hola"}
	conn.events <- TurnCompleteEvent{}

	got := InputTranscriptionEvent{}
	select {
	case ev := <-mg.Events():
		in, ok := ev.(InputTranscriptionEvent)
		if !ok {
			t.Fatalf("expected InputTranscriptionEvent, got %T", ev)
		}
		got = in
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded event")
	}
	if got.Text != "hola" {
		t.Fatalf("forwarded text = %q, want %q", got.Text, "hola")
	}
}
