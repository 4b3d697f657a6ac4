package recognize

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeRecognizer scripts engine behavior for the adapter tests. Its events
// channel persists across restarts, matching the streaming client.
type fakeRecognizer struct {
	events chan Event

	mu        sync.Mutex
	starts    int
	failAfter int
	stopped   bool
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan Event, 16), failAfter: -1}
}

func (f *fakeRecognizer) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.failAfter >= 0 && f.starts > f.failAfter {
		return errors.New("engine unavailable")
	}
	return nil
}

func (f *fakeRecognizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.events)
	}
}

func (f *fakeRecognizer) SendAudio(pcm []byte) error { return nil }

func (f *fakeRecognizer) Events() <-chan Event { return f.events }

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func waitForInactive(t *testing.T, a *Adapter) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !a.Active() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("adapter still active")
}

func collect(t *testing.T, a *Adapter, n int) []Result {
	t.Helper()
	var got []Result
	for len(got) < n {
		select {
		case r, ok := <-a.Results():
			if !ok {
				t.Fatalf("results closed after %d of %d", len(got), n)
			}
			got = append(got, r)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d results", len(got), n)
		}
	}
	return got
}

func TestAdapterForwardsResults(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec, nil, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	rec.events <- ResultEvent{Text: "hel", Final: false}
	rec.events <- ResultEvent{Text: "hello", Final: true}

	got := collect(t, a, 2)
	if got[0].Final || got[0].Text != "hel" {
		t.Fatalf("first result = %+v", got[0])
	}
	if !got[1].Final || got[1].Text != "hello" {
		t.Fatalf("second result = %+v", got[1])
	}
}

func TestAdapterRestartsAfterEnd(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec, nil, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	rec.events <- EndedEvent{}
	rec.events <- ResultEvent{Text: "after restart", Final: true}

	got := collect(t, a, 1)
	if got[0].Text != "after restart" {
		t.Fatalf("result = %+v", got[0])
	}
	if n := rec.startCount(); n != 2 {
		t.Fatalf("start count = %d, want 2", n)
	}
	if !a.Active() {
		t.Fatal("adapter must stay active across restarts")
	}
}

func TestAdapterFatalErrorDisables(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec, nil, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec.events <- ErrorEvent{Code: "not-allowed", Message: "permission denied"}

	waitForInactive(t, a)
	if n := rec.startCount(); n != 1 {
		t.Fatalf("start count = %d, want 1 (no restart after fatal error)", n)
	}
	a.Stop()
}

func TestAdapterNonFatalErrorKeepsListening(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec, nil, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	rec.events <- ErrorEvent{Code: "network", Message: "blip"}
	rec.events <- ResultEvent{Text: "still here", Final: true}

	got := collect(t, a, 1)
	if got[0].Text != "still here" {
		t.Fatalf("result = %+v", got[0])
	}
	if !a.Active() {
		t.Fatal("adapter must survive non-fatal errors")
	}
}

func TestAdapterRestartFailureDisables(t *testing.T) {
	rec := newFakeRecognizer()
	rec.failAfter = 1
	a := NewAdapter(rec, nil, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec.events <- EndedEvent{}

	waitForInactive(t, a)
	a.Stop()
}
