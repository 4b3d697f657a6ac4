package playback

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"testing"
	"time"
)

type nopWriteCloser struct {
	bytes.Buffer
}

func (*nopWriteCloser) Close() error { return nil }

// A speaker with a pre-wired process so Play never spawns ffplay.
func testSpeaker(stdin io.WriteCloser) *Speaker {
	cmd := &exec.Cmd{}
	cmd.Process = &os.Process{Pid: 1}
	return &Speaker{
		path:       "ffplay",
		sampleRate: 24000,
		channels:   1,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		cmd:        cmd,
		stdin:      stdin,
	}
}

func TestSpeakerPlayWritesWithoutPacing(t *testing.T) {
	var out nopWriteCloser
	s := testSpeaker(&out)

	samples := make([]float32, 24000)
	begin := time.Now()
	// A start time far in the future must not delay the write; the byte
	// stream position carries the schedule.
	if err := s.Play(1e6, samples, 24000); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > 200*time.Millisecond {
		t.Fatalf("Play blocked for %v, want an immediate write", elapsed)
	}
	if got, want := out.Len(), len(samples)*2; got != want {
		t.Fatalf("wrote %d bytes, want %d", got, want)
	}
}

func TestSpeakerPlayEmptyBufferIsNoop(t *testing.T) {
	var out nopWriteCloser
	s := testSpeaker(&out)

	if err := s.Play(0, nil, 24000); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("wrote %d bytes for an empty buffer", out.Len())
	}
}
