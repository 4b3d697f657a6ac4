// Package display renders transcript state for the user.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/voceware/livetranslate/pkg/core/transcript"
)

// Sink receives transcript updates as they happen.
type Sink interface {
	// Interim shows a revisable hypothesis on the given board side.
	Interim(side Side, text string)
	// Final records a stable segment on the given board side.
	Final(side Side, text string)
	// Status reports a session lifecycle message.
	Status(text string)
}

// Side selects which transcript column an update belongs to.
type Side int

const (
	// Raw is the transcript in the spoken language.
	Raw Side = iota
	// Translated is the transcript in the output language.
	Translated
)

func (s Side) String() string {
	if s == Translated {
		return "translated"
	}
	return "raw"
}

// Console prints transcript updates line by line. Interim hypotheses are
// rewritten in place on a TTY-style single line; finals are committed
// with a side prefix.
type Console struct {
	w io.Writer

	mu          sync.Mutex
	interimLive bool
}

// NewConsole writes updates to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Interim(side Side, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "\r\033[K%s… %s", label(side), text)
	c.interimLive = true
}

func (c *Console) Final(side Side, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearInterimLocked()
	fmt.Fprintf(c.w, "%s %s\n", label(side), text)
}

func (c *Console) Status(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearInterimLocked()
	fmt.Fprintf(c.w, "-- %s\n", text)
}

func (c *Console) clearInterimLocked() {
	if c.interimLive {
		fmt.Fprint(c.w, "\r\033[K")
		c.interimLive = false
	}
}

func label(side Side) string {
	return "[" + strings.ToUpper(side.String()[:1]) + side.String()[1:] + "]"
}

// Multi fans updates out to several sinks.
type Multi []Sink

func (m Multi) Interim(side Side, text string) {
	for _, s := range m {
		s.Interim(side, text)
	}
}

func (m Multi) Final(side Side, text string) {
	for _, s := range m {
		s.Final(side, text)
	}
}

func (m Multi) Status(text string) {
	for _, s := range m {
		s.Status(text)
	}
}

// BoardSink mirrors updates into a transcript board so callers can read
// back full session state.
type BoardSink struct {
	board *transcript.Board
}

// NewBoardSink wraps board.
func NewBoardSink(board *transcript.Board) *BoardSink {
	return &BoardSink{board: board}
}

func (b *BoardSink) log(side Side) *transcript.Log {
	if side == Translated {
		return b.board.Translated
	}
	return b.board.Raw
}

func (b *BoardSink) Interim(side Side, text string) {
	b.log(side).SetInterim(text)
}

func (b *BoardSink) Final(side Side, text string) {
	b.log(side).AppendFinal(text)
}

func (b *BoardSink) Status(string) {}
