// Package transcript holds the append-mostly text state for a session: an
// ordered sequence of finalized segments plus a single live interim slot per
// log, and one log each for the raw and translated streams.
package transcript

import "sync"

// Segment is a finalized, immutable transcript fragment.
type Segment struct {
	Text string
	// Seq orders finalized segments by arrival. Monotonic within a log.
	Seq int
}

// Log is one append-mostly transcript stream. Finalized segments are
// append-only; the interim slot is replaced wholesale on every update and
// always renders after all finalized segments. Interim text never becomes
// part of a finalized segment on its own: finalization takes explicit text
// and clears the slot.
type Log struct {
	mu      sync.Mutex
	segs    []Segment
	interim string
	nextSeq int
	active  int // Seq of the highlighted segment, -1 when none
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{active: -1}
}

// SetInterim replaces the interim slot.
func (l *Log) SetInterim(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.interim = text
}

// Interim returns the current interim text.
func (l *Log) Interim() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interim
}

// AppendFinal clears the interim slot and appends a finalized segment.
func (l *Log) AppendFinal(text string) Segment {
	l.mu.Lock()
	defer l.mu.Unlock()
	seg := Segment{Text: text, Seq: l.nextSeq}
	l.nextSeq++
	l.segs = append(l.segs, seg)
	l.interim = ""
	return seg
}

// Segments returns a copy of the finalized sequence in arrival order.
func (l *Log) Segments() []Segment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Segment, len(l.segs))
	copy(out, l.segs)
	return out
}

// Len returns the number of finalized segments.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.segs)
}

// MarkLatestActive highlights the most recent finalized segment and returns
// it. Reports false when the log has no finalized segments.
func (l *Log) MarkLatestActive() (Segment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.segs) == 0 {
		return Segment{}, false
	}
	seg := l.segs[len(l.segs)-1]
	l.active = seg.Seq
	return seg, true
}

// ActiveSeq returns the Seq of the highlighted segment, or -1.
func (l *Log) ActiveSeq() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Board pairs the raw (source-language) and translated logs of a session.
// Both start empty; a new session gets a new board.
type Board struct {
	Raw        *Log
	Translated *Log
}

// NewBoard returns a board with two empty logs.
func NewBoard() *Board {
	return &Board{Raw: NewLog(), Translated: NewLog()}
}
