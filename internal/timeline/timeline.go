// Package timeline paces the reveal of a dungeon trace, one event per
// interval.
package timeline

import (
	"time"

	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
)

// Timer accumulates elapsed time against a target
type Timer struct {
	Target  time.Duration
	Current time.Duration
}

// NewTimer creates a timer that finishes after target
func NewTimer(target time.Duration) Timer {
	return Timer{Target: target}
}

// Tick adds delta to the elapsed time
func (t *Timer) Tick(delta time.Duration) {
	t.Current += delta
}

// Finished reports whether the target has been reached
func (t *Timer) Finished() bool {
	return t.Current >= t.Target
}

// RollOver subtracts one target from the elapsed time, keeping the excess
func (t *Timer) RollOver() {
	t.Current -= t.Target
}

// State is the playback state of a Timeline
type State int

const (
	Paused State = iota
	Running
	Finished
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Timeline reveals a trace progressively. It starts paused with nothing
// revealed.
type Timeline struct {
	timer  Timer
	state  State
	cursor int
	events dungeon.Trace
}

// New creates a paused timeline over trace revealing one event per interval.
// A non-positive interval reveals everything on the first update.
func New(trace dungeon.Trace, interval time.Duration) *Timeline {
	return &Timeline{
		timer:  NewTimer(interval),
		events: trace,
	}
}

// State returns the playback state
func (tl *Timeline) State() State { return tl.state }

// Cursor returns the number of events revealed so far
func (tl *Timeline) Cursor() int { return tl.cursor }

// Len returns the total number of events
func (tl *Timeline) Len() int { return len(tl.events) }

// Start begins or resumes playback. A finished timeline stays finished.
func (tl *Timeline) Start() {
	if tl.state == Finished {
		return
	}
	if len(tl.events) == 0 {
		tl.state = Finished
		return
	}
	tl.state = Running
}

// Pause halts playback, keeping what has been revealed
func (tl *Timeline) Pause() {
	if tl.state == Running {
		tl.state = Paused
	}
}

// Toggle flips between running and paused
func (tl *Timeline) Toggle() {
	switch tl.state {
	case Running:
		tl.Pause()
	case Paused:
		tl.Start()
	}
}

// Reset rewinds to the first event and pauses
func (tl *Timeline) Reset() {
	tl.cursor = 0
	tl.timer.Current = 0
	tl.state = Paused
}

// Skip reveals every remaining event
func (tl *Timeline) Skip() {
	tl.cursor = len(tl.events)
	tl.state = Finished
}

// Update advances playback by delta and returns how many events it
// revealed. Each full interval reveals one event; leftover time carries into
// the next update.
func (tl *Timeline) Update(delta time.Duration) int {
	if tl.state != Running {
		return 0
	}
	if tl.timer.Target <= 0 {
		revealed := len(tl.events) - tl.cursor
		tl.Skip()
		return revealed
	}

	tl.timer.Tick(delta)
	revealed := 0
	for tl.timer.Finished() && tl.cursor < len(tl.events) {
		tl.cursor++
		revealed++
		tl.timer.RollOver()
	}
	if tl.cursor == len(tl.events) {
		tl.state = Finished
	}
	return revealed
}

// Visible returns the revealed prefix of the trace
func (tl *Timeline) Visible() dungeon.Trace {
	if tl.state == Finished {
		return tl.events
	}
	return tl.events[:tl.cursor]
}

// Apply replays the revealed prefix into g
func (tl *Timeline) Apply(g *dungeon.Grid) error {
	return tl.Visible().ApplyTo(g, len(tl.Visible()))
}
