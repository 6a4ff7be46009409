package dungeon

import "fmt"

// Event records one committed tile mutation
type Event struct {
	X    int      `yaml:"x" json:"x"`
	Y    int      `yaml:"y" json:"y"`
	Kind TileKind `yaml:"kind" json:"kind"`
}

// Trace is the ordered log of every committed mutation in one run.
// It is only ever appended to.
type Trace []Event

func (g *Grid) event(idx int, kind TileKind) Event {
	x, y := g.xy(idx)
	return Event{X: x, Y: y, Kind: kind}
}

// commit writes kind at idx and returns the matching trace event
func (g *Grid) commit(idx int, kind TileKind) (Event, error) {
	if err := g.Set(idx, kind); err != nil {
		return Event{}, err
	}
	return g.event(idx, kind), nil
}

// Replay applies the trace to a fresh empty grid. The result holds the same
// tile kinds as the grid the trace was recorded from.
func (t Trace) Replay(width, height int) (*Grid, error) {
	g, err := NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	if err := t.ApplyTo(g, len(t)); err != nil {
		return nil, err
	}
	return g, nil
}

// ApplyTo writes the first n events into g
func (t Trace) ApplyTo(g *Grid, n int) error {
	if n > len(t) {
		n = len(t)
	}
	for i := 0; i < n; i++ {
		e := t[i]
		idx, err := g.Index(e.X, e.Y)
		if err != nil {
			return fmt.Errorf("trace event %d: %w", i, err)
		}
		g.Kinds[idx] = e.Kind
	}
	return nil
}

// Counts tallies events by kind
func (t Trace) Counts() map[TileKind]int {
	counts := make(map[TileKind]int)
	for _, e := range t {
		counts[e.Kind]++
	}
	return counts
}
