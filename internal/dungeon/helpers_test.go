package dungeon

import "testing"

// scriptedSource replays fixed draws. When a queue runs dry it returns 0.
type scriptedSource struct {
	ints   []int
	floats []float64
}

func (s *scriptedSource) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func newTestGrid(t *testing.T, width, height int) *Grid {
	t.Helper()
	g, err := NewGrid(width, height)
	if err != nil {
		t.Fatalf("NewGrid(%d, %d) failed: %v", width, height, err)
	}
	return g
}

func stampRoom(t *testing.T, g *Grid, r Room) {
	t.Helper()
	cells, err := r.Cells(g)
	if err != nil {
		t.Fatalf("room %s does not fit: %v", r, err)
	}
	for _, idx := range cells {
		g.Kinds[idx] = TileFloor
	}
}

func mustIndex(t *testing.T, g *Grid, x, y int) int {
	t.Helper()
	idx, err := g.Index(x, y)
	if err != nil {
		t.Fatalf("Index(%d, %d) failed: %v", x, y, err)
	}
	return idx
}
