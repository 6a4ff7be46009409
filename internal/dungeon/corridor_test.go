package dungeon

import "testing"

func TestSeedsSkipRoomNeighbourhood(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	stampRoom(t, g, Room{X: 2, Y: 2, Width: 3, Height: 3})

	seeds := make(map[int]bool)
	for _, s := range Seeds(g) {
		seeds[s] = true
	}

	for y := 1; y <= 5; y++ {
		for x := 1; x <= 5; x++ {
			if seeds[mustIndex(t, g, x, y)] {
				t.Errorf("(%d,%d) is a seed but touches the room", x, y)
			}
		}
	}
	if !seeds[mustIndex(t, g, 0, 0)] {
		t.Error("(0,0) should be a seed")
	}
	if !seeds[mustIndex(t, g, 6, 6)] {
		t.Error("(6,6) should be a seed")
	}
}

func TestSeedsFullyCovered(t *testing.T) {
	g := newTestGrid(t, 5, 5)
	stampRoom(t, g, Room{X: 0, Y: 0, Width: 5, Height: 5})

	if seeds := Seeds(g); len(seeds) != 0 {
		t.Errorf("Seeds = %v, want none", seeds)
	}
}

func TestWalkLengthCap(t *testing.T) {
	for _, max := range []int{1, 4, 15} {
		g := newTestGrid(t, 20, 20)
		c := NewCorridorCarver(max).Walk(g, 0)
		if len(c) != max {
			t.Errorf("max=%d: walk length = %d, want %d", max, len(c), max)
		}
	}
}

func TestWalkIsATree(t *testing.T) {
	g := newTestGrid(t, 12, 12)
	c := NewCorridorCarver(80).Walk(g, mustIndex(t, g, 5, 5))
	if len(c) < 2 {
		t.Fatalf("walk too short: %d", len(c))
	}

	members := make(map[int]bool)
	for _, cell := range c {
		if members[cell] {
			t.Fatalf("cell %d visited twice", cell)
		}
		members[cell] = true
	}

	// Branch pruning means every cell joined through exactly one neighbour,
	// so the member adjacency graph has len-1 edges
	edges := 0
	for _, cell := range c {
		for _, adj := range g.Adjacent(cell) {
			if adj > cell && members[adj] {
				edges++
			}
		}
	}
	if edges != len(c)-1 {
		t.Errorf("walk has %d adjacent pairs over %d cells, want %d", edges, len(c), len(c)-1)
	}
}

func TestWalkRejectsRoomNeighbourhood(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	stampRoom(t, g, Room{X: 2, Y: 2, Width: 3, Height: 3})
	carver := NewCorridorCarver(15)

	if c := carver.Walk(g, mustIndex(t, g, 3, 3)); c != nil {
		t.Errorf("walk from room cell = %v, want nil", c)
	}
	if c := carver.Walk(g, mustIndex(t, g, 5, 5)); c != nil {
		t.Errorf("walk from diagonal neighbour = %v, want nil", c)
	}

	c := carver.Walk(g, mustIndex(t, g, 8, 8))
	for _, cell := range c {
		if g.isAdjacentToRoom(cell) || g.Kinds[cell].IsRoomType() {
			x, y, _ := g.Coord(cell)
			t.Errorf("walk entered (%d,%d) next to the room", x, y)
		}
	}
	if g.Count(TileFloor) != 9 {
		t.Error("Walk should not mutate the grid")
	}
}

func TestWalkReusesCarver(t *testing.T) {
	g := newTestGrid(t, 20, 20)
	carver := NewCorridorCarver(15)

	first := carver.Walk(g, 0)
	second := carver.Walk(g, 0)
	if len(first) != len(second) {
		t.Fatalf("walk lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("walks diverge at step %d", i)
		}
	}
}

func TestCorridorBridgesGapBetweenRooms(t *testing.T) {
	g := newTestGrid(t, 16, 8)
	left := Room{X: 1, Y: 1, Width: 5, Height: 5}
	right := Room{X: 9, Y: 1, Width: 5, Height: 5}
	stampRoom(t, g, left)
	stampRoom(t, g, right)

	// Columns 6..8 form the gap; only column 7 is clear of both rooms
	seed := mustIndex(t, g, 7, 3)
	found := false
	for _, s := range Seeds(g) {
		if s == seed {
			found = true
		}
	}
	if !found {
		t.Fatal("(7,3) should be a seed inside the gap")
	}

	c := NewCorridorCarver(15).Walk(g, seed)
	if len(c) == 0 || len(c) > 15 {
		t.Fatalf("walk length = %d, want 1..15", len(c))
	}
	for _, cell := range c {
		g.Kinds[cell] = TileFloor
	}

	for y := left.Y; y < left.Bottom(); y++ {
		if g.At(7, y) != TileFloor {
			t.Errorf("corridor should run through (7,%d)", y)
		}
	}

	if cands := DoorCandidates(g, left, EdgeRight); len(cands) == 0 {
		t.Error("left room's right edge should have door candidates")
	}
	if cands := DoorCandidates(g, right, EdgeLeft); len(cands) == 0 {
		t.Error("right room's left edge should have door candidates")
	}
}
