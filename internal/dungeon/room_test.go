package dungeon

import (
	"errors"
	"testing"
)

func TestRoomIntersects(t *testing.T) {
	base := Room{X: 0, Y: 0, Width: 5, Height: 5}

	tests := []struct {
		name  string
		other Room
		want  bool
	}{
		{"overlapping", Room{X: 2, Y: 2, Width: 5, Height: 5}, true},
		{"contained", Room{X: 1, Y: 1, Width: 2, Height: 2}, true},
		{"touching right edge", Room{X: 5, Y: 0, Width: 5, Height: 5}, false},
		{"touching bottom edge", Room{X: 0, Y: 5, Width: 5, Height: 5}, false},
		{"touching corner", Room{X: 5, Y: 5, Width: 5, Height: 5}, false},
		{"separate", Room{X: 10, Y: 10, Width: 5, Height: 7}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Intersects(tc.other); got != tc.want {
				t.Errorf("Intersects(%s) = %v, want %v", tc.other, got, tc.want)
			}
			if got := tc.other.Intersects(base); got != tc.want {
				t.Errorf("reverse Intersects(%s) = %v, want %v", tc.other, got, tc.want)
			}
		})
	}
}

func TestRoomContains(t *testing.T) {
	r := Room{X: 2, Y: 3, Width: 5, Height: 7}

	if !r.Contains(2, 3) || !r.Contains(6, 9) {
		t.Error("room should contain its corners")
	}
	if r.Contains(7, 3) || r.Contains(2, 10) || r.Contains(1, 3) {
		t.Error("room should not contain cells past its edges")
	}
}

func TestPlaceRoomsNoOverlap(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		placer := NewRoomPlacer(DefaultConfig(), 64, 64, NewSource(seed))
		rooms, err := placer.PlaceRooms(10, 64, 64)
		if err != nil {
			t.Fatalf("seed=%d: PlaceRooms failed: %v", seed, err)
		}
		if len(rooms) != 10 {
			t.Fatalf("seed=%d: got %d rooms, want 10", seed, len(rooms))
		}

		for i, a := range rooms {
			if a.Right() >= 64 || a.Bottom() >= 64 {
				t.Errorf("seed=%d: room %s reaches the grid extent", seed, a)
			}
			for _, b := range rooms[i+1:] {
				if a.Intersects(b) {
					t.Errorf("seed=%d: rooms %s and %s intersect", seed, a, b)
				}
			}
		}
	}
}

func TestPlaceRoomsRejectsExactExtent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shapes = []Shape{{Width: 5, Height: 5}}
	cfg.RoomAttempts = 2
	cfg.PlacementRounds = 1

	// shape 0, then (5,0): 5+5 == 10 is rejected, then (4,0) fits
	src := &scriptedSource{ints: []int{0, 5, 0, 4, 0}}
	placer := NewRoomPlacer(cfg, 10, 10, src)

	rooms, err := placer.PlaceRooms(1, 10, 10)
	if err != nil {
		t.Fatalf("PlaceRooms failed: %v", err)
	}
	want := Room{X: 4, Y: 0, Width: 5, Height: 5}
	if rooms[0] != want {
		t.Errorf("room = %s, want %s", rooms[0], want)
	}
}

func TestPlaceRoomsExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shapes = []Shape{{Width: 5, Height: 5}}

	// On a 6x6 grid the only legal corner is (0,0), so a second room never fits
	placer := NewRoomPlacer(cfg, 6, 6, NewSource(7))
	rooms, err := placer.PlaceRooms(2, 6, 6)

	if !errors.Is(err, ErrPlacementExhausted) {
		t.Fatalf("error = %v, want ErrPlacementExhausted", err)
	}
	if len(rooms) > 1 {
		t.Errorf("placed %d rooms, want at most 1", len(rooms))
	}
	for _, r := range rooms {
		if r.X != 0 || r.Y != 0 {
			t.Errorf("room = %s, want corner (0,0)", r)
		}
	}
}

func TestPlaceRoomsDoesNotTouchGrid(t *testing.T) {
	g := newTestGrid(t, 32, 32)
	placer := NewRoomPlacer(DefaultConfig(), g.Width, g.Height, NewSource(3))

	if _, err := placer.PlaceRooms(4, g.Width, g.Height); err != nil {
		t.Fatalf("PlaceRooms failed: %v", err)
	}
	if g.Count(TileEmpty) != g.Len() {
		t.Error("PlaceRooms should not mutate the grid")
	}
}
