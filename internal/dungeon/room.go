package dungeon

import "fmt"

// Shape is an allowed room size from the catalog
type Shape struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultShapes is the built-in room catalog
func DefaultShapes() []Shape {
	return []Shape{
		{Width: 5, Height: 5},
		{Width: 5, Height: 7},
	}
}

// Room is an axis-aligned rectangle of floor; X, Y is the top-left cell
type Room struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Right returns the exclusive right edge
func (r Room) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge
func (r Room) Bottom() int { return r.Y + r.Height }

// Intersects reports whether two rooms overlap. Rooms that only share an
// edge do not intersect.
func (r Room) Intersects(other Room) bool {
	return r.X < other.Right() && r.Right() > other.X &&
		r.Y < other.Bottom() && r.Bottom() > other.Y
}

// Contains reports whether (x, y) lies inside the room
func (r Room) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Cells returns the grid indices covered by the room, row by row
func (r Room) Cells(g *Grid) ([]int, error) {
	cells := make([]int, 0, r.Width*r.Height)
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			idx, err := g.Index(x, y)
			if err != nil {
				return nil, err
			}
			cells = append(cells, idx)
		}
	}
	return cells, nil
}

func (r Room) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.Width, r.Height, r.X, r.Y)
}

// RoomPlacer places non-overlapping rooms by rejection sampling
type RoomPlacer struct {
	Shapes []Shape
	// Attempts is the number of positions tried per shape draw
	Attempts int
	// Rounds is the number of shape draws per room before giving up
	Rounds int
	// GridWidth and GridHeight bound the room's far edge
	GridWidth, GridHeight int

	rng Source
}

// NewRoomPlacer creates a placer for a grid of the given size
func NewRoomPlacer(cfg *Config, gridWidth, gridHeight int, rng Source) *RoomPlacer {
	return &RoomPlacer{
		Shapes:     cfg.Shapes,
		Attempts:   cfg.RoomAttempts,
		Rounds:     cfg.PlacementRounds,
		GridWidth:  gridWidth,
		GridHeight: gridHeight,
		rng:        rng,
	}
}

// PlaceRooms returns count rooms with top-left corners sampled inside
// [0, boundsW) x [0, boundsH). If a room cannot be placed the rooms found so
// far are returned together with an error wrapping ErrPlacementExhausted.
func (p *RoomPlacer) PlaceRooms(count, boundsW, boundsH int) ([]Room, error) {
	if len(p.Shapes) == 0 || boundsW <= 0 || boundsH <= 0 {
		return nil, fmt.Errorf("%w: no shapes or empty bounds", ErrInvalidConfig)
	}

	placed := make([]Room, 0, count)
	for len(placed) < count {
		room, ok := p.placeOne(placed, boundsW, boundsH)
		if !ok {
			return placed, fmt.Errorf("%w: placed %d of %d rooms after %d rounds of %d attempts",
				ErrPlacementExhausted, len(placed), count, p.Rounds, p.Attempts)
		}
		placed = append(placed, room)
	}
	return placed, nil
}

// placeOne draws a shape and tries positions for it, redrawing the shape
// when the attempt budget runs out.
func (p *RoomPlacer) placeOne(placed []Room, boundsW, boundsH int) (Room, bool) {
	for round := 0; round < p.Rounds; round++ {
		shape := p.Shapes[p.rng.Intn(len(p.Shapes))]
		for attempt := 0; attempt < p.Attempts; attempt++ {
			room := Room{
				X:      p.rng.Intn(boundsW),
				Y:      p.rng.Intn(boundsH),
				Width:  shape.Width,
				Height: shape.Height,
			}
			if !p.fits(room) {
				continue
			}
			if overlapsAny(room, placed) {
				continue
			}
			return room, true
		}
	}
	return Room{}, false
}

// fits applies the strictly-less extent rule: a room whose far edge lands
// exactly on the grid extent is rejected.
func (p *RoomPlacer) fits(r Room) bool {
	return r.Right() < p.GridWidth && r.Bottom() < p.GridHeight
}

func overlapsAny(r Room, rooms []Room) bool {
	for _, other := range rooms {
		if r.Intersects(other) {
			return true
		}
	}
	return false
}
