package dungeon

// Edge identifies one side of a room
type Edge int

const (
	EdgeTop Edge = iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

// String returns the string representation of an Edge
func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	default:
		return "unknown"
	}
}

// AllEdges returns the edges in the order doors are placed
func AllEdges() []Edge {
	return []Edge{EdgeTop, EdgeBottom, EdgeLeft, EdgeRight}
}

// outward returns the unit step pointing away from the room across edge e
func (e Edge) outward() (dx, dy int) {
	switch e {
	case EdgeTop:
		return 0, -1
	case EdgeBottom:
		return 0, 1
	case EdgeLeft:
		return -1, 0
	default:
		return 1, 0
	}
}

// edgeCells returns the room cells lying along edge e
func (r Room) edgeCells(e Edge) [][2]int {
	var cells [][2]int
	switch e {
	case EdgeTop, EdgeBottom:
		y := r.Y
		if e == EdgeBottom {
			y = r.Bottom() - 1
		}
		for x := r.X; x < r.Right(); x++ {
			cells = append(cells, [2]int{x, y})
		}
	case EdgeLeft, EdgeRight:
		x := r.X
		if e == EdgeRight {
			x = r.Right() - 1
		}
		for y := r.Y; y < r.Bottom(); y++ {
			cells = append(cells, [2]int{x, y})
		}
	}
	return cells
}

// DoorCandidates scans one edge of a room. A cell one step outside the edge
// is a candidate when it is not room-type and the cell two steps out is.
func DoorCandidates(g *Grid, r Room, e Edge) []int {
	dx, dy := e.outward()
	var group []int
	for _, c := range r.edgeCells(e) {
		doorX, doorY := c[0]+dx, c[1]+dy
		beyondX, beyondY := c[0]+2*dx, c[1]+2*dy
		if !g.InBounds(doorX, doorY) || !g.InBounds(beyondX, beyondY) {
			continue
		}
		if g.At(doorX, doorY).IsRoomType() || !g.At(beyondX, beyondY).IsRoomType() {
			continue
		}
		group = append(group, doorY*g.Width+doorX)
	}
	return group
}

// DoorPlacer picks at most one door per room edge
type DoorPlacer struct {
	// Chance is the probability a chosen opening is committed as TileDoor
	// rather than TileFloor
	Chance float64

	rng Source
}

// NewDoorPlacer creates a door placer
func NewDoorPlacer(chance float64, rng Source) *DoorPlacer {
	return &DoorPlacer{Chance: chance, rng: rng}
}

// PlaceDoors commits one opening per edge that has candidates and returns
// the committed indices with their trace events.
func (p *DoorPlacer) PlaceDoors(g *Grid, rooms []Room) ([]int, []Event, error) {
	var doors []int
	var events []Event
	for _, r := range rooms {
		for _, e := range AllEdges() {
			group := DoorCandidates(g, r, e)
			if len(group) == 0 {
				continue
			}
			chosen := group[p.rng.Intn(len(group))]
			kind := TileFloor
			if p.rng.Float64() < p.Chance {
				kind = TileDoor
			}
			ev, err := g.commit(chosen, kind)
			if err != nil {
				return doors, events, err
			}
			doors = append(doors, chosen)
			events = append(events, ev)
		}
	}
	return doors, events, nil
}
