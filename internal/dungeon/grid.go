package dungeon

import (
	"fmt"
	"strings"
)

// Grid is the flat tile buffer a dungeon is generated into.
// Cell (x, y) lives at index y*Width + x.
type Grid struct {
	Width, Height int
	Kinds         []TileKind
	Atlas         []AtlasCoord
}

// NewGrid allocates an empty grid of the given size
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	g := &Grid{
		Width:  width,
		Height: height,
		Kinds:  make([]TileKind, width*height),
		Atlas:  make([]AtlasCoord, width*height),
	}
	g.Reset()
	return g, nil
}

// Reset fills every cell with TileEmpty
func (g *Grid) Reset() {
	empty := DefaultPalette().Empty
	for i := range g.Kinds {
		g.Kinds[i] = TileEmpty
		g.Atlas[i] = empty
	}
}

// Len returns the number of cells
func (g *Grid) Len() int {
	return len(g.Kinds)
}

// InBounds reports whether (x, y) is inside the grid
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Index converts a coordinate to a linear index
func (g *Grid) Index(x, y int) (int, error) {
	if !g.InBounds(x, y) {
		return -1, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrInvalidCoordinate, x, y, g.Width, g.Height)
	}
	return y*g.Width + x, nil
}

// Coord converts a linear index back to a coordinate
func (g *Grid) Coord(idx int) (x, y int, err error) {
	if idx < 0 || idx >= g.Len() {
		return 0, 0, fmt.Errorf("%w: index %d in %dx%d", ErrInvalidCoordinate, idx, g.Width, g.Height)
	}
	return idx % g.Width, idx / g.Width, nil
}

// xy is Coord for indices already known to be valid
func (g *Grid) xy(idx int) (int, int) {
	return idx % g.Width, idx / g.Width
}

// At returns the tile kind at (x, y). Off-grid cells read as empty.
func (g *Grid) At(x, y int) TileKind {
	if !g.InBounds(x, y) {
		return TileEmpty
	}
	return g.Kinds[y*g.Width+x]
}

// KindAt returns the tile kind at idx. Invalid indices read as empty.
func (g *Grid) KindAt(idx int) TileKind {
	if idx < 0 || idx >= g.Len() {
		return TileEmpty
	}
	return g.Kinds[idx]
}

// Set writes a tile kind, refusing indices outside the grid
func (g *Grid) Set(idx int, kind TileKind) error {
	if idx < 0 || idx >= g.Len() {
		return fmt.Errorf("%w: index %d in %dx%d", ErrInvalidCoordinate, idx, g.Width, g.Height)
	}
	g.Kinds[idx] = kind
	return nil
}

// Neighbor slots returned by Surrounding, clockwise from the top-left corner.
const (
	NTopLeft = iota
	NTop
	NTopRight
	NRight
	NBottomRight
	NBottom
	NBottomLeft
	NLeft
)

var surroundingOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0},
}

// adjacentOffsets are visited in this order by the corridor walk
var adjacentOffsets = [4][2]int{
	{0, -1}, {-1, 0}, {1, 0}, {0, 1},
}

// Surrounding returns the 8-neighbourhood of idx. Slots for neighbours that
// fall off the grid hold -1; rows never wrap.
func (g *Grid) Surrounding(idx int) [8]int {
	var out [8]int
	x, y := g.xy(idx)
	for i, off := range surroundingOffsets {
		nx, ny := x+off[0], y+off[1]
		if g.InBounds(nx, ny) {
			out[i] = ny*g.Width + nx
		} else {
			out[i] = -1
		}
	}
	return out
}

// Adjacent returns the in-grid 4-neighbours of idx (up, left, right, down)
func (g *Grid) Adjacent(idx int) []int {
	out := make([]int, 0, 4)
	x, y := g.xy(idx)
	for _, off := range adjacentOffsets {
		nx, ny := x+off[0], y+off[1]
		if g.InBounds(nx, ny) {
			out = append(out, ny*g.Width+nx)
		}
	}
	return out
}

// isAdjacentToRoom reports whether any 8-neighbour of idx is room-type
func (g *Grid) isAdjacentToRoom(idx int) bool {
	for _, n := range g.Surrounding(idx) {
		if n >= 0 && g.Kinds[n].IsRoomType() {
			return true
		}
	}
	return false
}

// Count returns how many cells hold the given kind
func (g *Grid) Count(kind TileKind) int {
	n := 0
	for _, k := range g.Kinds {
		if k == kind {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	c := &Grid{
		Width:  g.Width,
		Height: g.Height,
		Kinds:  make([]TileKind, len(g.Kinds)),
		Atlas:  make([]AtlasCoord, len(g.Atlas)),
	}
	copy(c.Kinds, g.Kinds)
	copy(c.Atlas, g.Atlas)
	return c
}

// Layout renders the grid as one string per row using tile glyphs
func (g *Grid) Layout() []string {
	rows := make([]string, g.Height)
	var sb strings.Builder
	for y := 0; y < g.Height; y++ {
		sb.Reset()
		for x := 0; x < g.Width; x++ {
			sb.WriteRune(g.Kinds[y*g.Width+x].Glyph())
		}
		rows[y] = sb.String()
	}
	return rows
}

// ParseLayout builds a grid from rows produced by Layout and resolves its
// atlas with the default palette.
func ParseLayout(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidLayout)
	}
	width := len([]rune(rows[0]))
	g, err := NewGrid(width, len(rows))
	if err != nil {
		return nil, err
	}

	for y, row := range rows {
		runes := []rune(row)
		if len(runes) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidLayout, y, len(runes), width)
		}
		for x, r := range runes {
			kind, ok := kindFromGlyph(r)
			if !ok {
				return nil, fmt.Errorf("%w: unknown glyph %q at (%d,%d)", ErrInvalidLayout, r, x, y)
			}
			g.Kinds[y*width+x] = kind
		}
	}

	ResolveAtlas(g, DefaultPalette())
	return g, nil
}
