package dungeon

import "fmt"

// TileKind represents what occupies a single grid cell
type TileKind int

const (
	TileEmpty TileKind = iota // Unused background
	TileFloor                 // Walkable, inside a room or corridor
	TileWall                  // Solid, bounds floor
	TileDoor                  // Passable connector between a room and the outside
)

// String returns the string representation of a TileKind
func (k TileKind) String() string {
	switch k {
	case TileEmpty:
		return "empty"
	case TileFloor:
		return "floor"
	case TileWall:
		return "wall"
	case TileDoor:
		return "door"
	default:
		return "unknown"
	}
}

// Glyph returns the layout character used when a grid is serialized
func (k TileKind) Glyph() rune {
	switch k {
	case TileFloor:
		return '.'
	case TileWall:
		return '#'
	case TileDoor:
		return '+'
	default:
		return ' '
	}
}

// IsRoomType reports whether the tile counts as part of a structure.
// Corridor search and door placement treat these cells as occupied.
func (k TileKind) IsRoomType() bool {
	return k == TileFloor || k == TileWall
}

// IsPassable reports whether the tile can be walked on
func (k TileKind) IsPassable() bool {
	return k == TileFloor || k == TileDoor
}

// ParseTileKind is the inverse of String
func ParseTileKind(s string) (TileKind, bool) {
	switch s {
	case "empty":
		return TileEmpty, true
	case "floor":
		return TileFloor, true
	case "wall":
		return TileWall, true
	case "door":
		return TileDoor, true
	}
	return TileEmpty, false
}

// MarshalText encodes the kind by name
func (k TileKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText
func (k *TileKind) UnmarshalText(text []byte) error {
	kind, ok := ParseTileKind(string(text))
	if !ok {
		return fmt.Errorf("unknown tile kind %q", text)
	}
	*k = kind
	return nil
}

// kindFromGlyph is the inverse of Glyph
func kindFromGlyph(r rune) (TileKind, bool) {
	switch r {
	case ' ':
		return TileEmpty, true
	case '.':
		return TileFloor, true
	case '#':
		return TileWall, true
	case '+':
		return TileDoor, true
	}
	return TileEmpty, false
}

// AtlasCoord addresses a sprite in the renderer's tile atlas
type AtlasCoord struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}
