package dungeon

// WallShape is the visual variant of a wall chosen from its neighbours
type WallShape int

const (
	WallPillar WallShape = iota // No wall neighbours, uses the fallback sprite
	WallEndLeft                 // Continues only to the right
	WallEndRight                // Continues only to the left
	WallEndTop                  // Continues only downwards
	WallEndBottom               // Continues only upwards
	WallCross
	WallVertical
	WallHorizontal
	WallTeeDown  // Left, right and down
	WallTeeUp    // Left, right and up
	WallTeeLeft  // Up, down and left
	WallTeeRight // Up, down and right
	WallCornerTopLeft
	WallCornerTopRight
	WallCornerBottomLeft
	WallCornerBottomRight
)

var wallShapeNames = map[WallShape]string{
	WallPillar:            "pillar",
	WallEndLeft:           "end_left",
	WallEndRight:          "end_right",
	WallEndTop:            "end_top",
	WallEndBottom:         "end_bottom",
	WallCross:             "cross",
	WallVertical:          "vertical",
	WallHorizontal:        "horizontal",
	WallTeeDown:           "tee_down",
	WallTeeUp:             "tee_up",
	WallTeeLeft:           "tee_left",
	WallTeeRight:          "tee_right",
	WallCornerTopLeft:     "corner_top_left",
	WallCornerTopRight:    "corner_top_right",
	WallCornerBottomLeft:  "corner_bottom_left",
	WallCornerBottomRight: "corner_bottom_right",
}

// String returns the string representation of a WallShape
func (s WallShape) String() string {
	if name, ok := wallShapeNames[s]; ok {
		return name
	}
	return "unknown"
}

// Rune returns a box-drawing character for terminal output
func (s WallShape) Rune() rune {
	switch s {
	case WallEndLeft:
		return '╶'
	case WallEndRight:
		return '╴'
	case WallEndTop:
		return '╷'
	case WallEndBottom:
		return '╵'
	case WallCross:
		return '┼'
	case WallVertical:
		return '│'
	case WallHorizontal:
		return '─'
	case WallTeeDown:
		return '┬'
	case WallTeeUp:
		return '┴'
	case WallTeeLeft:
		return '┤'
	case WallTeeRight:
		return '├'
	case WallCornerTopLeft:
		return '┌'
	case WallCornerTopRight:
		return '┐'
	case WallCornerBottomLeft:
		return '└'
	case WallCornerBottomRight:
		return '┘'
	default:
		return '■'
	}
}

// Mask bits, one per Surrounding slot
const (
	maskTop    = 1 << NTop
	maskRight  = 1 << NRight
	maskBottom = 1 << NBottom
	maskLeft   = 1 << NLeft
)

// wallShapes maps every 8-bit neighbour mask to a shape. Only the four
// cardinal bits select the shape; diagonal bits are carried for callers
// that want them.
var wallShapes = buildWallShapes()

func buildWallShapes() [256]WallShape {
	byCardinals := map[int]WallShape{
		0:                                          WallPillar,
		maskRight:                                  WallEndLeft,
		maskLeft:                                   WallEndRight,
		maskBottom:                                 WallEndTop,
		maskTop:                                    WallEndBottom,
		maskTop | maskRight | maskBottom | maskLeft: WallCross,
		maskTop | maskBottom:                       WallVertical,
		maskLeft | maskRight:                       WallHorizontal,
		maskLeft | maskRight | maskBottom:          WallTeeDown,
		maskLeft | maskRight | maskTop:             WallTeeUp,
		maskTop | maskBottom | maskLeft:            WallTeeLeft,
		maskTop | maskBottom | maskRight:           WallTeeRight,
		maskRight | maskBottom:                     WallCornerTopLeft,
		maskLeft | maskBottom:                      WallCornerTopRight,
		maskTop | maskRight:                        WallCornerBottomLeft,
		maskTop | maskLeft:                         WallCornerBottomRight,
	}

	var table [256]WallShape
	cardinals := maskTop | maskRight | maskBottom | maskLeft
	for mask := 0; mask < 256; mask++ {
		shape, ok := byCardinals[mask&cardinals]
		if !ok {
			shape = WallPillar
		}
		table[mask] = shape
	}
	return table
}

// WallMask returns the 8-bit mask of wall neighbours around idx.
// Off-grid neighbours count as not-wall.
func WallMask(g *Grid, idx int) uint8 {
	var mask uint8
	for slot, n := range g.Surrounding(idx) {
		if n >= 0 && g.Kinds[n] == TileWall {
			mask |= 1 << slot
		}
	}
	return mask
}

// ShapeForMask looks up the wall shape for a neighbour mask
func ShapeForMask(mask uint8) WallShape {
	return wallShapes[mask]
}

// WallShapeAt returns the resolved shape of the wall at idx
func WallShapeAt(g *Grid, idx int) WallShape {
	return wallShapes[WallMask(g, idx)]
}

// Palette assigns atlas sprites to tile kinds and wall shapes
type Palette struct {
	Floor    AtlasCoord               `yaml:"floor"`
	Door     AtlasCoord               `yaml:"door"`
	Empty    AtlasCoord               `yaml:"empty"`
	Fallback AtlasCoord               `yaml:"fallback"`
	Walls    map[WallShape]AtlasCoord `yaml:"-"`
}

// DefaultPalette returns the sprite layout of the bundled dungeon atlas
func DefaultPalette() Palette {
	return Palette{
		Floor:    AtlasCoord{X: 8, Y: 8},
		Door:     AtlasCoord{X: 6, Y: 2},
		Empty:    AtlasCoord{X: 9, Y: 6},
		Fallback: AtlasCoord{X: 8, Y: 0},
		Walls: map[WallShape]AtlasCoord{
			WallCornerTopLeft:     {X: 0, Y: 0},
			WallTeeDown:           {X: 1, Y: 0},
			WallCornerTopRight:    {X: 2, Y: 0},
			WallEndTop:            {X: 3, Y: 0},
			WallTeeRight:          {X: 0, Y: 1},
			WallCross:             {X: 1, Y: 1},
			WallTeeLeft:           {X: 2, Y: 1},
			WallVertical:          {X: 3, Y: 1},
			WallCornerBottomLeft:  {X: 0, Y: 2},
			WallTeeUp:             {X: 1, Y: 2},
			WallCornerBottomRight: {X: 2, Y: 2},
			WallEndBottom:         {X: 3, Y: 2},
			WallEndLeft:           {X: 0, Y: 3},
			WallHorizontal:        {X: 1, Y: 3},
			WallEndRight:          {X: 2, Y: 3},
		},
	}
}

// Wall returns the sprite for a wall shape, or the fallback sprite
func (p Palette) Wall(shape WallShape) AtlasCoord {
	if coord, ok := p.Walls[shape]; ok {
		return coord
	}
	return p.Fallback
}

// ResolveAtlas assigns an atlas coordinate to every cell of g
func ResolveAtlas(g *Grid, p Palette) {
	for idx, kind := range g.Kinds {
		switch kind {
		case TileWall:
			g.Atlas[idx] = p.Wall(WallShapeAt(g, idx))
		case TileFloor:
			g.Atlas[idx] = p.Floor
		case TileDoor:
			g.Atlas[idx] = p.Door
		default:
			g.Atlas[idx] = p.Empty
		}
	}
}
