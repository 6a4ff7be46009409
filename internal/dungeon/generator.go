package dungeon

import (
	"fmt"

	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
)

// Config contains the rules for one generation run
type Config struct {
	MinRooms          int     // Minimum number of rooms to place
	MaxRooms          int     // Maximum number of rooms to place (inclusive)
	RoomAttempts      int     // Positions tried per shape draw
	PlacementRounds   int     // Shape draws per room before giving up
	CorridorMaxLength int     // Cap on cells per corridor walk
	DoorChance        float64 // Probability an opening is a door rather than floor
	Shapes            []Shape // Room catalog
	Palette           Palette // Atlas sprites for the autotiler
}

// DefaultConfig returns the standard generation rules
func DefaultConfig() *Config {
	return &Config{
		MinRooms:          8,
		MaxRooms:          11,
		RoomAttempts:      50,
		PlacementRounds:   20,
		CorridorMaxLength: 15,
		DoorChance:        0.5,
		Shapes:            DefaultShapes(),
		Palette:           DefaultPalette(),
	}
}

// Validate reports the first rule that would stop a run from terminating
// or from producing anything
func (c *Config) Validate() error {
	switch {
	case c.MinRooms < 0 || c.MaxRooms < c.MinRooms:
		return fmt.Errorf("%w: room count range %d..%d", ErrInvalidConfig, c.MinRooms, c.MaxRooms)
	case c.RoomAttempts <= 0:
		return fmt.Errorf("%w: room attempts must be positive, got %d", ErrInvalidConfig, c.RoomAttempts)
	case c.PlacementRounds <= 0:
		return fmt.Errorf("%w: placement rounds must be positive, got %d", ErrInvalidConfig, c.PlacementRounds)
	case c.CorridorMaxLength <= 0:
		return fmt.Errorf("%w: corridor max length must be positive, got %d", ErrInvalidConfig, c.CorridorMaxLength)
	case c.DoorChance < 0 || c.DoorChance > 1:
		return fmt.Errorf("%w: door chance %v outside [0,1]", ErrInvalidConfig, c.DoorChance)
	case len(c.Shapes) == 0:
		return fmt.Errorf("%w: empty room catalog", ErrInvalidConfig)
	}
	for _, s := range c.Shapes {
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("%w: room shape %dx%d", ErrInvalidConfig, s.Width, s.Height)
		}
	}
	return nil
}

// Result is everything one run produced besides the grid itself
type Result struct {
	Rooms     []Room
	Corridors []Corridor // Corridors that survived pruning
	Discarded []Corridor // Corridors reverted to empty
	Doors     []int
	Walls     []int
	Trace     Trace
}

// Generator runs the dungeon pipeline against a grid
type Generator struct {
	config *Config
	rng    Source
}

// NewGenerator creates a generator that draws from rng
func NewGenerator(config *Config, rng Source) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Generator{config: config, rng: rng}
}

// Config returns the rules the generator runs with
func (g *Generator) Config() *Config {
	return g.config
}

// Generate resets grid and fills it with rooms, corridors, doors and walls.
// The grid is mutated in place; the returned trace lists every committed
// change in order.
func (g *Generator) Generate(grid *Grid) (*Result, error) {
	if err := g.config.Validate(); err != nil {
		return nil, err
	}
	if grid == nil || grid.Len() == 0 {
		return nil, ErrInvalidSize
	}

	grid.Reset()
	res := &Result{}

	count := intRange(g.rng, g.config.MinRooms, g.config.MaxRooms)
	rooms, err := g.placeRooms(grid, count)
	if err != nil {
		return nil, err
	}
	res.Rooms = rooms
	if err := g.stampRooms(grid, res); err != nil {
		return nil, err
	}
	logger.Debug("Rooms placed", "requested", count, "placed", len(rooms))

	corridors, err := g.carveCorridors(grid, res)
	if err != nil {
		return nil, err
	}
	logger.Debug("Corridors carved", "count", len(corridors))

	doors, events, err := NewDoorPlacer(g.config.DoorChance, g.rng).PlaceDoors(grid, rooms)
	if err != nil {
		return nil, err
	}
	res.Doors = doors
	res.Trace = append(res.Trace, events...)
	logger.Debug("Doors placed", "count", len(doors))

	kept, discarded, events, err := PruneCorridors(grid, corridors, doors)
	if err != nil {
		return nil, err
	}
	res.Corridors = kept
	res.Discarded = discarded
	res.Trace = append(res.Trace, events...)
	logger.Debug("Corridors pruned", "kept", len(kept), "discarded", len(discarded))

	res.Walls = SynthesizeWalls(grid)
	for _, w := range res.Walls {
		res.Trace = append(res.Trace, grid.event(w, TileWall))
	}
	ResolveAtlas(grid, g.config.Palette)

	logger.Info("Dungeon generated",
		"width", grid.Width,
		"height", grid.Height,
		"rooms", len(res.Rooms),
		"corridors", len(res.Corridors),
		"doors", len(res.Doors),
		"walls", len(res.Walls),
		"events", len(res.Trace))

	return res, nil
}

// placeRooms samples top-left corners anywhere on the grid; the placer's
// extent rule keeps every room inside it.
func (g *Generator) placeRooms(grid *Grid, count int) ([]Room, error) {
	placer := NewRoomPlacer(g.config, grid.Width, grid.Height, g.rng)
	rooms, err := placer.PlaceRooms(count, grid.Width, grid.Height)
	if err != nil {
		return nil, fmt.Errorf("placing %d rooms on %dx%d grid: %w", count, grid.Width, grid.Height, err)
	}
	return rooms, nil
}

// stampRooms commits each room's footprint as floor
func (g *Generator) stampRooms(grid *Grid, res *Result) error {
	for _, r := range res.Rooms {
		cells, err := r.Cells(grid)
		if err != nil {
			return fmt.Errorf("stamping room %s: %w", r, err)
		}
		for _, idx := range cells {
			ev, err := grid.commit(idx, TileFloor)
			if err != nil {
				return err
			}
			res.Trace = append(res.Trace, ev)
		}
	}
	return nil
}

// carveCorridors walks from every seed, committing each corridor before the
// next walk so later corridors keep their distance from earlier ones.
func (g *Generator) carveCorridors(grid *Grid, res *Result) ([]Corridor, error) {
	carver := NewCorridorCarver(g.config.CorridorMaxLength)
	var corridors []Corridor
	for _, seed := range Seeds(grid) {
		corridor := carver.Walk(grid, seed)
		if len(corridor) == 0 {
			continue
		}
		for _, idx := range corridor {
			ev, err := grid.commit(idx, TileFloor)
			if err != nil {
				return nil, err
			}
			res.Trace = append(res.Trace, ev)
		}
		corridors = append(corridors, corridor)
	}
	return corridors, nil
}

// Generate is a convenience wrapper: allocate a grid, seed a source and run
// the default rules once.
func Generate(width, height int, seed int64) (*Grid, *Result, error) {
	grid, err := NewGrid(width, height)
	if err != nil {
		return nil, nil, err
	}
	res, err := NewGenerator(DefaultConfig(), NewSource(seed)).Generate(grid)
	if err != nil {
		return nil, nil, err
	}
	return grid, res, nil
}
