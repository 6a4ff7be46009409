package dungeon

import "errors"

var (
	ErrInvalidSize        = errors.New("dungeon: invalid grid size")
	ErrInvalidCoordinate  = errors.New("dungeon: coordinate outside grid")
	ErrPlacementExhausted = errors.New("dungeon: room placement attempts exhausted")
	ErrInvalidConfig      = errors.New("dungeon: invalid generator config")
	ErrInvalidLayout      = errors.New("dungeon: invalid layout")
)
