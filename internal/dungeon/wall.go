package dungeon

// SynthesizeWalls turns every empty 8-neighbour of a floor cell into a wall
// and returns the new wall indices in ascending order. Door cells do not
// grow walls of their own.
func SynthesizeWalls(g *Grid) []int {
	pending := make([]bool, g.Len())
	for idx, kind := range g.Kinds {
		if kind != TileFloor {
			continue
		}
		for _, n := range g.Surrounding(idx) {
			if n >= 0 && g.Kinds[n] == TileEmpty {
				pending[n] = true
			}
		}
	}

	var walls []int
	for idx, isWall := range pending {
		if isWall {
			g.Kinds[idx] = TileWall
			walls = append(walls, idx)
		}
	}
	return walls
}
