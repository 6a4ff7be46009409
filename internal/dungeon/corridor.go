package dungeon

// Corridor is the ordered set of cells reached by one walk
type Corridor []int

// Touches reports whether any member cell is 4-adjacent to one of the
// given indices.
func (c Corridor) Touches(g *Grid, targets map[int]bool) bool {
	for _, cell := range c {
		for _, adj := range g.Adjacent(cell) {
			if targets[adj] {
				return true
			}
		}
	}
	return false
}

// Seeds returns every cell that is not room-type and has no room-type cell
// among its 8 neighbours, in index order.
func Seeds(g *Grid) []int {
	var seeds []int
	for idx, kind := range g.Kinds {
		if kind.IsRoomType() {
			continue
		}
		if g.isAdjacentToRoom(idx) {
			continue
		}
		seeds = append(seeds, idx)
	}
	return seeds
}

// CorridorCarver grows bounded, branch-pruned walks through empty space
type CorridorCarver struct {
	MaxLength int

	visited []bool
}

// NewCorridorCarver creates a carver whose walks stop at maxLength cells
func NewCorridorCarver(maxLength int) *CorridorCarver {
	return &CorridorCarver{MaxLength: maxLength}
}

type walkFrame struct {
	cell      int
	neighbors []int
	next      int
}

// Walk explores from seed depth-first over 4-neighbours and returns the
// visited cells. The grid is only read. The result is empty when the seed
// itself is rejected.
func (c *CorridorCarver) Walk(g *Grid, seed int) Corridor {
	if len(c.visited) != g.Len() {
		c.visited = make([]bool, g.Len())
	}

	var corridor Corridor
	defer func() {
		for _, cell := range corridor {
			c.visited[cell] = false
		}
	}()

	enter := func(cell int) bool {
		if len(corridor) >= c.MaxLength {
			return false
		}
		if g.Kinds[cell].IsRoomType() || g.isAdjacentToRoom(cell) {
			return false
		}
		c.visited[cell] = true
		corridor = append(corridor, cell)
		return true
	}

	if seed < 0 || seed >= g.Len() || !enter(seed) {
		return nil
	}

	stack := []*walkFrame{{cell: seed, neighbors: g.Adjacent(seed)}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.neighbors) {
			stack = stack[:len(stack)-1]
			continue
		}
		adj := top.neighbors[top.next]
		top.next++

		if c.visited[adj] {
			continue
		}
		if c.touchesVisited(g, adj, top.cell) {
			continue
		}
		if g.isAdjacentToRoom(adj) {
			continue
		}
		if enter(adj) {
			stack = append(stack, &walkFrame{cell: adj, neighbors: g.Adjacent(adj)})
		}
	}

	return corridor
}

// touchesVisited is the branch-pruning rule: a cell may only join the walk
// through the cell it is entered from.
func (c *CorridorCarver) touchesVisited(g *Grid, cell, from int) bool {
	for _, n := range g.Adjacent(cell) {
		if n != from && c.visited[n] {
			return true
		}
	}
	return false
}
