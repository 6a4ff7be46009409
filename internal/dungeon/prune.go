package dungeon

// PruneCorridors reverts every corridor that does not touch a door back to
// empty. Corridors with at least one member 4-adjacent to a door are kept.
func PruneCorridors(g *Grid, corridors []Corridor, doors []int) (kept, discarded []Corridor, events []Event, err error) {
	doorSet := make(map[int]bool, len(doors))
	for _, d := range doors {
		doorSet[d] = true
	}

	for _, c := range corridors {
		if c.Touches(g, doorSet) {
			kept = append(kept, c)
			continue
		}
		discarded = append(discarded, c)
		for _, cell := range c {
			ev, err := g.commit(cell, TileEmpty)
			if err != nil {
				return kept, discarded, events, err
			}
			events = append(events, ev)
		}
	}
	return kept, discarded, events, nil
}
