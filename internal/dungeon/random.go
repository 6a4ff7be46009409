package dungeon

import "math/rand"

// Source supplies the uniform draws the generator consumes.
// *rand.Rand satisfies it.
type Source interface {
	// Intn returns a uniform int in [0, n)
	Intn(n int) int
	// Float64 returns a uniform float in [0, 1)
	Float64() float64
}

// NewSource returns a seeded Source. Two sources with the same seed yield
// the same draws, and therefore the same dungeon.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// intRange returns a uniform int in [lo, hi]
func intRange(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}
