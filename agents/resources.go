package agents

// Resources is the food landscape a population forages on.
// landscape.Landscape is the standard implementation.
type Resources interface {
	// CountAvailable refreshes item availability.
	CountAvailable()
	// Deplete runs down regeneration counters by elapsed simulated time.
	Deplete(elapsed float64)
	// Nearby appends available item ids within r of (x, y) to dst.
	Nearby(dst []int, x, y, r float32) []int
	// Position returns the position of item id.
	Position(id int) (x, y float32)
	// Consume removes item id from availability; false if it was already taken.
	Consume(id int) bool
	// Size returns the side length of the square landscape.
	Size() float32
}
