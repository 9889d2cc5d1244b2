// Package components defines ECS components for landscape entities.
package components

// FoodPosition is a food item's fixed landscape position.
type FoodPosition struct {
	X, Y float32
}

// Regrowth tracks a food item's depletion state.
// Counter is the simulated time left until the item regenerates;
// Available is the flag last refreshed by the landscape.
type Regrowth struct {
	Counter   float64
	Available bool
}
