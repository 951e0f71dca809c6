package world

// Food is a consumable pellet. IDs come from a monotonic counter so they
// stay unique among live pellets without coordination.
type Food struct {
	ID    uint64
	X     float64
	Y     float64
	Color string
}

var foodPalette = []string{"#ff4d4d", "#4dff4d", "#4d4dff", "#ffff4d", "#ff4dff", "#4dffff"}

func (w *World) spawnFood(count int) {
	for i := 0; i < count; i++ {
		w.nextFoodID++
		w.food = append(w.food, &Food{
			ID:    w.nextFoodID,
			X:     w.rng.Float64() * w.cfg.MapSize,
			Y:     w.rng.Float64() * w.cfg.MapSize,
			Color: foodPalette[w.rng.Intn(len(foodPalette))],
		})
	}
}

// replenish tops the pellet population back up after a consumption pass.
func (w *World) replenish() {
	if len(w.food) < w.cfg.FoodTarget {
		w.spawnFood(w.cfg.FoodBatch)
	}
}

// removeFood drops the pellet with the given id. Safe to call twice; the
// second call is a no-op and reports false.
func (w *World) removeFood(id uint64) bool {
	for i, f := range w.food {
		if f.ID == id {
			w.food = append(w.food[:i], w.food[i+1:]...)
			return true
		}
	}
	return false
}
