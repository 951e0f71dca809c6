package world

import "math"

// LevelForXP maps accumulated experience to a level. Recomputed from xp
// alone at disconnect, so it never drifts from the stored value.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(math.Floor(math.Sqrt(float64(xp)/200))) + 1
}
