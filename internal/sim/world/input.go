package world

import (
	"math"

	"github.com/G0KU0/Nebulous/internal/protocol"
)

// applyInput integrates one player's latest pointer intent and resolves
// food consumption. Input from unknown sessions has no effect; the client
// is never told either way.
func (w *World) applyInput(env InputEnvelope) {
	p := w.players[env.SessionID]
	if p == nil {
		return
	}
	in := env.Input
	if !finite(in.MX) || !finite(in.MY) || !finite(in.VW) || !finite(in.VH) {
		return
	}

	for _, blob := range p.Blobs {
		w.moveBlob(blob, in)
		w.consumeFood(p, blob)
	}
	w.replenish()
}

func (w *World) moveBlob(b *Blob, in protocol.UpdateInputMsg) {
	dx := in.MX - in.VW/2
	dy := in.MY - in.VH/2
	dist := math.Hypot(dx, dy)

	if dist > w.cfg.InputDeadZone {
		// Bigger blobs are slower, down to a floor.
		speed := math.Max(w.cfg.MinSpeed, w.cfg.BaseSpeed-b.R/w.cfg.SizeDamping)
		b.X += dx / dist * speed
		b.Y += dy / dist * speed
	}

	b.X = clamp(b.X, 0, w.cfg.MapSize)
	b.Y = clamp(b.Y, 0, w.cfg.MapSize)
}

// consumeFood eats every pellet whose center lies inside the blob.
// Pellets are filtered in place so each one can be claimed at most once;
// blobs of the same player run in array order against whatever is left.
func (w *World) consumeFood(p *Player, b *Blob) {
	kept := w.food[:0]
	for _, f := range w.food {
		if math.Hypot(f.X-b.X, f.Y-b.Y) < b.R {
			b.R += w.cfg.GrowthPerFood
			p.XP += w.cfg.XPPerFood
			p.Score += w.cfg.ScorePerFood
			continue
		}
		kept = append(kept, f)
	}
	// Zero the tail so consumed pellets do not pin memory.
	for i := len(kept); i < len(w.food); i++ {
		w.food[i] = nil
	}
	w.food = kept
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
