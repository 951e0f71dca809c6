package world

import "github.com/G0KU0/Nebulous/internal/protocol"

// Player is the live, per-connection entry. It exists only while its
// session is connected; progression is flushed back to the account store
// on disconnect.
type Player struct {
	SessionID string
	AccountID string
	Username  string

	XP     int64
	Level  int
	SkinID string
	Score  int64

	// Blobs is non-empty; today every player has exactly one.
	Blobs []*Blob
}

// Blob is a single growable avatar circle. Owned exclusively by its player.
type Blob struct {
	X float64
	Y float64
	R float64
}

func (p *Player) state() protocol.PlayerState {
	blobs := make([]protocol.BlobState, 0, len(p.Blobs))
	for _, b := range p.Blobs {
		blobs = append(blobs, protocol.BlobState{X: b.X, Y: b.Y, R: b.R})
	}
	return protocol.PlayerState{
		ID:       p.SessionID,
		Username: p.Username,
		XP:       p.XP,
		Level:    p.Level,
		SkinID:   p.SkinID,
		Score:    p.Score,
		Blobs:    blobs,
	}
}
