package world

import "time"

type Metrics struct {
	Tick          uint64      `json:"tick"`
	Players       int         `json:"players"`
	Clients       int         `json:"clients"`
	Food          int         `json:"food"`
	DroppedFrames uint64      `json:"dropped_frames"`
	BroadcastMS   float64     `json:"broadcast_ms"`
	QueueDepths   QueueDepths `json:"queue_depths"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
	Skin  int `json:"skin"`
}

// publishMetrics runs on the world goroutine after each broadcast.
func (w *World) publishMetrics(broadcastDur time.Duration) {
	m := &Metrics{
		Tick:          w.tick.Load(),
		Players:       len(w.players),
		Clients:       len(w.clients),
		Food:          len(w.food),
		DroppedFrames: w.droppedFrames.Load(),
		BroadcastMS:   float64(broadcastDur.Microseconds()) / 1000,
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
			Skin:  len(w.skin),
		},
	}
	w.metrics.Store(m)
}

// Metrics returns the last published snapshot. Safe from any goroutine.
func (w *World) Metrics() Metrics {
	if m := w.metrics.Load(); m != nil {
		return *m
	}
	return Metrics{}
}
