package world

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/G0KU0/Nebulous/internal/protocol"
)

type Config struct {
	MapSize float64
	TickMs  int
	Seed    int64

	FoodTarget  int
	FoodBatch   int
	InitialFood int

	StartRadius   float64
	GrowthPerFood float64
	XPPerFood     int64
	ScorePerFood  int64

	BaseSpeed     float64
	MinSpeed      float64
	SizeDamping   float64
	InputDeadZone float64
}

// JoinRequest hydrates an authenticated account into the live world.
// The gateway fills the progression fields from the account store; the
// world picks the spawn position.
type JoinRequest struct {
	SessionID string
	AccountID string
	Username  string
	XP        int64
	Level     int
	SkinID    string

	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Player protocol.PlayerState
}

// LeaveRequest removes a session and reports its final progression so the
// gateway can flush it to the account store off the world goroutine.
type LeaveRequest struct {
	SessionID string
	Resp      chan LeaveSummary
}

type LeaveSummary struct {
	Found     bool
	AccountID string
	Username  string
	XP        int64
	SkinID    string
	Score     int64
}

type InputEnvelope struct {
	SessionID string
	Input     protocol.UpdateInputMsg
}

type SkinChange struct {
	SessionID string
	SkinID    string
	Resp      chan SkinChangeResult
}

type SkinChangeResult struct {
	Found     bool
	AccountID string
}

// SessionLogger records session lifecycle events. Implemented in
// internal/persistence/log.
type SessionLogger interface {
	WriteSession(entry SessionLogEntry) error
}

type SessionLogEntry struct {
	TimeUnixMs int64  `json:"time_unix_ms"`
	Event      string `json:"event"`
	SessionID  string `json:"session_id"`
	Username   string `json:"username"`
	XP         int64  `json:"xp"`
	Score      int64  `json:"score"`
}

// World is the authoritative simulation. All state must be accessed only
// from the world loop goroutine; callers talk to it through the channels.
type World struct {
	cfg Config
	log *log.Logger
	rng *rand.Rand

	tick atomic.Uint64

	players map[string]*Player
	clients map[string]*clientState
	food    []*Food

	nextFoodID uint64

	inbox chan InputEnvelope
	join  chan JoinRequest
	leave chan LeaveRequest
	skin  chan SkinChange
	stop  chan struct{}

	sessionLogger SessionLogger

	droppedFrames atomic.Uint64
	metrics       atomic.Pointer[Metrics]
}

type clientState struct {
	Out chan []byte
}

func New(cfg Config, logger *log.Logger) *World {
	w := &World{
		cfg:     cfg,
		log:     logger,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		players: map[string]*Player{},
		clients: map[string]*clientState{},
		inbox:   make(chan InputEnvelope, 1024),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan LeaveRequest, 64),
		skin:    make(chan SkinChange, 64),
		stop:    make(chan struct{}),
	}
	w.spawnFood(cfg.InitialFood)
	return w
}

func (w *World) SetSessionLogger(l SessionLogger) { w.sessionLogger = l }

func (w *World) Inbox() chan<- InputEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest    { return w.join }
func (w *World) Leave() chan<- LeaveRequest  { return w.leave }
func (w *World) Skin() chan<- SkinChange     { return w.skin }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(w.cfg.TickMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case req := <-w.leave:
			w.handleLeave(req)
		case sc := <-w.skin:
			w.handleSkinChange(sc)
		case env := <-w.inbox:
			w.applyInput(env)
		case <-ticker.C:
			w.broadcast()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// broadcast serializes the whole world once and fans it out to every
// connected client. Slow clients drop frames; the ticker is never stalled.
func (w *World) broadcast() {
	start := time.Now()

	state := w.snapshot()
	b, err := json.Marshal(state)
	if err != nil {
		w.log.Printf("broadcast marshal: %v", err)
		return
	}
	for _, cl := range w.clients {
		if !sendLatest(cl.Out, b) {
			w.droppedFrames.Add(1)
		}
	}

	w.tick.Add(1)
	w.publishMetrics(time.Since(start))
}

func (w *World) snapshot() protocol.GameStateMsg {
	players := make(map[string]protocol.PlayerState, len(w.players))
	for id, p := range w.players {
		players[id] = p.state()
	}
	food := make([]protocol.FoodState, 0, len(w.food))
	for _, f := range w.food {
		food = append(food, protocol.FoodState{ID: f.ID, X: f.X, Y: f.Y, Color: f.Color})
	}
	return protocol.GameStateMsg{Type: protocol.TypeGameState, Players: players, Food: food}
}

// sendLatest tries a non-blocking send; if the channel is full it drops the
// oldest pending frame to make room for the newest one. Reports whether the
// frame was delivered without replacing an older one.
func sendLatest(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return false
}
