package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/G0KU0/Nebulous/internal/persistence/accounts"
	persistlog "github.com/G0KU0/Nebulous/internal/persistence/log"
	"github.com/G0KU0/Nebulous/internal/sim/tuning"
	"github.com/G0KU0/Nebulous/internal/sim/world"
	"github.com/G0KU0/Nebulous/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		dbPath     = flag.String("db", "", "account db path (default: <data>/accounts.db)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "world rng seed")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	db := strings.TrimSpace(*dbPath)
	if db == "" {
		db = filepath.Join(*dataDir, "accounts.db")
	}
	store, err := accounts.Open(db)
	if err != nil {
		logger.Fatalf("open account store: %v", err)
	}
	defer store.Close()

	w := world.New(world.Config{
		MapSize:       tune.MapSize,
		TickMs:        tune.TickMs,
		Seed:          *seed,
		FoodTarget:    tune.FoodTarget,
		FoodBatch:     tune.FoodBatch,
		InitialFood:   tune.InitialFood,
		StartRadius:   tune.StartRadius,
		GrowthPerFood: tune.GrowthPerFood,
		XPPerFood:     tune.XPPerFood,
		ScorePerFood:  tune.ScorePerFood,
		BaseSpeed:     tune.BaseSpeed,
		MinSpeed:      tune.MinSpeed,
		SizeDamping:   tune.SizeDamping,
		InputDeadZone: tune.InputDeadZone,
	}, logger)

	sessionLog := persistlog.NewSessionLogger(*dataDir)
	defer sessionLog.Close()
	w.SetSessionLogger(sessionLog)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP nebulous_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE nebulous_world_tick counter\n")
		fmt.Fprintf(rw, "nebulous_world_tick %d\n", m.Tick)

		fmt.Fprintf(rw, "# HELP nebulous_world_players Current number of live players.\n")
		fmt.Fprintf(rw, "# TYPE nebulous_world_players gauge\n")
		fmt.Fprintf(rw, "nebulous_world_players %d\n", m.Players)

		fmt.Fprintf(rw, "# HELP nebulous_world_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE nebulous_world_clients gauge\n")
		fmt.Fprintf(rw, "nebulous_world_clients %d\n", m.Clients)

		fmt.Fprintf(rw, "# HELP nebulous_world_food Current pellet count.\n")
		fmt.Fprintf(rw, "# TYPE nebulous_world_food gauge\n")
		fmt.Fprintf(rw, "nebulous_world_food %d\n", m.Food)

		fmt.Fprintf(rw, "# HELP nebulous_world_dropped_frames Broadcast frames dropped for slow clients.\n")
		fmt.Fprintf(rw, "# TYPE nebulous_world_dropped_frames counter\n")
		fmt.Fprintf(rw, "nebulous_world_dropped_frames %d\n", m.DroppedFrames)

		fmt.Fprintf(rw, "# HELP nebulous_world_broadcast_ms Last broadcast duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE nebulous_world_broadcast_ms gauge\n")
		fmt.Fprintf(rw, "nebulous_world_broadcast_ms %.3f\n", m.BroadcastMS)

		fmt.Fprintf(rw, "# HELP nebulous_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE nebulous_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "nebulous_world_queue_depth{queue=%q} %d\n", "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "nebulous_world_queue_depth{queue=%q} %d\n", "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "nebulous_world_queue_depth{queue=%q} %d\n", "leave", m.QueueDepths.Leave)
		fmt.Fprintf(rw, "nebulous_world_queue_depth{queue=%q} %d\n", "skin", m.QueueDepths.Skin)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, store, tune.StarterSkinID, tune.ClientQueueLen, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
