package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/G0KU0/Nebulous/internal/persistence/accounts"
	"github.com/G0KU0/Nebulous/internal/protocol"
	"github.com/G0KU0/Nebulous/internal/sim/world"
	"github.com/G0KU0/Nebulous/internal/transport/ws"
)

type gatewayFixture struct {
	store *accounts.Store
	world *world.World
	srv   *httptest.Server
}

func startGateway(t *testing.T) *gatewayFixture {
	t.Helper()

	store, err := accounts.Open(filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := log.New(io.Discard, "", 0)
	w := world.New(world.Config{
		MapSize:       4000,
		TickMs:        10,
		Seed:          7,
		FoodTarget:    500,
		FoodBatch:     5,
		InitialFood:   50,
		StartRadius:   25,
		GrowthPerFood: 0.25,
		XPPerFood:     2,
		ScorePerFood:  1,
		BaseSpeed:     8,
		MinSpeed:      1,
		SizeDamping:   60,
		InputDeadZone: 10,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	srv := httptest.NewServer(ws.NewServer(w, store, "starter", 8, logger).Handler())
	t.Cleanup(srv.Close)

	return &gatewayFixture{store: store, world: w, srv: srv}
}

func (f *gatewayFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readOfType skips frames until one of the wanted type arrives.
func readOfType(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type == typ {
			return msg
		}
	}
	t.Fatalf("timed out waiting for %s", typ)
	return nil
}

func TestGateway_FreshAccountAuth(t *testing.T) {
	f := startGateway(t)
	conn := f.dial(t)

	send(t, conn, protocol.AuthMsg{Type: protocol.TypeAuth, Username: "alice", Password: "pw1"})

	var success protocol.AuthSuccessMsg
	if err := json.Unmarshal(readOfType(t, conn, protocol.TypeAuthSuccess), &success); err != nil {
		t.Fatalf("unmarshal auth_success: %v", err)
	}
	if success.Username != "alice" || success.XP != 0 || success.Level != 1 || success.SkinID != "starter" {
		t.Fatalf("auth_success mismatch: %+v", success)
	}

	// The world now streams full snapshots that include alice.
	var state protocol.GameStateMsg
	if err := json.Unmarshal(readOfType(t, conn, protocol.TypeGameState), &state); err != nil {
		t.Fatalf("unmarshal game_state: %v", err)
	}
	found := false
	for _, p := range state.Players {
		if p.Username == "alice" {
			found = true
			if len(p.Blobs) != 1 || p.Blobs[0].R != 25 {
				t.Fatalf("alice blobs mismatch: %+v", p.Blobs)
			}
		}
	}
	if !found {
		t.Fatalf("alice missing from game_state")
	}
	if len(state.Food) == 0 {
		t.Fatalf("game_state carries no food")
	}
}

func TestGateway_WrongPasswordStaysUnauthenticated(t *testing.T) {
	f := startGateway(t)

	xp := int64(500)
	acc, err := f.store.Create(context.Background(), accounts.Account{Username: "bob", Password: "pw2", Level: 1, SkinID: "starter"})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := f.store.UpdateByID(context.Background(), acc.ID, accounts.Progress{XP: &xp}); err != nil {
		t.Fatalf("seed xp: %v", err)
	}

	conn := f.dial(t)
	send(t, conn, protocol.AuthMsg{Type: protocol.TypeAuth, Username: "bob", Password: "wrong"})

	var authErr protocol.AuthErrorMsg
	if err := json.Unmarshal(readOfType(t, conn, protocol.TypeAuthError), &authErr); err != nil {
		t.Fatalf("unmarshal auth_error: %v", err)
	}
	if authErr.Code != protocol.ErrWrongPassword {
		t.Fatalf("code = %q, want %q", authErr.Code, protocol.ErrWrongPassword)
	}

	// Input before auth must be inert: no world entry ever appears.
	send(t, conn, protocol.UpdateInputMsg{Type: protocol.TypeUpdateInput, MX: 0, MY: 0, VW: 800, VH: 600})
	time.Sleep(100 * time.Millisecond)
	if n := f.world.Metrics().Players; n != 0 {
		t.Fatalf("world has %d players after failed auth", n)
	}

	// The connection stays usable for a retry.
	send(t, conn, protocol.AuthMsg{Type: protocol.TypeAuth, Username: "bob", Password: "pw2"})
	var success protocol.AuthSuccessMsg
	if err := json.Unmarshal(readOfType(t, conn, protocol.TypeAuthSuccess), &success); err != nil {
		t.Fatalf("unmarshal auth_success: %v", err)
	}
	if success.XP != 500 {
		t.Fatalf("xp = %d, want stored 500", success.XP)
	}
}

func TestGateway_DisconnectPersistsProgression(t *testing.T) {
	f := startGateway(t)

	conn := f.dial(t)
	send(t, conn, protocol.AuthMsg{Type: protocol.TypeAuth, Username: "carol", Password: "pw3", SkinID: "gold"})
	readOfType(t, conn, protocol.TypeAuthSuccess)
	_ = conn.Close()

	// Teardown runs after the reader notices the close; poll the store.
	deadline := time.Now().Add(5 * time.Second)
	for {
		acc, err := f.store.FindByUsername(context.Background(), "carol")
		if err == nil && acc.SkinID == "gold" && acc.Level == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("progression never persisted: acc=%+v err=%v", acc, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	// Re-authenticating returns the persisted progression.
	conn2 := f.dial(t)
	send(t, conn2, protocol.AuthMsg{Type: protocol.TypeAuth, Username: "carol", Password: "pw3"})
	var success protocol.AuthSuccessMsg
	if err := json.Unmarshal(readOfType(t, conn2, protocol.TypeAuthSuccess), &success); err != nil {
		t.Fatalf("unmarshal auth_success: %v", err)
	}
	if success.XP != 0 || success.Level != 1 || success.SkinID != "gold" {
		t.Fatalf("round trip mismatch: %+v", success)
	}
}

func TestGateway_ChangeSkinPersistsBestEffort(t *testing.T) {
	f := startGateway(t)

	conn := f.dial(t)
	send(t, conn, protocol.AuthMsg{Type: protocol.TypeAuth, Username: "dave", Password: "pw4"})
	readOfType(t, conn, protocol.TypeAuthSuccess)

	send(t, conn, protocol.ChangeSkinMsg{Type: protocol.TypeChangeSkin, SkinID: "neon"})

	deadline := time.Now().Add(5 * time.Second)
	for {
		acc, err := f.store.FindByUsername(context.Background(), "dave")
		if err == nil && acc.SkinID == "neon" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("skin never persisted: acc=%+v err=%v", acc, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
