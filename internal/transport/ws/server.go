package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/G0KU0/Nebulous/internal/persistence/accounts"
	"github.com/G0KU0/Nebulous/internal/protocol"
	"github.com/G0KU0/Nebulous/internal/sim/world"
)

const (
	readTimeout    = 60 * time.Second
	writeTimeout   = 5 * time.Second
	storeTimeout   = 5 * time.Second
	defaultQueue   = 8
	authErrGeneric = "server error, try again"
	authErrWrongPW = "wrong password"
)

type Server struct {
	world *world.World
	store *accounts.Store
	log   *log.Logger

	starterSkin string
	queueLen    int

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, store *accounts.Store, starterSkin string, queueLen int, logger *log.Logger) *Server {
	if queueLen <= 0 {
		queueLen = defaultQueue
	}
	return &Server{
		world:       w,
		store:       store,
		log:         logger,
		starterSkin: starterSkin,
		queueLen:    queueLen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// session tracks one connection's state machine:
// unauthenticated -> authenticated -> disconnected.
type session struct {
	id       string
	username string
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// All writes go through one channel so the writer goroutine is the
		// only place touching the connection's write side.
		out := make(chan []byte, s.queueLen)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		var sess *session

		// Reader loop. Auth runs in-line here, so by construction no input
		// from this connection is applied before its auth has settled.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeAuth:
				if sess != nil {
					continue
				}
				sess = s.authenticate(msg, out)
			case protocol.TypeUpdateInput:
				if sess == nil {
					continue
				}
				var in protocol.UpdateInputMsg
				if err := json.Unmarshal(msg, &in); err != nil {
					continue
				}
				s.world.Inbox() <- world.InputEnvelope{SessionID: sess.id, Input: in}
			case protocol.TypeChangeSkin:
				if sess == nil {
					continue
				}
				var cs protocol.ChangeSkinMsg
				if err := json.Unmarshal(msg, &cs); err != nil {
					continue
				}
				s.changeSkin(sess, cs.SkinID)
			}
		}

		if sess != nil {
			s.teardown(sess)
		}
	}
}

// authenticate resolves or creates the account and hydrates the player
// into the world. The store round trip happens here, on the connection's
// goroutine, never on the world loop.
func (s *Server) authenticate(msg []byte, out chan []byte) *session {
	var auth protocol.AuthMsg
	if err := json.Unmarshal(msg, &auth); err != nil {
		return nil
	}
	if auth.Username == "" || auth.Password == "" {
		sendControl(out, protocol.AuthErrorMsg{Type: protocol.TypeAuthError, Code: protocol.ErrBadRequest, Message: authErrGeneric})
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	acc, err := s.store.FindByUsername(ctx, auth.Username)
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		skin := auth.SkinID
		if skin == "" {
			skin = s.starterSkin
		}
		acc, err = s.store.Create(ctx, accounts.Account{
			Username: auth.Username,
			Password: auth.Password,
			Level:    1,
			SkinID:   skin,
		})
		if err != nil {
			s.log.Printf("auth: create %q: %v", auth.Username, err)
			sendControl(out, protocol.AuthErrorMsg{Type: protocol.TypeAuthError, Code: protocol.ErrServerError, Message: authErrGeneric})
			return nil
		}
	case err != nil:
		s.log.Printf("auth: lookup %q: %v", auth.Username, err)
		sendControl(out, protocol.AuthErrorMsg{Type: protocol.TypeAuthError, Code: protocol.ErrServerError, Message: authErrGeneric})
		return nil
	case acc.Password != auth.Password:
		// Plain text comparison, matching the stored credential format.
		sendControl(out, protocol.AuthErrorMsg{Type: protocol.TypeAuthError, Code: protocol.ErrWrongPassword, Message: authErrWrongPW})
		return nil
	}

	// Client-sent skin wins for this session; it is persisted at disconnect.
	skin := auth.SkinID
	if skin == "" {
		skin = acc.SkinID
	}

	sess := &session{
		id:       uuid.NewString(),
		username: acc.Username,
	}

	// Queue the success frame before the world learns about the client so
	// it is delivered ahead of the first game_state.
	sendControl(out, protocol.AuthSuccessMsg{
		Type:     protocol.TypeAuthSuccess,
		Username: acc.Username,
		XP:       acc.XP,
		Level:    acc.Level,
		SkinID:   skin,
	})

	resp := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		SessionID: sess.id,
		AccountID: acc.ID,
		Username:  acc.Username,
		XP:        acc.XP,
		Level:     acc.Level,
		SkinID:    skin,
		Out:       out,
		Resp:      resp,
	}
	<-resp

	return sess
}

// changeSkin updates the live skin, then persists it best-effort off the
// hot path. A failed write is logged and never surfaced to the client.
func (s *Server) changeSkin(sess *session, skinID string) {
	if skinID == "" {
		return
	}
	resp := make(chan world.SkinChangeResult, 1)
	s.world.Skin() <- world.SkinChange{SessionID: sess.id, SkinID: skinID, Resp: resp}
	res := <-resp
	if !res.Found {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := s.store.UpdateByID(ctx, res.AccountID, accounts.Progress{SkinID: &skinID}); err != nil {
			s.log.Printf("persist skin %q: %v", sess.username, err)
		}
	}()
}

// teardown removes the player from the world and flushes progression.
// Removal is unconditional; a failed store write only loses the fields
// that did not persist.
func (s *Server) teardown(sess *session) {
	resp := make(chan world.LeaveSummary, 1)
	s.world.Leave() <- world.LeaveRequest{SessionID: sess.id, Resp: resp}
	sum := <-resp
	if !sum.Found {
		return
	}

	level := world.LevelForXP(sum.XP)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	high := sum.Score
	if acc, err := s.store.FindByUsername(ctx, sum.Username); err == nil && acc.HighScore > high {
		high = acc.HighScore
	}
	err := s.store.UpdateByID(ctx, sum.AccountID, accounts.Progress{
		XP:        &sum.XP,
		Level:     &level,
		SkinID:    &sum.SkinID,
		HighScore: &high,
	})
	if err != nil {
		s.log.Printf("persist progression %q: %v", sum.Username, err)
	}
}

// sendControl queues a frame that must not be dropped (auth responses).
func sendControl(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	out <- b
}
