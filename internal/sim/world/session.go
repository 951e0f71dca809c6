package world

import "time"

func (w *World) handleJoin(req JoinRequest) {
	p := &Player{
		SessionID: req.SessionID,
		AccountID: req.AccountID,
		Username:  req.Username,
		XP:        req.XP,
		Level:     req.Level,
		SkinID:    req.SkinID,
		Blobs: []*Blob{{
			X: w.rng.Float64() * w.cfg.MapSize,
			Y: w.rng.Float64() * w.cfg.MapSize,
			R: w.cfg.StartRadius,
		}},
	}
	w.players[req.SessionID] = p
	if req.Out != nil {
		w.clients[req.SessionID] = &clientState{Out: req.Out}
	}

	w.logSession("join", p)

	if req.Resp != nil {
		req.Resp <- JoinResponse{Player: p.state()}
	}
}

func (w *World) handleLeave(req LeaveRequest) {
	p := w.players[req.SessionID]
	delete(w.players, req.SessionID)
	delete(w.clients, req.SessionID)

	var sum LeaveSummary
	if p != nil {
		sum = LeaveSummary{
			Found:     true,
			AccountID: p.AccountID,
			Username:  p.Username,
			XP:        p.XP,
			SkinID:    p.SkinID,
			Score:     p.Score,
		}
		w.logSession("leave", p)
	}
	if req.Resp != nil {
		req.Resp <- sum
	}
}

func (w *World) handleSkinChange(sc SkinChange) {
	p := w.players[sc.SessionID]
	var res SkinChangeResult
	if p != nil && sc.SkinID != "" {
		p.SkinID = sc.SkinID
		res = SkinChangeResult{Found: true, AccountID: p.AccountID}
	}
	if sc.Resp != nil {
		sc.Resp <- res
	}
}

func (w *World) logSession(event string, p *Player) {
	if w.sessionLogger == nil {
		return
	}
	_ = w.sessionLogger.WriteSession(SessionLogEntry{
		TimeUnixMs: time.Now().UnixMilli(),
		Event:      event,
		SessionID:  p.SessionID,
		Username:   p.Username,
		XP:         p.XP,
		Score:      p.Score,
	})
}
