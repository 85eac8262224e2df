package signal

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/proto"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump consumes frames until the connection dies. Teardown is the
// implicit leave path: membership is detached and the party is told,
// but shared state already applied stays applied.
func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.disconnect(sid)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(sid, c, data)
		}
	}
}

func (ctl *SignalWSController) disconnect(sid core.SessionID) {
	partyID, userID, left := ctl.Orch.Disconnect(sid)
	if !left {
		return
	}
	ctl.Orch.BroadcastEvent(partyID, sid, proto.ParticipantLeft{
		Type:    proto.TypeParticipantLeft,
		PartyID: partyID,
		UserID:  userID,
	})
}

// handleSignal dispatches one inbound envelope. Malformed frames are
// answered with an error event and otherwise dropped; the connection
// stays open.
func (ctl *SignalWSController) handleSignal(sid core.SessionID, conn core.SignalConnection, data []byte) {
	var env proto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendJSON(conn, proto.NewError("bad_payload"))
		return
	}

	switch env.Type {
	case proto.TypeJoin:
		ctl.handleJoin(sid, conn, &env)
	case proto.TypeSync:
		ctl.handleSync(sid, conn, &env)
	case proto.TypeChat:
		ctl.handleChat(sid, conn, &env)
	case proto.TypeLeave:
		ctl.handleLeave(sid, conn)
	case proto.TypePing:
		ctl.handlePing(conn)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
