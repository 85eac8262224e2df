package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/proto"
)

// handleChat fans an ephemeral message out to the party. Whitespace-only
// content is a silent no-op, not an error.
func (ctl *SignalWSController) handleChat(sid core.SessionID, conn core.SignalConnection, env *proto.Envelope) {
	partyID, content, err := env.Chat()
	if errors.Is(err, proto.ErrEmptyContent) {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("empty chat dropped")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad chat payload")
		ctl.sendJSON(conn, proto.NewError("bad_payload"))
		return
	}

	msg, err := ctl.Orch.Chat(sid, partyID, content)
	if err != nil {
		ctl.sendJSON(conn, proto.NewError("not_in_party"))
		return
	}

	if ctl.ChatRate != nil && !ctl.ChatRate.Allow(msg.UserID) {
		ctl.sendJSON(conn, proto.NewError("rate_limited"))
		return
	}

	ctl.Orch.BroadcastEvent(partyID, "", msg)
}
