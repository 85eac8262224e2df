package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/app/orch"
	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/party"
	"github.com/ekoclu/aniparty/internal/proto"
)

// handleSync applies a playback overwrite and rebroadcasts it to the
// whole party, sender included (the echo is an idempotent no-op there).
// Concurrent syncs resolve by server-arrival order: last write wins.
func (ctl *SignalWSController) handleSync(sid core.SessionID, conn core.SignalConnection, env *proto.Envelope) {
	partyID, state, err := env.Sync()
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad sync payload")
		ctl.sendJSON(conn, proto.NewError("bad_payload"))
		return
	}

	p, err := ctl.Orch.Sync(sid, partyID, state)
	switch {
	case errors.Is(err, orch.ErrNotJoined):
		ctl.sendJSON(conn, proto.NewError("not_in_party"))
		return
	case errors.Is(err, party.ErrPartyNotFound):
		ctl.sendJSON(conn, proto.NewError("party_not_found"))
		return
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("sync failed")
		return
	}

	ctl.Orch.BroadcastEvent(partyID, "", proto.SyncUpdate{
		Type:        proto.TypeSyncUpdate,
		PartyID:     p.ID,
		CurrentTime: p.Playback.CurrentTime,
		IsPlaying:   p.Playback.IsPlaying,
	})
}
