package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/app/orch"
	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/party"
	"github.com/ekoclu/aniparty/internal/proto"
)

func (ctl *SignalWSController) handleJoin(sid core.SessionID, conn core.SignalConnection, env *proto.Envelope) {
	partyID, userID, err := env.Join()
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad join payload")
		ctl.sendJSON(conn, proto.NewError("bad_payload"))
		return
	}

	p, participants, err := ctl.Orch.Join(sid, partyID, userID)
	switch {
	case errors.Is(err, party.ErrPartyNotFound):
		ctl.sendJSON(conn, proto.NewError("party_not_found"))
		return
	case errors.Is(err, orch.ErrAlreadyJoined):
		ctl.sendJSON(conn, proto.NewError("already_in_party"))
		return
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join failed")
		ctl.sendJSON(conn, proto.NewError("join_failed"))
		return
	}

	ctl.sendJSON(conn, proto.PartyState{
		Type:         proto.TypePartyState,
		PartyID:      p.ID,
		RoomCode:     p.RoomCode,
		AnimeID:      p.AnimeID,
		EpisodeID:    p.EpisodeID,
		CurrentTime:  p.Playback.CurrentTime,
		IsPlaying:    p.Playback.IsPlaying,
		Participants: participants,
	})

	username := ""
	for _, member := range participants {
		if member.UserID == userID {
			username = member.Username
		}
	}
	// Everyone in the party sees the join, the sender included.
	ctl.Orch.BroadcastEvent(partyID, "", proto.ParticipantJoined{
		Type:     proto.TypeParticipantJoined,
		PartyID:  partyID,
		UserID:   userID,
		Username: username,
	})
}

// handleLeave detaches from the current party; the connection stays up.
func (ctl *SignalWSController) handleLeave(sid core.SessionID, conn core.SignalConnection) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	partyID, userID, left := ctl.Orch.Leave(sid)
	ctl.sendJSON(conn, map[string]any{"type": "left"})
	if !left {
		return
	}
	ctl.Orch.BroadcastEvent(partyID, sid, proto.ParticipantLeft{
		Type:    proto.TypeParticipantLeft,
		PartyID: partyID,
		UserID:  userID,
	})
}
