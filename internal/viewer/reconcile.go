package viewer

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/domain"
	"github.com/ekoclu/aniparty/internal/proto"
)

// handleFrame dispatches one inbound server event. Unknown types are
// ignored so the server can grow the protocol without breaking older
// viewers.
func (v *Viewer) handleFrame(data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Warn().Err(err).Str("module", "viewer").Msg("bad frame")
		return
	}

	switch head.Type {
	case proto.TypePartyState:
		var ev proto.PartyState
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		v.applyState(ev.PartyID, ev.CurrentTime, ev.IsPlaying)
		if v.handlers.OnPartyState != nil {
			v.handlers.OnPartyState(ev)
		}
	case proto.TypeSyncUpdate:
		var ev proto.SyncUpdate
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		v.applyState(ev.PartyID, ev.CurrentTime, ev.IsPlaying)
		if v.handlers.OnSync != nil {
			v.handlers.OnSync(ev)
		}
	case proto.TypeChatMessage:
		var ev proto.ChatMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		if ev.PartyID == v.joinedParty() && v.handlers.OnChat != nil {
			v.handlers.OnChat(ev)
		}
	case proto.TypeParticipantJoined:
		var ev proto.ParticipantJoined
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		if ev.PartyID == v.joinedParty() && v.handlers.OnParticipantJoined != nil {
			v.handlers.OnParticipantJoined(ev)
		}
	case proto.TypeParticipantLeft:
		var ev proto.ParticipantLeft
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		if ev.PartyID == v.joinedParty() && v.handlers.OnParticipantLeft != nil {
			v.handlers.OnParticipantLeft(ev)
		}
	case proto.TypeError:
		var ev proto.Error
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		log.Warn().Str("module", "viewer").Str("error", ev.Error).Msg("server error event")
		if v.handlers.OnError != nil {
			v.handlers.OnError(ev.Error)
		}
	case proto.TypePong:
	default:
		log.Debug().Str("module", "viewer").Str("type", head.Type).Msg("ignoring unknown event")
	}
}

// applyState adopts the authoritative state as the new local target.
// Updates for other parties are dropped outright, and re-applying the
// latest state is safe, so stale echoes of our own sync are harmless:
// last applied wins here just like on the server. This path never
// emits a sync back.
func (v *Viewer) applyState(partyID domain.PartyID, currentTime float64, isPlaying bool) {
	if partyID != v.joinedParty() {
		log.Warn().Str("module", "viewer").Int64("party_id", int64(partyID)).Msg("dropping update for foreign party")
		return
	}
	v.player.Seek(currentTime)
	v.player.SetPlaying(isPlaying)
}
