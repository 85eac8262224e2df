package orch

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/app"
	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/domain"
	"github.com/ekoclu/aniparty/internal/proto"
)

// BroadcastEvent marshals v and fans it out to the connections Joined
// to partyID only. An empty from includes the sender. Runs after the
// authoritative state mutation has committed; sends never block.
func (o *Orchestrator) BroadcastEvent(partyID domain.PartyID, from core.SessionID, v any) {
	ch, ok := o.Channels.Get(partyID)
	if !ok {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("broadcast marshal")
		return
	}
	res := ch.Broadcast(from, core.Frame(data))
	o.handleBackpressure(ch, res)
}

// handleBackpressure applies the policy to connections whose send
// buffer was full. A kicked member is detached and its party is told.
func (o *Orchestrator) handleBackpressure(ch core.PartyChannel, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, sid := range res.Dropped {
		switch o.Policy.OnBackPressure(ch, sid) {
		case app.KickMember:
			partyID, userID, left := o.Leave(sid)
			o.Registry.Cancel(sid)
			log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("kicked slow consumer")
			if left {
				o.BroadcastEvent(partyID, sid, proto.ParticipantLeft{
					Type:    proto.TypeParticipantLeft,
					PartyID: partyID,
					UserID:  userID,
				})
			}
		case app.MarkSlow, app.DropFrame, app.NoAction:
		}
	}
}
