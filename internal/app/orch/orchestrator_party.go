package orch

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/domain"
	"github.com/ekoclu/aniparty/internal/party"
	"github.com/ekoclu/aniparty/internal/proto"
)

// Join registers the connection as a participant of partyID. Joining
// the same party again is idempotent; joining a different party while
// Joined is rejected. Returns the party snapshot and the current
// participant list for the party_state reply.
func (o *Orchestrator) Join(sid core.SessionID, partyID domain.PartyID, userID domain.UserID) (*domain.Party, []proto.Participant, error) {
	if current, _, joined := o.Registry.PartyOf(sid); joined && current != partyID {
		return nil, nil, ErrAlreadyJoined
	}

	p, err := o.Parties.Get(partyID)
	if err != nil {
		return nil, nil, err
	}
	if !o.Parties.AddParticipant(partyID, userID) {
		return nil, nil, party.ErrPartyNotFound
	}

	session, ok := o.Registry.GetSession(sid)
	if !ok {
		return nil, nil, ErrNoSession
	}
	*session.Meta().User = *o.resolveUser(userID)

	o.Channels.GetOrCreate(partyID).AddMember(sid, session)
	o.Registry.SetParty(sid, partyID, userID)

	log.Info().Str("module", "orch").Str("sid", string(sid)).Int64("party_id", int64(partyID)).Int64("user", int64(userID)).Msg("joined")
	return p, o.participantList(partyID), nil
}

// Sync applies a last-write-wins overwrite of the party's playback
// state, in server-arrival order. The connection must be Joined to the
// party it is syncing.
func (o *Orchestrator) Sync(sid core.SessionID, partyID domain.PartyID, state domain.PlaybackState) (*domain.Party, error) {
	joined, _, ok := o.Registry.PartyOf(sid)
	if !ok || joined != partyID {
		return nil, ErrNotJoined
	}
	return o.Parties.UpdatePlayback(partyID, state)
}

// Chat validates that the sender is Joined and builds the broadcast
// message. Chat is ephemeral; no party state changes.
func (o *Orchestrator) Chat(sid core.SessionID, partyID domain.PartyID, content string) (proto.ChatMessage, error) {
	joined, userID, ok := o.Registry.PartyOf(sid)
	if !ok || joined != partyID {
		return proto.ChatMessage{}, ErrNotJoined
	}
	u := o.resolveUser(userID)
	return proto.ChatMessage{
		Type:      proto.TypeChatMessage,
		PartyID:   partyID,
		UserID:    userID,
		Username:  u.Username,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Leave detaches the connection from its party, keeping the connection
// itself alive. Reports what was left so the adapter can broadcast.
func (o *Orchestrator) Leave(sid core.SessionID) (domain.PartyID, domain.UserID, bool) {
	partyID, userID, ok := o.Registry.ClearParty(sid)
	if !ok {
		return 0, 0, false
	}
	o.Parties.RemoveParticipant(partyID, userID)
	if ch, ok := o.Channels.Get(partyID); ok {
		ch.RemoveMember(sid)
		if ch.MemberCount() == 0 {
			o.Channels.Drop(partyID)
		}
	}
	return partyID, userID, true
}

// Disconnect is the connection-teardown path: implicit leave plus
// registry unbind. Already-applied party state stays as is.
func (o *Orchestrator) Disconnect(sid core.SessionID) (domain.PartyID, domain.UserID, bool) {
	partyID, userID, left := o.Leave(sid)
	o.Registry.Unbind(sid)
	return partyID, userID, left
}

func (o *Orchestrator) participantList(partyID domain.PartyID) []proto.Participant {
	ids := o.Parties.Participants(partyID)
	out := make([]proto.Participant, 0, len(ids))
	for _, id := range ids {
		u := o.resolveUser(id)
		out = append(out, proto.Participant{UserID: id, Username: u.Username})
	}
	return out
}
