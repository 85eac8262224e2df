package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/domain"
)

// channelImpl is a threadsafe in-memory party channel.
// It never closes adapter-owned resources.
type channelImpl struct {
	partyID domain.PartyID
	mu      sync.RWMutex
	bySID   map[SessionID]MemberSession
	byUser  map[domain.UserID]SessionID
}

func NewPartyChannel(partyID domain.PartyID) PartyChannel {
	return &channelImpl{
		partyID: partyID,
		bySID:   make(map[SessionID]MemberSession),
		byUser:  make(map[domain.UserID]SessionID),
	}
}

func (c *channelImpl) PartyID() domain.PartyID { return c.partyID }

func (c *channelImpl) MemberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bySID)
}

func (c *channelImpl) AddMember(sid SessionID, ms MemberSession) {
	u := ms.Meta().User.ID
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySID[sid] = ms
	c.byUser[u] = sid
	log.Info().Str("module", "core.channel").Int64("party_id", int64(c.partyID)).Str("sid", string(sid)).Int64("user", int64(u)).Msg("member added")
}

func (c *channelImpl) RemoveMember(sid SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms, ok := c.bySID[sid]; ok {
		u := ms.Meta().User.ID
		if c.byUser[u] == sid {
			delete(c.byUser, u)
		}
	}
	delete(c.bySID, sid)
	log.Info().Str("module", "core.channel").Int64("party_id", int64(c.partyID)).Str("sid", string(sid)).Msg("member removed")
}

// Broadcast fans data out to the members of this party only. Slow
// consumers are reported back, not handled here.
func (c *channelImpl) Broadcast(from SessionID, data Frame) PublishResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := PublishResult{}
	for sid, m := range c.bySID {
		if from != "" && sid == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.channel").Int64("party_id", int64(c.partyID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (c *channelImpl) Participants() []domain.UserID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.UserID, 0, len(c.bySID))
	for _, ms := range c.bySID {
		out = append(out, ms.Meta().User.ID)
	}
	return out
}
