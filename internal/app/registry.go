package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/domain"
)

// sessionEntry tracks where a connection currently is: PartyID is zero
// while the connection is Connected but not Joined.
type sessionEntry struct {
	PartyID domain.PartyID
	UserID  domain.UserID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry maps connection session ids to their live session state.
// It is the single source of truth for "which party is this connection
// Joined to".
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *Registry) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// PartyOf reports the party a connection is Joined to, if any.
func (r *Registry) PartyOf(sid core.SessionID) (domain.PartyID, domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.PartyID == 0 {
		return 0, 0, false
	}
	return entry.PartyID, entry.UserID, true
}

// SetParty marks the connection Joined. False when the session is gone.
func (r *Registry) SetParty(sid core.SessionID, partyID domain.PartyID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.PartyID = partyID
	entry.UserID = userID
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int64("party_id", int64(partyID)).Msg("joined party")
	return true
}

// ClearParty transitions the connection back to Connected and returns
// what it was Joined to.
func (r *Registry) ClearParty(sid core.SessionID) (domain.PartyID, domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.PartyID == 0 {
		return 0, 0, false
	}
	partyID, userID := entry.PartyID, entry.UserID
	entry.PartyID = 0
	entry.UserID = 0
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int64("party_id", int64(partyID)).Msg("left party")
	return partyID, userID, true
}

// Cancel fires the connection's cancel func, tearing down its pumps.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
