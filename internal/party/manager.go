// Package party owns the authoritative watch-party state: the live
// party records, their participant sets and the shared playback state.
// Everything is held in memory for the session lifetime; durability is
// not a goal.
package party

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/domain"
)

var (
	ErrPartyNotFound = errors.New("party not found")
	ErrCodeExhausted = errors.New("could not allocate a unique room code")
)

const codeRetries = 5

type record struct {
	party        *domain.Party
	participants map[domain.UserID]struct{}
	lastActivity time.Time
}

// Manager is the party lifecycle manager. A single RWMutex guards both
// the party records and the participant sets so playback writes and
// membership changes are atomic with respect to concurrent callers.
type Manager struct {
	mu     sync.RWMutex
	nextID domain.PartyID
	byID   map[domain.PartyID]*record
	byCode map[domain.RoomCode]domain.PartyID

	now func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		byID:   make(map[domain.PartyID]*record),
		byCode: make(map[domain.RoomCode]domain.PartyID),
		now:    time.Now,
	}
}

// Create allocates a new party with a fresh monotonic id and a room
// code unique among live parties. The creator is the sole initial
// participant and playback starts paused at zero.
func (m *Manager) Create(creatorID domain.UserID, animeID, episodeID int64, isPublic bool) (*domain.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, err := m.allocateCodeLocked()
	if err != nil {
		return nil, err
	}

	m.nextID++
	p := &domain.Party{
		ID:        m.nextID,
		RoomCode:  code,
		CreatorID: creatorID,
		AnimeID:   animeID,
		EpisodeID: episodeID,
		IsPublic:  isPublic,
		StartTime: m.now(),
	}
	m.byID[p.ID] = &record{
		party:        p,
		participants: map[domain.UserID]struct{}{creatorID: {}},
		lastActivity: m.now(),
	}
	m.byCode[code] = p.ID

	log.Info().Str("module", "party").Int64("party_id", int64(p.ID)).Str("code", string(code)).Msg("party created")
	return snapshot(p), nil
}

func (m *Manager) allocateCodeLocked() (domain.RoomCode, error) {
	for i := 0; i < codeRetries; i++ {
		code, err := generateRoomCode()
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := m.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// Get returns a snapshot of a live party.
func (m *Manager) Get(id domain.PartyID) (*domain.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrPartyNotFound
	}
	return snapshot(rec.party), nil
}

// GetByCode resolves a room code to a live party.
func (m *Manager) GetByCode(code domain.RoomCode) (*domain.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byCode[code]
	if !ok {
		return nil, ErrPartyNotFound
	}
	return snapshot(m.byID[id].party), nil
}

// UpdatePlayback overwrites the party's authoritative playback state.
// Both fields are replaced together; last write wins.
func (m *Manager) UpdatePlayback(id domain.PartyID, state domain.PlaybackState) (*domain.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrPartyNotFound
	}
	rec.party.Playback = state
	rec.lastActivity = m.now()
	return snapshot(rec.party), nil
}

// AddParticipant is idempotent; false means the party does not exist,
// which is recoverable for the caller.
func (m *Manager) AddParticipant(id domain.PartyID, userID domain.UserID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return false
	}
	rec.participants[userID] = struct{}{}
	rec.lastActivity = m.now()
	return true
}

// RemoveParticipant drops the membership entry. An emptied party is
// kept alive; the janitor decides when to collect it.
func (m *Manager) RemoveParticipant(id domain.PartyID, userID domain.UserID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return false
	}
	delete(rec.participants, userID)
	rec.lastActivity = m.now()
	return true
}

// Participants returns the current membership of a party.
func (m *Manager) Participants(id domain.PartyID) []domain.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil
	}
	out := make([]domain.UserID, 0, len(rec.participants))
	for uid := range rec.participants {
		out = append(out, uid)
	}
	return out
}

// End closes a party: sets endTime and removes it from the live maps,
// so later lookups and sync writes report NotFound.
func (m *Manager) End(id domain.PartyID) (*domain.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endLocked(id)
}

func (m *Manager) endLocked(id domain.PartyID) (*domain.Party, error) {
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrPartyNotFound
	}
	now := m.now()
	rec.party.EndTime = &now
	delete(m.byCode, rec.party.RoomCode)
	delete(m.byID, id)
	log.Info().Str("module", "party").Int64("party_id", int64(id)).Msg("party ended")
	return snapshot(rec.party), nil
}

// Live returns the number of live parties.
func (m *Manager) Live() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// snapshot copies a party so callers never alias the guarded record.
func snapshot(p *domain.Party) *domain.Party {
	cp := *p
	return &cp
}
