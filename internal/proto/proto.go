// Package proto defines the watch-party wire protocol: the inbound
// client envelope and the typed server events fanned out to a party.
// Both the server adapter and the viewer client decode these shapes.
package proto

import (
	"errors"
	"strings"
	"time"

	"github.com/ekoclu/aniparty/internal/domain"
)

// Inbound message types.
const (
	TypeJoin  = "join"
	TypeSync  = "sync"
	TypeChat  = "chat"
	TypeLeave = "leave"
	TypePing  = "ping"
)

// Outbound event types.
const (
	TypeError             = "error"
	TypePong              = "pong"
	TypePartyState        = "party_state"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeSyncUpdate        = "sync_update"
	TypeChatMessage       = "chat_message"
)

var (
	ErrMissingPartyID  = errors.New("missing or invalid partyId")
	ErrMissingUserID   = errors.New("missing or invalid userId")
	ErrMissingPlayback = errors.New("missing currentTime or isPlaying")
	ErrEmptyContent    = errors.New("empty content")
)

// Envelope is the raw inbound frame. Optional fields are pointers so a
// missing field is distinguishable from a zero value; identities are
// never defaulted when absent.
type Envelope struct {
	Type        string   `json:"type"`
	PartyID     *int64   `json:"partyId,omitempty"`
	UserID      *int64   `json:"userId,omitempty"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
	IsPlaying   *bool    `json:"isPlaying,omitempty"`
	Content     string   `json:"content,omitempty"`
}

// Join extracts a validated join payload.
func (e *Envelope) Join() (domain.PartyID, domain.UserID, error) {
	if e.PartyID == nil || *e.PartyID <= 0 {
		return 0, 0, ErrMissingPartyID
	}
	if e.UserID == nil || *e.UserID <= 0 {
		return 0, 0, ErrMissingUserID
	}
	return domain.PartyID(*e.PartyID), domain.UserID(*e.UserID), nil
}

// Sync extracts a validated sync payload.
func (e *Envelope) Sync() (domain.PartyID, domain.PlaybackState, error) {
	if e.PartyID == nil || *e.PartyID <= 0 {
		return 0, domain.PlaybackState{}, ErrMissingPartyID
	}
	if e.CurrentTime == nil || e.IsPlaying == nil {
		return 0, domain.PlaybackState{}, ErrMissingPlayback
	}
	return domain.PartyID(*e.PartyID), domain.PlaybackState{
		CurrentTime: *e.CurrentTime,
		IsPlaying:   *e.IsPlaying,
	}, nil
}

// Chat extracts a validated, trimmed chat payload.
func (e *Envelope) Chat() (domain.PartyID, string, error) {
	if e.PartyID == nil || *e.PartyID <= 0 {
		return 0, "", ErrMissingPartyID
	}
	content := strings.TrimSpace(e.Content)
	if content == "" {
		return 0, "", ErrEmptyContent
	}
	return domain.PartyID(*e.PartyID), content, nil
}

// Participant is a read-only membership view (no transport fields).
type Participant struct {
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username,omitempty"`
}

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewError(msg string) Error { return Error{Type: TypeError, Error: msg} }

type Pong struct {
	Type string `json:"type"`
}

// PartyState is the join reply: a snapshot of the party and who is in it.
type PartyState struct {
	Type         string          `json:"type"`
	PartyID      domain.PartyID  `json:"partyId"`
	RoomCode     domain.RoomCode `json:"roomCode"`
	AnimeID      int64           `json:"animeId"`
	EpisodeID    int64           `json:"episodeId"`
	CurrentTime  float64         `json:"currentTime"`
	IsPlaying    bool            `json:"isPlaying"`
	Participants []Participant   `json:"participants"`
}

type ParticipantJoined struct {
	Type     string         `json:"type"`
	PartyID  domain.PartyID `json:"partyId"`
	UserID   domain.UserID  `json:"userId"`
	Username string         `json:"username,omitempty"`
}

type ParticipantLeft struct {
	Type    string         `json:"type"`
	PartyID domain.PartyID `json:"partyId"`
	UserID  domain.UserID  `json:"userId"`
}

type SyncUpdate struct {
	Type        string         `json:"type"`
	PartyID     domain.PartyID `json:"partyId"`
	CurrentTime float64        `json:"currentTime"`
	IsPlaying   bool           `json:"isPlaying"`
}

type ChatMessage struct {
	Type      string         `json:"type"`
	PartyID   domain.PartyID `json:"partyId"`
	UserID    domain.UserID  `json:"userId"`
	Username  string         `json:"username,omitempty"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}
