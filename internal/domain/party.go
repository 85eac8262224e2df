package domain

import "time"

type (
	PartyID  int64
	RoomCode string
)

func (id PartyID) Valid() bool { return id > 0 }

// PlaybackState is the authoritative (position, playing) pair of a party.
// It is always written as a whole, never field by field.
type PlaybackState struct {
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

// Party is one shared-viewing session. Identity fields are immutable
// after creation; only Playback and EndTime change.
type Party struct {
	ID        PartyID       `json:"id"`
	RoomCode  RoomCode      `json:"roomCode"`
	CreatorID UserID        `json:"creatorId"`
	AnimeID   int64         `json:"animeId"`
	EpisodeID int64         `json:"episodeId"`
	IsPublic  bool          `json:"isPublic"`
	Playback  PlaybackState `json:"playback"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
}

func (p *Party) Ended() bool { return p.EndTime != nil }
