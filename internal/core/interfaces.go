package core

import "github.com/ekoclu/aniparty/internal/domain"

// Frame is a marshaled wire event.
type Frame []byte

// SessionID identifies one client connection.
type SessionID string

// SignalConnection abstracts the realtime messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds domain.Member and its transport endpoint.
// This is what a party channel stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
	UpdateSignal(SignalConnection) MemberSession
}

// PublishResult reports delivery stats/backpressure to the orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// PartyChannel is the fan-out scope of one party: the set of live
// connections Joined to it. It owns the connection set but never
// touches transport resources or the party's authoritative state.
type PartyChannel interface {
	PartyID() domain.PartyID
	MemberCount() int
	Participants() []domain.UserID

	AddMember(sid SessionID, ms MemberSession)
	RemoveMember(sid SessionID)

	// Broadcast sends data to every member except from; an empty from
	// includes the sender too.
	Broadcast(from SessionID, data Frame) PublishResult
}

// ChannelFactory hands out per-party fan-out channels.
type ChannelFactory interface {
	GetOrCreate(id domain.PartyID) PartyChannel
	Get(id domain.PartyID) (PartyChannel, bool)
	Drop(id domain.PartyID)
}
