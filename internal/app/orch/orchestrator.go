package orch

import (
	"errors"

	"github.com/ekoclu/aniparty/internal/app"
	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/directory"
	"github.com/ekoclu/aniparty/internal/domain"
	"github.com/ekoclu/aniparty/internal/party"
)

var (
	// ErrAlreadyJoined: a connection is Joined to at most one party;
	// switching parties requires a new connection.
	ErrAlreadyJoined = errors.New("connection already joined to another party")
	ErrNotJoined     = errors.New("connection not joined to this party")
	ErrNoSession     = errors.New("no live session for connection")
)

// Orchestrator glues the connection registry, the party lifecycle
// manager and the per-party fan-out channels. Shared state mutations
// commit before any broadcast happens.
type Orchestrator struct {
	Registry *app.Registry
	Parties  *party.Manager
	Channels core.ChannelFactory
	Policy   app.Policy
	Users    directory.Directory
}

// resolveUser fills in the display name when the directory knows the
// id; an unknown id still participates, just without a username.
func (o *Orchestrator) resolveUser(userID domain.UserID) *domain.User {
	if o.Users != nil {
		if u, ok := o.Users.Lookup(userID); ok {
			return &u
		}
	}
	return &domain.User{ID: userID}
}
