package app

import "github.com/ekoclu/aniparty/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose send buffer is full
// during fan-out.
type Policy interface {
	OnBackPressure(ch core.PartyChannel, sid core.SessionID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(ch core.PartyChannel, sid core.SessionID) BackpressureAction {
	return KickMember
}
