package viewer

// Player is the local playback surface the viewer drives. Seek and
// SetPlaying must be cheap and idempotent; the reconciler may re-apply
// the current state on duplicate updates.
type Player interface {
	Seek(seconds float64)
	SetPlaying(playing bool)
	Position() float64
	Playing() bool
}
