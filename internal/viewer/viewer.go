// Package viewer is the client half of the watch-party protocol: it
// keeps the local player reconciled with the party's authoritative
// playback state and reports local user-driven changes back.
//
// The reconciler never emits a sync in response to an incoming
// sync_update; outbound syncs come only from the Report* methods and
// the periodic heartbeat, so two viewers cannot feed back into each
// other.
package viewer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/domain"
	"github.com/ekoclu/aniparty/internal/proto"
)

const DefaultHeartbeat = 5 * time.Second

var ErrNotJoined = errors.New("viewer not joined to a party")

// Handlers are optional callbacks for events beyond playback state.
type Handlers struct {
	OnPartyState        func(proto.PartyState)
	OnSync              func(proto.SyncUpdate)
	OnChat              func(proto.ChatMessage)
	OnParticipantJoined func(proto.ParticipantJoined)
	OnParticipantLeft   func(proto.ParticipantLeft)
	OnError             func(string)
}

type Options struct {
	Heartbeat time.Duration
	Handlers  Handlers
}

type Viewer struct {
	userID   domain.UserID
	player   Player
	handlers Handlers
	hb       time.Duration

	mu      sync.Mutex
	partyID domain.PartyID
	conn    *websocket.Conn
	emit    func([]byte) error
}

// Dial connects to the party websocket endpoint and starts the read
// and heartbeat loops, which run until ctx is canceled or the
// connection drops.
func Dial(ctx context.Context, url string, userID domain.UserID, player Player, opts Options) (*Viewer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	v := newViewer(userID, player, opts)
	v.conn = conn
	v.emit = func(data []byte) error {
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	go v.readLoop(ctx)
	go v.heartbeatLoop(ctx)
	return v, nil
}

func newViewer(userID domain.UserID, player Player, opts Options) *Viewer {
	hb := opts.Heartbeat
	if hb <= 0 {
		hb = DefaultHeartbeat
	}
	return &Viewer{
		userID:   userID,
		player:   player,
		handlers: opts.Handlers,
		hb:       hb,
	}
}

// Join announces this viewer to a party. The server replies with
// party_state, which seeds the local player.
func (v *Viewer) Join(partyID domain.PartyID) error {
	v.mu.Lock()
	v.partyID = partyID
	v.mu.Unlock()
	pid, uid := int64(partyID), int64(v.userID)
	return v.send(proto.Envelope{Type: proto.TypeJoin, PartyID: &pid, UserID: &uid})
}

func (v *Viewer) Leave() error {
	v.mu.Lock()
	v.partyID = 0
	v.mu.Unlock()
	return v.send(proto.Envelope{Type: proto.TypeLeave})
}

func (v *Viewer) SendChat(content string) error {
	pid := int64(v.joinedParty())
	if pid == 0 {
		return ErrNotJoined
	}
	uid := int64(v.userID)
	return v.send(proto.Envelope{Type: proto.TypeChat, PartyID: &pid, UserID: &uid, Content: content})
}

// ReportState pushes the player's current state as a sync. Called from
// user-driven playback changes and the heartbeat, never from inbound
// updates.
func (v *Viewer) ReportState() error {
	pid := int64(v.joinedParty())
	if pid == 0 {
		return ErrNotJoined
	}
	pos := v.player.Position()
	playing := v.player.Playing()
	return v.send(proto.Envelope{Type: proto.TypeSync, PartyID: &pid, CurrentTime: &pos, IsPlaying: &playing})
}

func (v *Viewer) ReportSeek(seconds float64) error {
	v.player.Seek(seconds)
	return v.ReportState()
}

func (v *Viewer) ReportPlay() error {
	v.player.SetPlaying(true)
	return v.ReportState()
}

func (v *Viewer) ReportPause() error {
	v.player.SetPlaying(false)
	return v.ReportState()
}

func (v *Viewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn != nil {
		return v.conn.Close()
	}
	return nil
}

func (v *Viewer) joinedParty() domain.PartyID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.partyID
}

func (v *Viewer) send(env proto.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.emit == nil {
		return errors.New("viewer not connected")
	}
	return v.emit(data)
}

func (v *Viewer) readLoop(ctx context.Context) {
	defer func() {
		_ = v.Close()
		log.Info().Str("module", "viewer").Msg("read loop closed")
	}()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := v.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "viewer").Msg("read error")
				return
			}
			v.handleFrame(data)
		}
	}
}

func (v *Viewer) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(v.hb)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if v.joinedParty() == 0 || !v.player.Playing() {
				continue
			}
			if err := v.ReportState(); err != nil {
				log.Warn().Err(err).Str("module", "viewer").Msg("heartbeat send failed")
			}
		}
	}
}
