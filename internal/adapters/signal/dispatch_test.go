package signal

import (
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/ekoclu/aniparty/internal/app"
	"github.com/ekoclu/aniparty/internal/app/orch"
	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/directory"
	"github.com/ekoclu/aniparty/internal/domain"
	"github.com/ekoclu/aniparty/internal/party"
	"github.com/ekoclu/aniparty/internal/proto"
)

type fakeConn struct {
	frames []core.Frame
}

func (f *fakeConn) TrySend(data core.Frame) error {
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() {}

// events decodes every buffered frame into its type discriminator.
func (f *fakeConn) events(t *testing.T) []string {
	t.Helper()
	out := make([]string, 0, len(f.frames))
	for _, frame := range f.frames {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &head); err != nil {
			t.Fatalf("undecodable frame %q: %v", frame, err)
		}
		out = append(out, head.Type)
	}
	return out
}

func (f *fakeConn) last(t *testing.T, v any) {
	t.Helper()
	if len(f.frames) == 0 {
		t.Fatal("no frames buffered")
	}
	if err := json.Unmarshal(f.frames[len(f.frames)-1], v); err != nil {
		t.Fatalf("decode last frame: %v", err)
	}
}

func newTestController() *SignalWSController {
	users := directory.NewInMemory()
	users.Seed(domain.User{ID: 1, Username: "kenji"})
	users.Seed(domain.User{ID: 2, Username: "mira"})
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Parties:  party.NewManager(),
		Channels: app.NewChannelManager(),
		Policy:   app.SimplePolicy{},
		Users:    users,
	}
	return NewSignalWSController(o, NewChatRateLimiter(100, time.Minute), 0)
}

func connect(ctl *SignalWSController, sid core.SessionID) *fakeConn {
	conn := &fakeConn{}
	meta := domain.NewMember(&domain.User{})
	sess := core.NewMemberSession(meta).UpdateSignal(conn)
	ctl.Orch.Registry.BindSignal(sid, sess, nil)
	return conn
}

func join(t *testing.T, ctl *SignalWSController, sid core.SessionID, conn *fakeConn, partyID domain.PartyID, userID int64) {
	t.Helper()
	ctl.handleSignal(sid, conn, []byte(fmt.Sprintf(`{"type":"join","partyId":%d,"userId":%d}`, partyID, userID)))
}

func TestJoinRepliesPartyStateAndBroadcasts(t *testing.T) {
	ctl := newTestController()
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	connA := connect(ctl, "a")

	join(t, ctl, "a", connA, p.ID, 1)

	got := connA.events(t)
	if len(got) != 2 || got[0] != proto.TypePartyState || got[1] != proto.TypeParticipantJoined {
		t.Fatalf("events = %v, want [party_state participant_joined]", got)
	}

	var state proto.PartyState
	if err := json.Unmarshal(connA.frames[0], &state); err != nil {
		t.Fatal(err)
	}
	if state.PartyID != p.ID || state.RoomCode != p.RoomCode {
		t.Errorf("party_state = %+v", state)
	}
	if state.CurrentTime != 0 || state.IsPlaying {
		t.Errorf("fresh party must report paused at zero, got %+v", state)
	}
}

func TestSyncLastWriteWinsAndFanOut(t *testing.T) {
	ctl := newTestController()
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	connA := connect(ctl, "a")
	connB := connect(ctl, "b")
	join(t, ctl, "a", connA, p.ID, 1)
	join(t, ctl, "b", connB, p.ID, 2)
	connA.frames, connB.frames = nil, nil

	ctl.handleSignal("a", connA, []byte(fmt.Sprintf(`{"type":"sync","partyId":%d,"currentTime":60,"isPlaying":true}`, p.ID)))
	ctl.handleSignal("b", connB, []byte(fmt.Sprintf(`{"type":"sync","partyId":%d,"currentTime":120.5,"isPlaying":true}`, p.ID)))

	got, _ := ctl.Orch.Parties.Get(p.ID)
	if got.Playback.CurrentTime != 120.5 || !got.Playback.IsPlaying {
		t.Errorf("authoritative state = %+v, want the later sync", got.Playback)
	}

	// Both broadcasts observed, in order, sender included.
	for name, conn := range map[string]*fakeConn{"a": connA, "b": connB} {
		var first, second proto.SyncUpdate
		if err := json.Unmarshal(conn.frames[0], &first); err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(conn.frames[1], &second); err != nil {
			t.Fatal(err)
		}
		if first.CurrentTime != 60 || second.CurrentTime != 120.5 {
			t.Errorf("conn %s saw %v then %v, want 60 then 120.5", name, first.CurrentTime, second.CurrentTime)
		}
		if second.PartyID != p.ID {
			t.Errorf("conn %s: partyId = %d", name, second.PartyID)
		}
	}
}

func TestSyncBeforeJoinRejected(t *testing.T) {
	ctl := newTestController()
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	conn := connect(ctl, "a")

	ctl.handleSignal("a", conn, []byte(fmt.Sprintf(`{"type":"sync","partyId":%d,"currentTime":9,"isPlaying":true}`, p.ID)))

	var ev proto.Error
	conn.last(t, &ev)
	if ev.Error != "not_in_party" {
		t.Errorf("error = %q, want not_in_party", ev.Error)
	}
	got, _ := ctl.Orch.Parties.Get(p.ID)
	if got.Playback.CurrentTime != 0 {
		t.Error("unauthorized sync must not mutate state")
	}
}

func TestBroadcastNeverLeaksAcrossParties(t *testing.T) {
	ctl := newTestController()
	p1, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	p2, _ := ctl.Orch.Parties.Create(2, 11, 3, true)
	connA := connect(ctl, "a")
	connB := connect(ctl, "b")
	join(t, ctl, "a", connA, p1.ID, 1)
	join(t, ctl, "b", connB, p2.ID, 2)
	connA.frames, connB.frames = nil, nil

	ctl.handleSignal("a", connA, []byte(fmt.Sprintf(`{"type":"sync","partyId":%d,"currentTime":30,"isPlaying":true}`, p1.ID)))
	ctl.handleSignal("a", connA, []byte(fmt.Sprintf(`{"type":"chat","partyId":%d,"content":"hi"}`, p1.ID)))

	if len(connB.frames) != 0 {
		t.Fatalf("party %d connection received %d frames from party %d", p2.ID, len(connB.frames), p1.ID)
	}
	for _, frame := range connA.frames {
		var head struct {
			PartyID domain.PartyID `json:"partyId"`
		}
		if err := json.Unmarshal(frame, &head); err != nil {
			t.Fatal(err)
		}
		if head.PartyID != p1.ID {
			t.Errorf("frame tagged with party %d delivered to party %d member", head.PartyID, p1.ID)
		}
	}
}

func TestChatMessageCarriesIdentityAndTimestamp(t *testing.T) {
	ctl := newTestController()
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	conn := connect(ctl, "a")
	join(t, ctl, "a", conn, p.ID, 2)
	conn.frames = nil

	ctl.handleSignal("a", conn, []byte(fmt.Sprintf(`{"type":"chat","partyId":%d,"content":"  konnichiwa  "}`, p.ID)))

	var msg proto.ChatMessage
	conn.last(t, &msg)
	if msg.Type != proto.TypeChatMessage || msg.UserID != 2 || msg.Username != "mira" {
		t.Errorf("chat_message = %+v", msg)
	}
	if msg.Content != "konnichiwa" {
		t.Errorf("content not trimmed: %q", msg.Content)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp must be server-assigned")
	}
}

func TestEmptyChatIsSilentNoOp(t *testing.T) {
	ctl := newTestController()
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	conn := connect(ctl, "a")
	join(t, ctl, "a", conn, p.ID, 1)
	conn.frames = nil

	ctl.handleSignal("a", conn, []byte(fmt.Sprintf(`{"type":"chat","partyId":%d,"content":"   "}`, p.ID)))

	if len(conn.frames) != 0 {
		t.Errorf("whitespace-only chat produced %d frames, want none", len(conn.frames))
	}
}

func TestChatRateLimited(t *testing.T) {
	ctl := newTestController()
	ctl.ChatRate = NewChatRateLimiter(2, time.Minute)
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	conn := connect(ctl, "a")
	join(t, ctl, "a", conn, p.ID, 1)
	conn.frames = nil

	for i := 0; i < 3; i++ {
		ctl.handleSignal("a", conn, []byte(fmt.Sprintf(`{"type":"chat","partyId":%d,"content":"spam"}`, p.ID)))
	}

	got := conn.events(t)
	want := []string{proto.TypeChatMessage, proto.TypeChatMessage, proto.TypeError}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestLeaveBroadcastsToRemaining(t *testing.T) {
	ctl := newTestController()
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	connA := connect(ctl, "a")
	connB := connect(ctl, "b")
	join(t, ctl, "a", connA, p.ID, 1)
	join(t, ctl, "b", connB, p.ID, 2)
	connA.frames, connB.frames = nil, nil

	ctl.handleSignal("a", connA, []byte(`{"type":"leave"}`))

	var left proto.ParticipantLeft
	connB.last(t, &left)
	if left.Type != proto.TypeParticipantLeft || left.UserID != 1 || left.PartyID != p.ID {
		t.Errorf("participant_left = %+v", left)
	}

	got := connA.events(t)
	if len(got) != 1 || got[0] != "left" {
		t.Errorf("leaver events = %v, want [left]", got)
	}
}

func TestDisconnectIsImplicitLeave(t *testing.T) {
	ctl := newTestController()
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	connA := connect(ctl, "a")
	connB := connect(ctl, "b")
	join(t, ctl, "a", connA, p.ID, 1)
	join(t, ctl, "b", connB, p.ID, 2)
	connB.frames = nil

	ctl.disconnect("a")

	var left proto.ParticipantLeft
	connB.last(t, &left)
	if left.UserID != 1 || left.PartyID != p.ID {
		t.Errorf("participant_left = %+v", left)
	}
	for _, uid := range ctl.Orch.Parties.Participants(p.ID) {
		if uid == 1 {
			t.Error("membership leaked after disconnect")
		}
	}
}

func TestMalformedEnvelopesDroppedPerMessage(t *testing.T) {
	ctl := newTestController()
	p, _ := ctl.Orch.Parties.Create(1, 10, 2, true)
	conn := connect(ctl, "a")

	cases := []struct {
		name    string
		payload string
	}{
		{"unparseable", `{not json`},
		{"join missing userId", fmt.Sprintf(`{"type":"join","partyId":%d}`, p.ID)},
		{"join missing partyId", `{"type":"join","userId":1}`},
		{"join non-positive userId", fmt.Sprintf(`{"type":"join","partyId":%d,"userId":0}`, p.ID)},
		{"sync missing playback", fmt.Sprintf(`{"type":"sync","partyId":%d}`, p.ID)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn.frames = nil
			ctl.handleSignal("a", conn, []byte(tc.payload))
			var ev proto.Error
			conn.last(t, &ev)
			if ev.Type != proto.TypeError {
				t.Errorf("want error event, got %+v", ev)
			}
		})
	}

	// Unknown type: dropped without a reply.
	conn.frames = nil
	ctl.handleSignal("a", conn, []byte(`{"type":"teleport"}`))
	if len(conn.frames) != 0 {
		t.Error("unknown type must be dropped silently")
	}

	// The connection survives all of it.
	conn.frames = nil
	join(t, ctl, "a", conn, p.ID, 1)
	got := conn.events(t)
	if len(got) == 0 || got[0] != proto.TypePartyState {
		t.Errorf("connection unusable after malformed traffic: %v", got)
	}
}

func TestJoinUnknownPartyReturnsError(t *testing.T) {
	ctl := newTestController()
	conn := connect(ctl, "a")

	join(t, ctl, "a", conn, 99, 1)

	var ev proto.Error
	conn.last(t, &ev)
	if ev.Error != "party_not_found" {
		t.Errorf("error = %q, want party_not_found", ev.Error)
	}
}

func TestPing(t *testing.T) {
	ctl := newTestController()
	conn := connect(ctl, "a")

	ctl.handleSignal("a", conn, []byte(`{"type":"ping"}`))

	got := conn.events(t)
	if len(got) != 1 || got[0] != proto.TypePong {
		t.Errorf("events = %v, want [pong]", got)
	}
}
