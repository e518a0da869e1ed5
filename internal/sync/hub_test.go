package sync

import (
	"os"
	"testing"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func drain(s *Session) []ServerMessage {
	var msgs []ServerMessage
	for {
		select {
		case msg := <-s.outbound:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	a := newSession()
	b := newSession()
	hub.Join(models.ScopeRoom, "R1", a)
	hub.Join(models.ScopeRoom, "R1", b)

	hub.Broadcast(models.ScopeRoom, "R1", ServerMessage{Type: MsgRoomUpdated})

	for name, s := range map[string]*Session{"a": a, "b": b} {
		msgs := drain(s)
		if len(msgs) != 1 || msgs[0].Type != MsgRoomUpdated {
			t.Errorf("session %s got %v, want one %s", name, msgs, MsgRoomUpdated)
		}
	}
}

func TestHub_NonSubscriberGetsNothing(t *testing.T) {
	hub := NewHub()
	joined := newSession()
	other := newSession()
	hub.Join(models.ScopeRoom, "R1", joined)
	hub.Join(models.ScopeRoom, "R2", other)

	hub.Broadcast(models.ScopeRoom, "R1", ServerMessage{Type: MsgRoomUpdated})

	if msgs := drain(other); len(msgs) != 0 {
		t.Errorf("session joined to R2 received R1 broadcast: %v", msgs)
	}
}

// The setup and room families never share state, even for the same key.
func TestHub_ScopeFamiliesAreIsolated(t *testing.T) {
	hub := NewHub()
	setupSession := newSession()
	roomSession := newSession()
	hub.Join(models.ScopeSetup, "E1", setupSession)
	hub.Join(models.ScopeRoom, "E1", roomSession)

	hub.Broadcast(models.ScopeSetup, "E1", ServerMessage{Type: MsgSetupUpdated})

	if msgs := drain(roomSession); len(msgs) != 0 {
		t.Errorf("room subscriber received setup broadcast: %v", msgs)
	}
	if msgs := drain(setupSession); len(msgs) != 1 {
		t.Errorf("setup subscriber got %d messages, want 1", len(msgs))
	}
}

func TestHub_Remove(t *testing.T) {
	hub := NewHub()
	s := newSession()
	hub.Join(models.ScopeRoom, "R1", s)

	hub.Remove(s)

	if n := hub.SubscriberCount(models.ScopeRoom, "R1"); n != 0 {
		t.Errorf("SubscriberCount after Remove = %d, want 0", n)
	}
	if _, open := <-s.outbound; open {
		t.Error("outbound channel still open after Remove")
	}
	// Sending to a removed session must not panic.
	s.send(ServerMessage{Type: MsgRoomUpdated})
}

func TestSession_Joined(t *testing.T) {
	hub := NewHub()
	s := newSession()
	hub.Join(models.ScopeSetup, "E1", s)

	if !s.Joined(models.ScopeSetup, "E1") {
		t.Error("session should report joined scope")
	}
	if s.Joined(models.ScopeRoom, "E1") {
		t.Error("joining setup must not imply joining room")
	}
}
