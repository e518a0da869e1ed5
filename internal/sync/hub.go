package sync

import (
	stdsync "sync"

	"github.com/Paulagot/bingo-sub014/pkg/logger"
)

const sessionSendBuffer = 32

// Session is one connected admin client. Outbound messages go through a
// buffered channel drained by a single writer goroutine, which keeps
// per-connection delivery FIFO.
type Session struct {
	outbound chan ServerMessage

	mu     stdsync.Mutex
	joined map[string]struct{}
	closed bool
}

func newSession() *Session {
	return &Session{
		outbound: make(chan ServerMessage, sessionSendBuffer),
		joined:   make(map[string]struct{}),
	}
}

// Joined reports whether the session has joined the given scope key.
func (s *Session) Joined(scope, scopeKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.joined[scopeID(scope, scopeKey)]
	return ok
}

func (s *Session) addScope(scope, scopeKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined[scopeID(scope, scopeKey)] = struct{}{}
}

// send enqueues a message for the writer goroutine. A session whose buffer is
// full has fallen too far behind; the message is dropped and logged, because
// broadcast delivery is a convenience, never the source of truth.
func (s *Session) send(msg ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.outbound <- msg:
	default:
		logger.Warn("sync session send buffer full, dropping broadcast", "type", msg.Type)
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.outbound)
	}
}

// scopeID namespaces subscription keys so the setup and room families can
// never collide, even for the same underlying event.
func scopeID(scope, scopeKey string) string {
	return scope + ":" + scopeKey
}

// Hub is the per-process subscription registry: which sessions observe which
// scope keys. It holds no financial state; the relational store stays
// authoritative.
type Hub struct {
	mu          stdsync.RWMutex
	subscribers map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*Session]struct{})}
}

// Join subscribes a session to a scope key.
func (h *Hub) Join(scope, scopeKey string, s *Session) {
	s.addScope(scope, scopeKey)

	id := scopeID(scope, scopeKey)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[id] == nil {
		h.subscribers[id] = make(map[*Session]struct{})
	}
	h.subscribers[id][s] = struct{}{}
}

// Remove drops a session from every scope key it joined and closes its
// outbound channel.
func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	for id, sessions := range h.subscribers {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(h.subscribers, id)
		}
	}
	h.mu.Unlock()
	s.close()
}

// Broadcast delivers a message to every subscriber of a scope key, including
// the originator of the change that produced it.
func (h *Hub) Broadcast(scope, scopeKey string, msg ServerMessage) {
	id := scopeID(scope, scopeKey)
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.subscribers[id]))
	for s := range h.subscribers[id] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.send(msg)
	}
}

// SubscriberCount reports how many sessions observe a scope key.
func (h *Hub) SubscriberCount(scope, scopeKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[scopeID(scope, scopeKey)])
}
