package server

import (
	"sync"
	"time"
)

type expiryKey struct {
	roomId    string
	messageId string
}

// ExpiryScheduler arms one deferred deletion per self-destructing message.
// The expire callback must be idempotent; cancellation here is an
// optimization, never a correctness requirement.
type ExpiryScheduler struct {
	mu     sync.Mutex
	timers map[expiryKey]*time.Timer
	expire func(roomId, messageId string)
}

func NewExpiryScheduler(expire func(roomId, messageId string)) *ExpiryScheduler {
	return &ExpiryScheduler{
		timers: make(map[expiryKey]*time.Timer),
		expire: expire,
	}
}

func (s *ExpiryScheduler) Schedule(roomId, messageId string, ttl time.Duration) {
	key := expiryKey{roomId: roomId, messageId: messageId}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.timers[key]; ok {
		return
	}

	s.timers[key] = time.AfterFunc(ttl, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()

		s.expire(roomId, messageId)
	})
}

// CancelRoom stops pending timers for a room. Timers that already fired
// or race the cancellation fall through to the idempotent delete.
func (s *ExpiryScheduler) CancelRoom(roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		if key.roomId == roomId {
			timer.Stop()
			delete(s.timers, key)
		}
	}
}

func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

func (s *ExpiryScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}
