package chat

import (
	"sort"
	"sync"

	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stream is a session's ordered, duplicate-free copy of the message history.
// Order is created_at ascending with the id as tie-break, whatever order
// messages arrive in.
type Stream struct {
	mu   sync.RWMutex
	msgs []models.Message
	ids  map[primitive.ObjectID]struct{}
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{ids: make(map[primitive.ObjectID]struct{})}
}

// Load merges a bulk fetch. Messages are immutable and never deleted, so a
// merge is correct both for first hydration and for a resync.
func (s *Stream) Load(ms []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range ms {
		s.insert(m)
	}
}

// Merge adds m unless its id is already present. It reports whether m was added.
func (s *Stream) Merge(m models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(m)
}

func (s *Stream) insert(m models.Message) bool {
	if _, dup := s.ids[m.ID]; dup {
		return false
	}
	s.ids[m.ID] = struct{}{}

	n := len(s.msgs)
	if n == 0 || s.msgs[n-1].Before(m) {
		s.msgs = append(s.msgs, m)
		return true
	}
	i := sort.Search(n, func(i int) bool { return m.Before(s.msgs[i]) })
	s.msgs = append(s.msgs, models.Message{})
	copy(s.msgs[i+1:], s.msgs[i:])
	s.msgs[i] = m
	return true
}

// Remove drops the message with id. Only used to retract an optimistic send
// whose write failed.
func (s *Stream) Remove(id primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			break
		}
	}
	return true
}

// Has reports whether id is present.
func (s *Stream) Has(id primitive.ObjectID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Snapshot returns a copy of the ordered messages.
func (s *Stream) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len returns the number of messages.
func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Clear drops all messages.
func (s *Stream) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	s.ids = make(map[primitive.ObjectID]struct{})
}
