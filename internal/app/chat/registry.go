package chat

import (
	"context"
	"sync"

	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.uber.org/zap"
)

// Registry tracks the live Sessions on this node by session id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
	log      *zap.Logger
}

// NewRegistry creates an empty registry whose sessions share deps.
func NewRegistry(deps Deps) *Registry {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		deps:     deps,
		log:      deps.Log,
	}
}

// Deps returns the collaborators sessions are built with.
func (r *Registry) Deps() Deps { return r.deps }

// Open starts a new session for me and registers it.
func (r *Registry) Open(ctx context.Context, me models.Member) (*Session, error) {
	s := NewSession(me, r.deps)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns the session with id if it belongs to memberID.
func (r *Registry) Get(id, memberID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.MemberID() != memberID {
		return nil, false
	}
	return s, true
}

// Close closes and forgets the session with id.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseMember closes every session of memberID and returns how many there were.
func (r *Registry) CloseMember(memberID string) int {
	r.mu.Lock()
	var victims []*Session
	for id, s := range r.sessions {
		if s.MemberID() == memberID {
			victims = append(victims, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range victims {
		s.Close()
	}
	return len(victims)
}

// CloseAll closes every session. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	if len(all) > 0 {
		r.log.Info("closed chat sessions", zap.Int("count", len(all)))
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// LoadSnapshot builds a one-off Snapshot for me without opening a Session.
func LoadSnapshot(ctx context.Context, deps Deps, me models.Member) (Snapshot, error) {
	ms, err := deps.Members.ListActive(ctx)
	if err != nil {
		return Snapshot{}, storeErr("load members", err)
	}
	msgs, err := deps.Messages.ListAll(ctx)
	if err != nil {
		return Snapshot{}, storeErr("load messages", err)
	}

	dir := NewDirectory(me.ID.Hex())
	dir.Load(ms)
	stream := NewStream()
	stream.Load(msgs)

	members := dir.Members()
	return Snapshot{
		Me:          me,
		Members:     members,
		MemberCount: len(members),
		Removable:   dir.Removable(me),
		Messages:    stream.Snapshot(),
	}, nil
}
