package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/realtime"
	memberstore "github.com/dalemusser/dukhiatma/internal/app/store/members"
	"github.com/dalemusser/dukhiatma/internal/app/system/normalize"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryMembers is an in-memory member store with the same rules as
// memberstore.Store, including the admin re-check in SetRemoved. Writes are
// published to pub when it is non-nil, like the store in local mode.
type MemoryMembers struct {
	mu   sync.Mutex
	rows map[string]models.Member
	pub  realtime.Publisher
	last time.Time

	// Err, when set, is returned by every call.
	Err error
	// EnsureCalls counts calls to Ensure.
	EnsureCalls int
}

// NewMemoryMembers creates an empty store.
func NewMemoryMembers(pub realtime.Publisher) *MemoryMembers {
	return &MemoryMembers{rows: make(map[string]models.Member), pub: pub}
}

// now returns a strictly increasing timestamp so updated_at ordering is
// deterministic within a test.
func (s *MemoryMembers) now() time.Time {
	t := time.Now().UTC().Truncate(time.Millisecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Millisecond)
	}
	s.last = t
	return t
}

// Put seeds a row without publishing.
func (s *MemoryMembers) Put(m models.Member) models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = s.now()
		m.CreatedAt = m.UpdatedAt
	}
	m.Email = normalize.Email(m.Email)
	s.rows[m.ID.Hex()] = m
	return m
}

// Count returns the number of rows, removed included.
func (s *MemoryMembers) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *MemoryMembers) GetByEmail(_ context.Context, email string) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return models.Member{}, s.Err
	}
	email = normalize.Email(email)
	for _, m := range s.rows {
		if m.Email == email {
			return m, nil
		}
	}
	return models.Member{}, memberstore.ErrNotFound
}

func (s *MemoryMembers) GetByID(_ context.Context, id string) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return models.Member{}, s.Err
	}
	m, ok := s.rows[id]
	if !ok {
		return models.Member{}, memberstore.ErrNotFound
	}
	return m, nil
}

func (s *MemoryMembers) Ensure(_ context.Context, in models.Member) (models.Member, bool, error) {
	s.mu.Lock()
	s.EnsureCalls++
	if s.Err != nil {
		s.mu.Unlock()
		return models.Member{}, false, s.Err
	}
	email := normalize.Email(in.Email)
	for _, m := range s.rows {
		if m.Email == email {
			s.mu.Unlock()
			return m, false, nil
		}
	}
	now := s.now()
	m := models.Member{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Name:      in.Name,
		AvatarURL: in.AvatarURL,
		IsAdmin:   in.IsAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.rows[m.ID.Hex()] = m
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Publish(realtime.MemberChanged(realtime.OpInsert, m))
	}
	return m, true, nil
}

func (s *MemoryMembers) ListActive(_ context.Context) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.Member{}
	for _, m := range s.rows {
		if !m.IsRemoved {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryMembers) SetRemoved(_ context.Context, actorID, targetID string) (models.Member, error) {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return models.Member{}, s.Err
	}
	actor, ok := s.rows[actorID]
	if !ok || !actor.IsAdmin || actor.IsRemoved {
		s.mu.Unlock()
		return models.Member{}, memberstore.ErrForbidden
	}
	target, ok := s.rows[targetID]
	if !ok {
		s.mu.Unlock()
		return models.Member{}, memberstore.ErrNotFound
	}
	target.IsRemoved = true
	target.UpdatedAt = s.now()
	s.rows[targetID] = target
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Publish(realtime.MemberChanged(realtime.OpUpdate, target))
	}
	return target, nil
}

// MemoryMessages is an in-memory message store.
type MemoryMessages struct {
	mu   sync.Mutex
	rows []models.Message
	pub  realtime.Publisher

	// InsertErr and ListErr, when set, fail the matching call.
	InsertErr error
	ListErr   error
	// Gate, when non-nil, makes Insert wait for a receive (or ctx) first.
	Gate chan struct{}
}

// NewMemoryMessages creates an empty store.
func NewMemoryMessages(pub realtime.Publisher) *MemoryMessages {
	return &MemoryMessages{pub: pub}
}

// Put seeds a row without publishing.
func (s *MemoryMessages) Put(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, m)
}

// All returns a copy of the stored rows in insertion order.
func (s *MemoryMessages) All() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.rows...)
}

func (s *MemoryMessages) ListAll(_ context.Context) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := append([]models.Message(nil), s.rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (s *MemoryMessages) Insert(ctx context.Context, m models.Message) (models.Message, error) {
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return models.Message{}, ctx.Err()
		}
	}

	s.mu.Lock()
	if s.InsertErr != nil {
		s.mu.Unlock()
		return models.Message{}, s.InsertErr
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.CreatedAt = m.CreatedAt.UTC().Truncate(time.Millisecond)
	s.rows = append(s.rows, m)
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Publish(realtime.MessageInserted(m))
	}
	return m, nil
}

// StubBackend is a scripted generative backend keyed by model name.
type StubBackend struct {
	mu    sync.Mutex
	calls []string
	users []string

	// Replies maps model to the text it returns.
	Replies map[string]string
	// Errs maps model to the error it returns.
	Errs map[string]error
	// Hang lists models that block until their context ends.
	Hang map[string]bool
	// Started, when non-nil, receives the model name as each call begins.
	Started chan string
}

// Generate implements the chat backend.
func (b *StubBackend) Generate(ctx context.Context, model, _, user string) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, model)
	b.users = append(b.users, user)
	b.mu.Unlock()

	if b.Started != nil {
		select {
		case b.Started <- model:
		default:
		}
	}
	if b.Hang[model] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := b.Errs[model]; err != nil {
		return "", err
	}
	return b.Replies[model], nil
}

// Calls returns the models called so far, in order.
func (b *StubBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// UserTexts returns the user text passed to each call, in order.
func (b *StubBackend) UserTexts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.users...)
}
