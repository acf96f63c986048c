package chat

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/realtime"
	"github.com/dalemusser/dukhiatma/internal/app/system/metrics"
	"github.com/dalemusser/dukhiatma/internal/app/system/timeouts"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UpdateKind names a change pushed to the client of a Session.
type UpdateKind string

const (
	UpdateMessageAdded     UpdateKind = "message_added"
	UpdateMessageConfirmed UpdateKind = "message_confirmed"
	UpdateMessageRetracted UpdateKind = "message_retracted"
	UpdateMembers          UpdateKind = "members"
	UpdateResynced         UpdateKind = "resynced"
	UpdateForcedLogout     UpdateKind = "forced_logout"
)

// Update is one change for the client to render.
type Update struct {
	Kind      UpdateKind      `json:"kind"`
	Message   *models.Message `json:"message,omitempty"`
	Pending   bool            `json:"pending,omitempty"`
	Members   []models.Member `json:"members,omitempty"`
	Removable []models.Member `json:"removable,omitempty"`
	Snapshot  *Snapshot       `json:"snapshot,omitempty"`
}

// Snapshot is the full state a client renders from.
type Snapshot struct {
	Me          models.Member    `json:"me"`
	Members     []models.Member  `json:"members"`
	MemberCount int              `json:"member_count"`
	Removable   []models.Member  `json:"removable"`
	Messages    []models.Message `json:"messages"`
}

// Deps are the collaborators shared by every Session.
type Deps struct {
	Members   MemberStore
	Messages  MessageStore
	Feed      Feed
	Responder *Responder
	Admin     *Admin
	Log       *zap.Logger
}

// Session is one signed-in client's live view of the room. It owns the
// member's Directory and Stream, the two realtime subscriptions, the
// single-flight send flag, the unsent draft, and the queue of updates for
// the client. Start must be called before use and Close when the client
// goes away.
type Session struct {
	ID string

	member   models.Member
	memberID string

	deps   Deps
	log    *zap.Logger
	dir    *Directory
	stream *Stream

	updates *realtime.Queue[Update]
	msgSub  *realtime.Subscription
	memSub  *realtime.Subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex // guards member and closed; held around wg.Add
	closed bool

	started atomic.Bool
	sending atomic.Bool
	forced  atomic.Bool

	draftMu sync.Mutex
	draft   string
}

// NewSession creates a session for me. Nothing is fetched until Start.
func NewSession(me models.Member, deps Deps) *Session {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:       id,
		member:   me,
		memberID: me.ID.Hex(),
		deps:     deps,
		log:      deps.Log.With(zap.String("session_id", id), zap.String("member_id", me.ID.Hex())),
		dir:      NewDirectory(me.ID.Hex()),
		stream:   NewStream(),
		updates:  realtime.NewQueue[Update](),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to both tables, bulk-fetches members and messages, then
// begins applying realtime events. Subscribing first means nothing written
// during the fetch is missed; the overlap is absorbed by dedup.
// The session lives until Close, independent of ctx.
func (s *Session) Start(ctx context.Context) error {
	if s.deps.Feed != nil {
		s.msgSub = s.deps.Feed.Subscribe(realtime.TableMessages)
		s.memSub = s.deps.Feed.Subscribe(realtime.TableMembers)
	}

	if err := s.hydrateMembers(ctx); err != nil {
		s.Close()
		return err
	}
	if err := s.hydrateMessages(ctx); err != nil {
		s.Close()
		return err
	}

	if s.msgSub != nil {
		s.wg.Add(1)
		go s.run()
	}
	s.started.Store(true)
	metrics.ActiveSessions.Inc()
	s.log.Info("chat session started",
		zap.Int("members", s.dir.Len()),
		zap.Int("messages", s.stream.Len()))
	return nil
}

func (s *Session) hydrateMembers(ctx context.Context) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "hydrate members")
	defer cancel()
	ms, err := s.deps.Members.ListActive(ctx)
	if err != nil {
		return storeErr("load members", err)
	}
	s.dir.Load(ms)
	return nil
}

func (s *Session) hydrateMessages(ctx context.Context) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "hydrate messages")
	defer cancel()
	ms, err := s.deps.Messages.ListAll(ctx)
	if err != nil {
		return storeErr("load messages", err)
	}
	s.stream.Load(ms)
	return nil
}

// run is the single consumer of both subscriptions.
func (s *Session) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.msgSub.Ready():
			for _, ev := range s.msgSub.Drain() {
				s.applyMessage(ev)
			}
		case <-s.memSub.Ready():
			for _, ev := range s.memSub.Drain() {
				if s.applyMember(ev) {
					s.forced.Store(true)
					s.updates.Push(Update{Kind: UpdateForcedLogout})
					s.log.Info("member removed; forcing logout")
					s.cancel()
					return
				}
			}
		}
	}
}

func (s *Session) applyMessage(ev realtime.Event) {
	switch ev.Op {
	case realtime.OpResync:
		if err := s.hydrateMessages(s.ctx); err != nil {
			s.log.Warn("message resync failed", zap.Error(err))
			return
		}
		snap := s.Snapshot()
		s.updates.Push(Update{Kind: UpdateResynced, Snapshot: &snap})
	case realtime.OpInsert:
		if ev.Message == nil {
			return
		}
		if s.stream.Merge(*ev.Message) {
			m := *ev.Message
			s.updates.Push(Update{Kind: UpdateMessageAdded, Message: &m})
		}
	}
}

// applyMember returns true when the session must be forced out.
func (s *Session) applyMember(ev realtime.Event) bool {
	switch ev.Op {
	case realtime.OpResync:
		if err := s.hydrateMembers(s.ctx); err != nil {
			s.log.Warn("member resync failed", zap.Error(err))
			return false
		}
		if _, ok := s.dir.Get(s.memberID); !ok {
			// Our own row is gone from the active set; re-read it to tell a
			// removal apart from a fetch that raced our creation.
			ctx, cancel := context.WithTimeout(s.ctx, timeouts.Short())
			me, err := s.deps.Members.GetByID(ctx, s.memberID)
			cancel()
			if err == nil && me.IsRemoved {
				return true
			}
		}
		s.pushMembers()
		return false
	case realtime.OpInsert, realtime.OpUpdate:
		if ev.Member == nil {
			return false
		}
		if s.dir.Apply(*ev.Member) {
			return true
		}
		if ev.Member.ID.Hex() == s.memberID {
			s.setMe(*ev.Member)
		}
		s.pushMembers()
	}
	return false
}

func (s *Session) setMe(m models.Member) {
	s.mu.Lock()
	s.member = m
	s.mu.Unlock()
}

// Me returns the session's member as last seen on the feed.
func (s *Session) Me() models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.member
}

// MemberID returns the id of the session's member.
func (s *Session) MemberID() string { return s.memberID }

func (s *Session) pushMembers() {
	s.updates.Push(Update{
		Kind:      UpdateMembers,
		Members:   s.dir.Members(),
		Removable: s.dir.Removable(s.Me()),
	})
}

// Updates is the queue of changes for this session's client.
func (s *Session) Updates() *realtime.Queue[Update] { return s.updates }

// Done is closed once the session stops applying events, either from Close
// or a forced logout.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// ForcedOut reports whether the session ended because its member was removed.
func (s *Session) ForcedOut() bool { return s.forced.Load() }

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	me := s.Me()
	members := s.dir.Members()
	return Snapshot{
		Me:          me,
		Members:     members,
		MemberCount: len(members),
		Removable:   s.dir.Removable(me),
		Messages:    s.stream.Snapshot(),
	}
}

// Draft returns text from the last send that did not persist.
func (s *Session) Draft() string {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	return s.draft
}

func (s *Session) setDraft(v string) {
	s.draftMu.Lock()
	s.draft = v
	s.draftMu.Unlock()
}

// Send posts content as the session's member. The message is appended
// locally before the write and retracted if the write fails, in which case
// the input is kept as the draft. At most one send runs at a time. Content
// mentioning the assistant starts a reply in the background once the
// message is stored.
func (s *Session) Send(ctx context.Context, content string) (models.Message, error) {
	if s.ctx.Err() != nil {
		return models.Message{}, &SendError{Reason: ErrSessionClosed, Draft: content}
	}

	// Content is stored exactly as typed, minus surrounding whitespace.
	// Clients escape it when rendering.
	text := strings.TrimSpace(content)
	if text == "" {
		metrics.SendFailures.WithLabelValues("empty").Inc()
		return models.Message{}, &SendError{Reason: ErrEmptyMessage, Draft: content}
	}
	if !s.sending.CompareAndSwap(false, true) {
		metrics.SendFailures.WithLabelValues("in_flight").Inc()
		return models.Message{}, &SendError{Reason: ErrSendInFlight, Draft: content}
	}
	defer s.sending.Store(false)

	me := s.Me()
	msg := models.Message{
		ID:          primitive.NewObjectID(),
		Content:     text,
		SenderID:    me.ID.Hex(),
		SenderName:  me.Name,
		SenderEmail: me.Email,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if s.stream.Merge(msg) {
		pending := msg
		s.updates.Push(Update{Kind: UpdateMessageAdded, Message: &pending, Pending: true})
	}

	wctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "insert message")
	saved, err := s.deps.Messages.Insert(wctx, msg)
	cancel()
	if err != nil {
		s.stream.Remove(msg.ID)
		retracted := msg
		s.updates.Push(Update{Kind: UpdateMessageRetracted, Message: &retracted})
		s.setDraft(content)
		metrics.SendFailures.WithLabelValues("store").Inc()
		s.log.Warn("message insert failed", zap.String("message_id", msg.ID.Hex()), zap.Error(err))
		return models.Message{}, &SendError{Reason: ErrStore, Draft: content, Err: err}
	}

	s.setDraft("")
	confirmed := saved
	s.updates.Push(Update{Kind: UpdateMessageConfirmed, Message: &confirmed})
	metrics.MessagesSent.WithLabelValues("human").Inc()

	if Mentions(text) && s.deps.Responder.Configured() {
		s.mu.Lock()
		if !s.closed {
			s.wg.Add(1)
			go s.assist(text)
		}
		s.mu.Unlock()
	}
	return saved, nil
}

// assist runs the responder and posts its reply as the assistant. Failures
// are logged only; a reply arriving after Close is dropped.
func (s *Session) assist(userText string) {
	defer s.wg.Done()

	reply, err := s.deps.Responder.Reply(s.ctx, userText)
	if err != nil {
		if s.ctx.Err() != nil {
			metrics.AssistantReplies.WithLabelValues("discarded").Inc()
			return
		}
		metrics.AssistantReplies.WithLabelValues("exhausted").Inc()
		s.log.Warn("assistant reply failed", zap.Error(err))
		return
	}
	if s.ctx.Err() != nil {
		metrics.AssistantReplies.WithLabelValues("discarded").Inc()
		s.log.Debug("assistant reply discarded after close", zap.String("model", reply.Model))
		return
	}

	msg := models.Message{
		ID:          primitive.NewObjectID(),
		Content:     reply.Text,
		SenderID:    models.AssistantSenderID,
		SenderName:  models.AssistantSenderName,
		SenderEmail: models.AssistantSenderEmail,
		IsAI:        true,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	ctx, cancel := timeouts.WithTimeout(s.ctx, timeouts.Short(), s.log, "insert assistant message")
	saved, err := s.deps.Messages.Insert(ctx, msg)
	cancel()
	if err != nil {
		metrics.AssistantReplies.WithLabelValues("store_error").Inc()
		s.log.Warn("assistant message insert failed", zap.Error(err))
		return
	}
	metrics.AssistantReplies.WithLabelValues("ok").Inc()
	metrics.MessagesSent.WithLabelValues("assistant").Inc()
	if s.stream.Merge(saved) {
		s.updates.Push(Update{Kind: UpdateMessageAdded, Message: &saved})
	}
}

// RemoveMember removes targetID acting as this session's member.
func (s *Session) RemoveMember(ctx context.Context, targetID string) error {
	if s.deps.Admin == nil {
		return ErrForbidden
	}
	return s.deps.Admin.RemoveMember(ctx, s.Me(), targetID)
}

// Close unsubscribes, abandons any assistant work, and clears the caches.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	if s.msgSub != nil {
		s.msgSub.Close()
	}
	if s.memSub != nil {
		s.memSub.Close()
	}
	s.wg.Wait()

	s.updates.Close()
	s.dir.Clear()
	s.stream.Clear()
	s.setDraft("")
	if s.started.Load() {
		metrics.ActiveSessions.Dec()
	}
	s.log.Info("chat session closed", zap.Bool("forced", s.forced.Load()))
}
