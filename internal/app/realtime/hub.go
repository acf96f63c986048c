package realtime

import (
	"sync"

	"github.com/dalemusser/dukhiatma/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Hub is an in-process fan-out of change events to per-table subscriptions.
// It is safe for concurrent use.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
	log  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
		log:  logger,
	}
}

// Subscription is one consumer's queue for a single table.
type Subscription struct {
	hub   *Hub
	table string
	q     *Queue[Event]
	once  sync.Once
}

// Subscribe registers a new subscription for table.
func (h *Hub) Subscribe(table string) *Subscription {
	s := &Subscription{hub: h, table: table, q: NewQueue[Event]()}

	h.mu.Lock()
	set, ok := h.subs[table]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[table] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	return s
}

// Publish delivers ev to every subscription on ev.Table.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subs[ev.Table]
	for s := range set {
		s.q.Push(ev)
	}
	metrics.RealtimeEvents.WithLabelValues(ev.Table, string(ev.Op)).Inc()

	if ce := h.log.Check(zap.DebugLevel, "realtime event published"); ce != nil {
		ce.Write(
			zap.String("table", ev.Table),
			zap.String("op", string(ev.Op)),
			zap.Int("subscribers", len(set)),
		)
	}
}

// Subscribers returns the number of live subscriptions on table.
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}

// Table returns the subscribed table name.
func (s *Subscription) Table() string { return s.table }

// Ready is signalled when events are waiting.
func (s *Subscription) Ready() <-chan struct{} { return s.q.Ready() }

// Drain takes every waiting event in delivery order.
func (s *Subscription) Drain() []Event { return s.q.Drain() }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if set, ok := s.hub.subs[s.table]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.hub.subs, s.table)
			}
		}
		s.hub.mu.Unlock()
		s.q.Close()
	})
}
