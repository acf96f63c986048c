package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/dukhiatma/internal/domain/models"
)

// Directory is a session's view of the active members, keyed by member id.
// Updates are last-write-wins on updated_at, so replays and out-of-order
// delivery of the same change leave it unchanged.
type Directory struct {
	mu      sync.RWMutex
	selfID  string
	members map[string]models.Member
	removed map[string]time.Time // evicted id -> updated_at of the eviction
}

// NewDirectory creates an empty directory for the member selfID.
func NewDirectory(selfID string) *Directory {
	return &Directory{
		selfID:  selfID,
		members: make(map[string]models.Member),
		removed: make(map[string]time.Time),
	}
}

// newer reports whether the locally held version of id is strictly newer
// than at.
func (d *Directory) newer(id string, at time.Time) bool {
	if cur, ok := d.members[id]; ok && cur.UpdatedAt.After(at) {
		return true
	}
	if ts, ok := d.removed[id]; ok && ts.After(at) {
		return true
	}
	return false
}

// Load replaces the mapping with a bulk fetch of active members. Entries the
// directory already holds in a newer version win over the fetched rows, which
// covers events applied while the fetch was in flight.
func (d *Directory) Load(fetched []models.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := make(map[string]models.Member, len(fetched))
	for _, m := range fetched {
		id := m.ID.Hex()
		if ts, ok := d.removed[id]; ok && ts.After(m.UpdatedAt) {
			continue
		}
		if cur, ok := d.members[id]; ok && cur.UpdatedAt.After(m.UpdatedAt) {
			next[id] = cur
			continue
		}
		if m.Active() {
			next[id] = m
		}
	}
	d.members = next
}

// Apply merges one changed member row. A removed row is evicted; any other
// row is inserted or replaced, including ids the bulk fetch never returned.
// forcedLogout is true when the row is this session's own member and it has
// been removed.
func (d *Directory) Apply(m models.Member) (forcedLogout bool) {
	id := m.ID.Hex()
	forcedLogout = m.IsRemoved && id == d.selfID

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.newer(id, m.UpdatedAt) {
		return forcedLogout
	}
	if m.IsRemoved {
		delete(d.members, id)
		d.removed[id] = m.UpdatedAt
		return forcedLogout
	}
	delete(d.removed, id)
	d.members[id] = m
	return forcedLogout
}

// Get returns the active member with id.
func (d *Directory) Get(id string) (models.Member, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.members[id]
	return m, ok
}

// Members returns the active members sorted by name, then id.
func (d *Directory) Members() []models.Member {
	d.mu.RLock()
	out := make([]models.Member, 0, len(d.members))
	for _, m := range d.members {
		out = append(out, m)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}

// Removable returns the members actor may remove: none unless actor is an
// admin, and never actor themself.
func (d *Directory) Removable(actor models.Member) []models.Member {
	if !actor.IsAdmin || actor.IsRemoved {
		return []models.Member{}
	}
	self := actor.ID.Hex()
	all := d.Members()
	out := make([]models.Member, 0, len(all))
	for _, m := range all {
		if m.ID.Hex() != self {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of active members.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members)
}

// Clear drops all cached state.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = make(map[string]models.Member)
	d.removed = make(map[string]time.Time)
}
