package memberstore

import (
	"context"

	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/dalemusser/dukhiatma/internal/app/system/timeouts"
)

// Fetcher implements auth.MemberFetcher so each request sees the member's
// current admin and removed flags rather than what the cookie recorded at
// login.
type Fetcher struct {
	store *Store
}

// NewFetcher wraps a Store.
func NewFetcher(s *Store) *Fetcher {
	return &Fetcher{store: s}
}

// FetchMember returns nil when the member does not exist or the lookup fails.
// A removed member is returned with IsRemoved set so callers can route them
// to the removed notice.
func (f *Fetcher) FetchMember(ctx context.Context, id string) *auth.SessionUser {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	m, err := f.store.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	return &auth.SessionUser{
		ID:        m.ID.Hex(),
		Name:      m.Name,
		Email:     m.Email,
		AvatarURL: m.AvatarURL,
		IsAdmin:   m.IsAdmin,
		IsRemoved: m.IsRemoved,
	}
}
