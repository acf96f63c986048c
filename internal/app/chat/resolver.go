package chat

import (
	"context"
	"errors"

	memberstore "github.com/dalemusser/dukhiatma/internal/app/store/members"
	"github.com/dalemusser/dukhiatma/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dukhiatma/internal/app/system/normalize"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.uber.org/zap"
)

// Identity is what the identity provider vouches for after sign-in.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// Resolver maps a signed-in identity to a chat member, creating the member
// on first sighting.
type Resolver struct {
	members MemberStore
	admins  map[string]struct{}
	log     *zap.Logger
}

// NewResolver builds a resolver. adminEmails is the allow-list consulted only
// when a member row is first created.
func NewResolver(members MemberStore, adminEmails []string, logger *zap.Logger) *Resolver {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalize.Email(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &Resolver{members: members, admins: admins, log: logger}
}

// IsAdminEmail reports whether email is on the admin allow-list.
func (r *Resolver) IsAdminEmail(email string) bool {
	_, ok := r.admins[normalize.Email(email)]
	return ok
}

// Resolve returns the member for id. It fails with ErrUnauthenticated when id
// carries no email, and ErrUnauthorized when the member has been removed.
func (r *Resolver) Resolve(ctx context.Context, id *Identity) (models.Member, error) {
	if id == nil {
		return models.Member{}, ErrUnauthenticated
	}
	email := normalize.Email(id.Email)
	if email == "" {
		return models.Member{}, ErrUnauthenticated
	}

	m, err := r.members.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, memberstore.ErrNotFound):
		name := normalize.Name(htmlsanitize.PlainText(id.Name))
		if name == "" {
			name = email
		}
		var created bool
		m, created, err = r.members.Ensure(ctx, models.Member{
			Email:     email,
			Name:      name,
			AvatarURL: id.AvatarURL,
			IsAdmin:   r.IsAdminEmail(email),
		})
		if err != nil {
			return models.Member{}, storeErr("create member", err)
		}
		if created {
			r.log.Info("member created",
				zap.String("member_id", m.ID.Hex()),
				zap.String("email", email),
				zap.Bool("is_admin", m.IsAdmin))
		}
	default:
		return models.Member{}, storeErr("lookup member", err)
	}

	if m.IsRemoved {
		r.log.Info("removed member denied",
			zap.String("member_id", m.ID.Hex()),
			zap.String("email", email))
		return models.Member{}, ErrUnauthorized
	}
	return m, nil
}
