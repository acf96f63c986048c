package chat

import (
	"context"

	"github.com/dalemusser/dukhiatma/internal/app/realtime"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
)

// MemberStore is the subset of the member store the chat core uses.
// Implementations return memberstore.ErrNotFound and memberstore.ErrForbidden.
type MemberStore interface {
	GetByEmail(ctx context.Context, email string) (models.Member, error)
	GetByID(ctx context.Context, id string) (models.Member, error)
	Ensure(ctx context.Context, m models.Member) (models.Member, bool, error)
	ListActive(ctx context.Context) ([]models.Member, error)
	SetRemoved(ctx context.Context, actorID, targetID string) (models.Member, error)
}

// MessageStore is the subset of the message store the chat core uses.
type MessageStore interface {
	ListAll(ctx context.Context) ([]models.Message, error)
	Insert(ctx context.Context, m models.Message) (models.Message, error)
}

// Feed hands out realtime subscriptions per table.
type Feed interface {
	Subscribe(table string) *realtime.Subscription
}
