package chat

import (
	"context"
	"errors"

	memberstore "github.com/dalemusser/dukhiatma/internal/app/store/members"
	"github.com/dalemusser/dukhiatma/internal/app/system/metrics"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.uber.org/zap"
)

// AuditSink records admin actions. auditlog.Logger satisfies it.
type AuditSink interface {
	MemberRemoved(ctx context.Context, actorID, targetID string)
	MemberRemoveDenied(ctx context.Context, actorID, targetID, reason string)
}

// Admin performs membership changes on behalf of an acting member.
type Admin struct {
	members MemberStore
	audit   AuditSink
	log     *zap.Logger
}

// NewAdmin builds an Admin. audit may be nil.
func NewAdmin(members MemberStore, audit AuditSink, logger *zap.Logger) *Admin {
	return &Admin{members: members, audit: audit, log: logger}
}

// RemoveMember marks targetID removed. The local admin check only saves a
// round trip; the store re-reads the actor and is the actual authority.
// Removing oneself is rejected. The target's messages are left in place.
func (a *Admin) RemoveMember(ctx context.Context, actor models.Member, targetID string) error {
	actorID := actor.ID.Hex()

	if !actor.IsAdmin || actor.IsRemoved {
		a.denied(ctx, actorID, targetID, "not_admin")
		return ErrForbidden
	}
	if targetID == actorID {
		a.denied(ctx, actorID, targetID, "self_removal")
		return ErrForbidden
	}

	target, err := a.members.SetRemoved(ctx, actorID, targetID)
	switch {
	case err == nil:
	case errors.Is(err, memberstore.ErrForbidden):
		a.denied(ctx, actorID, targetID, "store_rejected")
		return ErrForbidden
	case errors.Is(err, memberstore.ErrNotFound):
		metrics.MembersRemoved.WithLabelValues("not_found").Inc()
		return ErrNotFound
	default:
		metrics.MembersRemoved.WithLabelValues("error").Inc()
		a.log.Error("remove member failed",
			zap.String("actor_id", actorID),
			zap.String("target_id", targetID),
			zap.Error(err))
		return storeErr("remove member", err)
	}

	metrics.MembersRemoved.WithLabelValues("ok").Inc()
	a.log.Info("member removed",
		zap.String("actor_id", actorID),
		zap.String("target_id", targetID),
		zap.String("target_email", target.Email))
	if a.audit != nil {
		a.audit.MemberRemoved(ctx, actorID, targetID)
	}
	return nil
}

func (a *Admin) denied(ctx context.Context, actorID, targetID, reason string) {
	metrics.MembersRemoved.WithLabelValues("forbidden").Inc()
	a.log.Warn("member removal denied",
		zap.String("actor_id", actorID),
		zap.String("target_id", targetID),
		zap.String("reason", reason))
	if a.audit != nil {
		a.audit.MemberRemoveDenied(ctx, actorID, targetID, reason)
	}
}
