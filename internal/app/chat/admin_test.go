package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"github.com/dalemusser/dukhiatma/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type auditRecorder struct {
	mu      sync.Mutex
	removed []string
	denied  []string
}

func (a *auditRecorder) MemberRemoved(_ context.Context, _, targetID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, targetID)
}

func (a *auditRecorder) MemberRemoveDenied(_ context.Context, _, _, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denied = append(a.denied, reason)
}

func seedAdminRoom(t *testing.T) (*testutil.MemoryMembers, models.Member, models.Member) {
	t.Helper()
	members := testutil.NewMemoryMembers(nil)
	admin := members.Put(models.Member{Email: "admin@example.com", Name: "Admin", IsAdmin: true})
	target := members.Put(models.Member{Email: "x@example.com", Name: "X"})
	return members, admin, target
}

func TestAdmin_RemoveMember(t *testing.T) {
	members, admin, target := seedAdminRoom(t)
	audit := &auditRecorder{}
	a := chat.NewAdmin(members, audit, zap.NewNop())

	require.NoError(t, a.RemoveMember(context.Background(), admin, target.ID.Hex()))

	got, err := members.GetByID(context.Background(), target.ID.Hex())
	require.NoError(t, err)
	assert.True(t, got.IsRemoved)
	assert.Equal(t, []string{target.ID.Hex()}, audit.removed)
}

func TestAdmin_NonAdminForbidden(t *testing.T) {
	members, _, target := seedAdminRoom(t)
	plain := members.Put(models.Member{Email: "p@example.com", Name: "P"})
	audit := &auditRecorder{}
	a := chat.NewAdmin(members, audit, zap.NewNop())

	err := a.RemoveMember(context.Background(), plain, target.ID.Hex())
	assert.ErrorIs(t, err, chat.ErrForbidden)

	// a forged local admin flag is still rejected by the store
	forged := plain
	forged.IsAdmin = true
	err = a.RemoveMember(context.Background(), forged, target.ID.Hex())
	assert.ErrorIs(t, err, chat.ErrForbidden)

	got, _ := members.GetByID(context.Background(), target.ID.Hex())
	assert.False(t, got.IsRemoved)
	assert.Equal(t, []string{"not_admin", "store_rejected"}, audit.denied)
}

func TestAdmin_SelfRemovalForbidden(t *testing.T) {
	members, admin, _ := seedAdminRoom(t)
	a := chat.NewAdmin(members, nil, zap.NewNop())

	err := a.RemoveMember(context.Background(), admin, admin.ID.Hex())
	assert.ErrorIs(t, err, chat.ErrForbidden)
	got, _ := members.GetByID(context.Background(), admin.ID.Hex())
	assert.False(t, got.IsRemoved)
}

func TestAdmin_NotFoundAndStoreErrors(t *testing.T) {
	members, admin, _ := seedAdminRoom(t)
	a := chat.NewAdmin(members, nil, zap.NewNop())

	err := a.RemoveMember(context.Background(), admin, "000000000000000000000000")
	assert.ErrorIs(t, err, chat.ErrNotFound)

	members.Err = errors.New("timeout")
	err = a.RemoveMember(context.Background(), admin, "000000000000000000000001")
	assert.ErrorIs(t, err, chat.ErrStore)
}
