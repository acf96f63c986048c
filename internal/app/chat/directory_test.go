package chat_test

import (
	"testing"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"github.com/dalemusser/dukhiatma/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_LoadAndApply(t *testing.T) {
	me := testutil.NewMember("Me", "me@example.com", false)
	bob := testutil.NewMember("Bob", "bob@example.com", false)
	d := chat.NewDirectory(me.ID.Hex())
	d.Load([]models.Member{me, bob})
	require.Equal(t, 2, d.Len())

	// unseen member is inserted
	cara := testutil.NewMember("Cara", "cara@example.com", false)
	assert.False(t, d.Apply(cara))
	_, ok := d.Get(cara.ID.Hex())
	assert.True(t, ok)

	// removal evicts, and replaying it changes nothing
	removed := bob
	removed.IsRemoved = true
	removed.UpdatedAt = bob.UpdatedAt.Add(time.Second)
	assert.False(t, d.Apply(removed))
	assert.False(t, d.Apply(removed))
	_, ok = d.Get(bob.ID.Hex())
	assert.False(t, ok)
	assert.Equal(t, 2, d.Len())

	// a stale active row delivered late does not resurrect bob
	assert.False(t, d.Apply(bob))
	_, ok = d.Get(bob.ID.Hex())
	assert.False(t, ok)
}

func TestDirectory_ForcedLogoutForSelf(t *testing.T) {
	me := testutil.NewMember("Me", "me@example.com", false)
	d := chat.NewDirectory(me.ID.Hex())

	// signalled even when the directory never held the row
	gone := me
	gone.IsRemoved = true
	assert.True(t, d.Apply(gone))

	other := testutil.NewMember("Other", "o@example.com", false)
	other.IsRemoved = true
	assert.False(t, d.Apply(other))
}

func TestDirectory_LoadKeepsNewerLocalState(t *testing.T) {
	me := testutil.NewMember("Me", "me@example.com", false)
	bob := testutil.NewMember("Bob", "bob@example.com", false)
	d := chat.NewDirectory(me.ID.Hex())

	removed := bob
	removed.IsRemoved = true
	removed.UpdatedAt = bob.UpdatedAt.Add(time.Second)
	d.Apply(removed)

	// a bulk fetch that started before the removal still lists bob
	d.Load([]models.Member{me, bob})
	_, ok := d.Get(bob.ID.Hex())
	assert.False(t, ok)
	assert.Equal(t, 1, d.Len())
}

func TestDirectory_MembersAndRemovable(t *testing.T) {
	admin := testutil.NewMember("Zed", "admin@example.com", true)
	amy := testutil.NewMember("Amy", "amy@example.com", false)
	d := chat.NewDirectory(admin.ID.Hex())
	d.Load([]models.Member{admin, amy})

	members := d.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "Amy", members[0].Name)

	removable := d.Removable(admin)
	require.Len(t, removable, 1)
	assert.Equal(t, amy.ID, removable[0].ID)

	assert.Empty(t, d.Removable(amy))
}
