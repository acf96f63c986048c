package messagestore_test

import (
	"errors"
	"testing"
	"time"

	messagestore "github.com/dalemusser/dukhiatma/internal/app/store/messages"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"github.com/dalemusser/dukhiatma/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Insert_KeepsClientIDAndTime(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	at := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	got, err := store.Insert(ctx, models.Message{
		ID:        id,
		Content:   "hello",
		SenderID:  "m1",
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID replaced: %s", got.ID.Hex())
	}
	if !got.CreatedAt.Equal(at.Truncate(time.Millisecond)) {
		t.Errorf("CreatedAt: got %v", got.CreatedAt)
	}

	list, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(list) != 1 || list[0].ID != id || !list[0].CreatedAt.Equal(got.CreatedAt) {
		t.Errorf("stored row differs from returned: %+v", list)
	}
}

func TestStore_Insert_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Insert(ctx, models.Message{Content: "x"}); err == nil {
		t.Error("expected error without sender")
	}

	m, err := store.Insert(ctx, models.Message{Content: "x", SenderID: "m1"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if m.ID.IsZero() || m.CreatedAt.IsZero() {
		t.Error("zero ID/CreatedAt should be filled")
	}

	if _, err := store.Insert(ctx, m); !errors.Is(err, messagestore.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestStore_ListAll_Ordered(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, off := range []int{3, 1, 2} {
		if _, err := store.Insert(ctx, models.Message{
			Content:   "m",
			SenderID:  "s",
			CreatedAt: base.Add(time.Duration(off) * time.Second),
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	list, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].Before(list[i-1]) {
			t.Errorf("messages out of order at %d", i)
		}
	}

	n, err := store.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count: %d, %v", n, err)
	}
}
