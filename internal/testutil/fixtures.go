package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test rows directly, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateMember inserts an active member.
func (f *Fixtures) CreateMember(ctx context.Context, name, email string, admin bool) models.Member {
	f.t.Helper()
	m := NewMember(name, email, admin)
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateMessage inserts a message from sender at the given time.
func (f *Fixtures) CreateMessage(ctx context.Context, sender models.Member, content string, at time.Time) models.Message {
	f.t.Helper()
	msg := models.Message{
		ID:          primitive.NewObjectID(),
		Content:     content,
		SenderID:    sender.ID.Hex(),
		SenderName:  sender.Name,
		SenderEmail: sender.Email,
		CreatedAt:   at.UTC().Truncate(time.Millisecond),
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, msg); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return msg
}

// NewMember builds an unsaved active member with a fresh id.
func NewMember(name, email string, admin bool) models.Member {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.Member{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Name:      name,
		IsAdmin:   admin,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
