// Package messagestore persists the single chat room's messages. Messages are
// append-only; nothing here updates or deletes them.
package messagestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/realtime"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateID is returned when a message with the same id already exists.
	ErrDuplicateID = errors.New("message id already exists")
	errNoSender    = errors.New("message sender_id is required")
)

type Store struct {
	c   *mongo.Collection
	pub realtime.Publisher
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// SetPublisher makes Insert announce new rows on the realtime feed.
func (s *Store) SetPublisher(p realtime.Publisher) {
	s.pub = p
}

// ListAll returns the full history ordered by created_at, then id.
func (s *Store) ListAll(ctx context.Context) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert writes m. A caller-supplied ID and CreatedAt are kept so an
// optimistic local copy and the stored row compare equal; zero values are
// filled in. CreatedAt is truncated to the millisecond precision BSON dates hold.
func (s *Store) Insert(ctx context.Context, m models.Message) (models.Message, error) {
	if m.SenderID == "" {
		return models.Message{}, errNoSender
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.CreatedAt = m.CreatedAt.UTC().Truncate(time.Millisecond)

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Message{}, ErrDuplicateID
		}
		return models.Message{}, err
	}
	if s.pub != nil {
		s.pub.Publish(realtime.MessageInserted(m))
	}
	return m, nil
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
