// Package memberstore persists chat members in the "members" collection.
package memberstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/realtime"
	"github.com/dalemusser/dukhiatma/internal/app/system/normalize"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no member matches the lookup.
	ErrNotFound = errors.New("member not found")
	// ErrForbidden is returned by SetRemoved when the actor is not an active admin.
	ErrForbidden = errors.New("actor is not permitted to remove members")
	errNoEmail   = errors.New("member email is required")
)

type Store struct {
	c   *mongo.Collection
	pub realtime.Publisher
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

// SetPublisher makes the store announce its own writes. Used when the
// realtime feed runs in local mode instead of reading change streams.
func (s *Store) SetPublisher(p realtime.Publisher) {
	s.pub = p
}

func (s *Store) publish(op realtime.Op, m models.Member) {
	if s.pub != nil {
		s.pub.Publish(realtime.MemberChanged(op, m))
	}
}

// GetByEmail looks up a member by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Member, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, ErrNotFound
	}
	return m, err
}

// GetByID looks up a member by hex ObjectID.
func (s *Store) GetByID(ctx context.Context, id string) (models.Member, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Member{}, ErrNotFound
	}
	var m models.Member
	err = s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, ErrNotFound
	}
	return m, err
}

// Ensure returns the member row for m.Email, creating it from m if absent.
// The write is a single upsert keyed by email, so concurrent first logins for
// one identity converge on one row. created reports whether this call
// inserted it. Fields of an existing row are left untouched.
func (s *Store) Ensure(ctx context.Context, m models.Member) (models.Member, bool, error) {
	email := normalize.Email(m.Email)
	if email == "" {
		return models.Member{}, false, errNoEmail
	}
	now := time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{"$setOnInsert": bson.M{
		"email":      email,
		"name":       normalize.Name(m.Name),
		"avatar_url": m.AvatarURL,
		"is_admin":   m.IsAdmin,
		"is_removed": false,
		"created_at": now,
		"updated_at": now,
	}}

	res, err := s.c.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	if err != nil && !wafflemongo.IsDup(err) {
		return models.Member{}, false, err
	}
	// A duplicate-key error means a concurrent upsert won the insert; the
	// row exists either way.
	created := err == nil && res.UpsertedCount == 1

	out, err := s.GetByEmail(ctx, email)
	if err != nil {
		return models.Member{}, false, err
	}
	if created {
		s.publish(realtime.OpInsert, out)
	}
	return out, created, nil
}

// ListActive returns every member whose is_removed flag is false, sorted by name.
func (s *Store) ListActive(ctx context.Context) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"is_removed": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Member{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetRemoved flips is_removed on targetID. The actor is re-read here so a
// client holding a stale admin flag cannot remove anyone: only an active
// admin may write the flag.
func (s *Store) SetRemoved(ctx context.Context, actorID, targetID string) (models.Member, error) {
	actor, err := s.GetByID(ctx, actorID)
	if errors.Is(err, ErrNotFound) {
		return models.Member{}, ErrForbidden
	}
	if err != nil {
		return models.Member{}, err
	}
	if !actor.IsAdmin || actor.IsRemoved {
		return models.Member{}, ErrForbidden
	}

	oid, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return models.Member{}, ErrNotFound
	}

	var out models.Member
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"is_removed": true,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, ErrNotFound
	}
	if err != nil {
		return models.Member{}, err
	}
	s.publish(realtime.OpUpdate, out)
	return out, nil
}
