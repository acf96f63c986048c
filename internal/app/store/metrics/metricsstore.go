package metricsstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of room totals reported by /health.
type Counts struct {
	Members  int64 `json:"members"`
	Removed  int64 `json:"removed"`
	Admins   int64 `json:"admins"`
	Messages int64 `json:"messages"`
}

// FetchRoomCounts returns the high-level room totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchRoomCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	members := db.Collection("members")

	// active members
	if n, err := members.CountDocuments(ctx, bson.M{"is_removed": false}); err == nil {
		out.Members = n
	}

	// removed members
	if n, err := members.CountDocuments(ctx, bson.M{"is_removed": true}); err == nil {
		out.Removed = n
	}

	// active admins
	if n, err := members.CountDocuments(ctx, bson.M{"is_admin": true, "is_removed": false}); err == nil {
		out.Admins = n
	}

	// messages
	if n, err := db.Collection("messages").CountDocuments(ctx, bson.M{}); err == nil {
		out.Messages = n
	}

	return out
}
