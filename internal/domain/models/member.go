// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member is a chat participant.
//
// NOTE:
//   - Members are never deleted. Removal is the IsRemoved soft flag.
//   - IsAdmin is decided once, when the member is first created, from the
//     configured admin allow-list.
type Member struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"` // trimmed, lower case, unique
	Name      string             `bson:"name" json:"name"`
	AvatarURL string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	IsAdmin   bool               `bson:"is_admin" json:"is_admin"`
	IsRemoved bool               `bson:"is_removed" json:"is_removed"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Active reports whether the member belongs in the membership directory.
func (m Member) Active() bool { return !m.IsRemoved }
