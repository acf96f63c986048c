// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assistant sentinel identity. SenderID never collides with a member id
// because member ids are 24-char ObjectID hex strings.
const (
	AssistantSenderID    = "ai-chad"
	AssistantSenderName  = "@chad"
	AssistantSenderEmail = "chad@dukhiatma.ai"
)

// Message is one immutable chat message.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Content     string             `bson:"content" json:"content"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	SenderName  string             `bson:"sender_name" json:"sender_name"`
	SenderEmail string             `bson:"sender_email" json:"sender_email"`
	IsAI        bool               `bson:"is_ai" json:"is_ai"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Before reports whether m sorts ahead of o: created_at ascending, then id.
func (m Message) Before(o Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID.Hex() < o.ID.Hex()
}
