// Package realtime fans change events from the member and message
// collections out to chat sessions.
//
// Delivery is at-least-once and carries no ordering guarantee relative to a
// session's bulk fetch. Consumers dedupe by record id.
package realtime

import (
	"github.com/dalemusser/dukhiatma/internal/domain/models"
)

// Op is the kind of change carried by an Event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	// OpResync tells subscribers the feed may have missed events and cached
	// state for the table should be rebuilt from a bulk fetch.
	OpResync Op = "RESYNC"
)

// Table names, matching the MongoDB collections.
const (
	TableMessages = "messages"
	TableMembers  = "members"
)

// Event is one change on a table. Exactly one of Member or Message is set for
// INSERT and UPDATE; neither is set for RESYNC.
type Event struct {
	Op      Op              `json:"op"`
	Table   string          `json:"table"`
	Member  *models.Member  `json:"member,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}

// Publisher accepts events for fan-out.
type Publisher interface {
	Publish(ev Event)
}

// MemberChanged builds an event for a member row.
func MemberChanged(op Op, m models.Member) Event {
	return Event{Op: op, Table: TableMembers, Member: &m}
}

// MessageInserted builds an INSERT event for a message row.
func MessageInserted(m models.Message) Event {
	return Event{Op: OpInsert, Table: TableMessages, Message: &m}
}
