// Package queue defines message payloads exchanged over the message broker
// plus the publisher and consumer for lending notifications.
package queue

// Event kinds published to the lending.events queue.
const (
	KindBorrowed = "BORROWED"
	KindReturned = "RETURNED"
)

// LendingEvent is published after a borrow or return transaction has
// committed.  It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type LendingEvent struct {
	EventID    string `json:"event_id"`
	Kind       string `json:"kind"`
	MemberName string `json:"member_name"`
	BookTitle  string `json:"book_title"`
	OccurredAt string `json:"occurred_at"`
}
