package repository

import (
	"context"
	"time"

	"github.com/hooksink/hooksink/internal/models"
)

// InsertOutcome reports what an idempotent insert did. A duplicate key is an
// expected outcome, never an error.
type InsertOutcome int

const (
	OutcomeCreated InsertOutcome = iota
	OutcomeDuplicate
)

func (o InsertOutcome) String() string {
	if o == OutcomeDuplicate {
		return "duplicate"
	}
	return "created"
}

// Filter narrows queries over stored messages. Zero values mean "no filter".
type Filter struct {
	// From matches the sender exactly.
	From string
	// Since is an inclusive lower bound on the message timestamp.
	Since *time.Time
	// Q is a case-insensitive substring match over the message text.
	Q string
}

// Page bounds a List result. Limit must already be validated by the caller.
type Page struct {
	Limit  int
	Offset int
}

// SenderCount is one entry of the per-sender message tally.
type SenderCount struct {
	From  string `json:"from"`
	Count int64  `json:"count"`
}

// Stats is an aggregate view over the full store, computed from a single
// consistent snapshot.
type Stats struct {
	TotalMessages     int64         `json:"total_messages"`
	SendersCount      int64         `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *time.Time    `json:"first_message_ts"`
	LastMessageTS     *time.Time    `json:"last_message_ts"`
}

// MessageRepository is the storage contract for webhook messages.
//
// Insert must be atomic: uniqueness of MessageID is enforced by the storage
// layer itself, not by a check-then-insert sequence, so concurrent retries of
// the same delivery leave exactly one record.
//
// List and Stats always apply the (ts ASC, message_id ASC) total order.
type MessageRepository interface {
	Insert(ctx context.Context, msg *models.Message) (InsertOutcome, error)
	List(ctx context.Context, f Filter, p Page) ([]models.Message, int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
	Close()
}

// topSendersLimit caps the messages_per_sender tally. Ties at the boundary
// are broken by sender ascending so the cut is stable across queries.
const topSendersLimit = 10
