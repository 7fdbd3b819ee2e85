package models

import "time"

// Message is the stored representation of a delivered webhook message.
// Messages are immutable once inserted; MessageID is the idempotency key.
type Message struct {
	MessageID string
	From      string
	To        string
	TS        time.Time
	Text      string
	CreatedAt time.Time
}
