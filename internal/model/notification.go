package model

import "time"

// Notification is a message to a reward's creator, written when their reward
// is redeemed. Completed is the recipient's archive flag.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}
