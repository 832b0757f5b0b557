package model

import "time"

// Account is a user's persistent record. The ID is an opaque identifier
// issued at registration; the token balance is only mutated by the ledger.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TokenBalance int       `json:"token_balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
