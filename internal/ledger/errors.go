package ledger

import "errors"

var (
	// ErrNotFound means the entity id did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized means the caller is not the owner, creator, or
	// recipient the operation requires.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientBalance means the account's balance does not cover the
	// requested debit. No mutation occurs.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSelfRedemption means an account tried to redeem its own reward.
	ErrSelfRedemption = errors.New("cannot redeem own reward")

	// ErrInvalidInput means an empty name or a non-positive token amount.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreConflict means the transaction kept losing the database lock
	// and the retry budget is exhausted. Safe to retry from the caller.
	ErrStoreConflict = errors.New("store conflict")
)
