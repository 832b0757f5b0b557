// Package ledger owns the consistency rules for token balances: chore
// completion credits, reward redemption debits, the notifications that
// redemptions produce, and the daily reset sweep that re-arms chores.
//
// Every balance mutation runs as a single database transaction with guarded
// updates, never as a read-modify-write from values held in memory, so
// concurrent operations against the same account cannot lose updates.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"tokenjar/internal/model"
	"tokenjar/internal/store"
)

const maxTxRetries = 4

// SweepScope controls whether a reset sweep re-arms every account's chores
// or a single account's.
type SweepScope string

const (
	SweepGlobal     SweepScope = "global"
	SweepPerAccount SweepScope = "account"
)

type Service struct {
	db            *sql.DB
	accounts      *store.AccountStore
	chores        *store.ChoreStore
	rewards       *store.RewardStore
	notifications *store.NotificationStore
	logger        *slog.Logger
}

func New(db *sql.DB, accounts *store.AccountStore, chores *store.ChoreStore, rewards *store.RewardStore, notifications *store.NotificationStore, logger *slog.Logger) *Service {
	return &Service{
		db:            db,
		accounts:      accounts,
		chores:        chores,
		rewards:       rewards,
		notifications: notifications,
		logger:        logger,
	}
}

// CompleteResult reports whether a completion call credited the balance or
// was an idempotent skip.
type CompleteResult struct {
	Credited bool         `json:"credited"`
	Chore    *model.Chore `json:"chore,omitempty"`
	Balance  int          `json:"balance"`
}

// CompleteChore marks the chore completed and credits its tokens to the
// owning account, atomically. Calling it on a missing or already-completed
// chore is a no-op, not an error; calling it on another account's chore is
// ErrUnauthorized.
func (s *Service) CompleteChore(ctx context.Context, accountID string, choreID int64) (*CompleteResult, error) {
	var res CompleteResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res = CompleteResult{}

		chore, err := s.chores.GetByIDTx(tx, choreID)
		if err != nil {
			return err
		}
		if chore == nil {
			return s.loadBalanceTx(tx, accountID, &res.Balance)
		}
		if chore.AccountID != accountID {
			return ErrUnauthorized
		}
		if chore.Completed {
			res.Chore = chore
			return s.loadBalanceTx(tx, accountID, &res.Balance)
		}

		flipped, err := s.chores.MarkCompleted(tx, choreID, accountID)
		if err != nil {
			return err
		}
		if !flipped {
			// Lost a race within the same transaction scope; treat as skip.
			res.Chore = chore
			return s.loadBalanceTx(tx, accountID, &res.Balance)
		}

		if err := s.accounts.Credit(tx, accountID, chore.Tokens); err != nil {
			return err
		}

		chore.Completed = true
		res.Credited = true
		res.Chore = chore
		return s.loadBalanceTx(tx, accountID, &res.Balance)
	})
	if err != nil {
		return nil, err
	}

	if res.Credited {
		s.logger.Info("chore completed", "account_id", accountID, "chore_id", choreID, "tokens", res.Chore.Tokens, "balance", res.Balance)
	}
	return &res, nil
}

// UncompleteChore is the explicit undo: it re-arms a completed chore and
// debits the earlier credit back. It refuses with ErrInsufficientBalance
// when the tokens have already been spent, so the balance never goes
// negative. Missing or not-completed chores are a no-op.
func (s *Service) UncompleteChore(ctx context.Context, accountID string, choreID int64) (*CompleteResult, error) {
	var res CompleteResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res = CompleteResult{}

		chore, err := s.chores.GetByIDTx(tx, choreID)
		if err != nil {
			return err
		}
		if chore == nil {
			return s.loadBalanceTx(tx, accountID, &res.Balance)
		}
		if chore.AccountID != accountID {
			return ErrUnauthorized
		}
		if !chore.Completed {
			res.Chore = chore
			return s.loadBalanceTx(tx, accountID, &res.Balance)
		}

		ok, err := s.accounts.DebitIfSufficient(tx, accountID, chore.Tokens)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBalance
		}

		if _, err := s.chores.MarkUncompleted(tx, choreID, accountID); err != nil {
			return err
		}

		chore.Completed = false
		res.Credited = true
		res.Chore = chore
		return s.loadBalanceTx(tx, accountID, &res.Balance)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// RedeemResult is the outcome of a successful redemption.
type RedeemResult struct {
	Reward       *model.Reward       `json:"reward"`
	Balance      int                 `json:"balance"`
	Notification *model.Notification `json:"notification"`
}

// RedeemReward debits the reward's cost from the redeemer and writes exactly
// one notification to the reward's creator, in one transaction. The balance
// check happens at commit time via a guarded update, so racing redemptions
// cannot overdraw the account.
func (s *Service) RedeemReward(ctx context.Context, accountID string, rewardID int64) (*RedeemResult, error) {
	var res RedeemResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res = RedeemResult{}

		reward, err := s.rewards.GetByIDTx(tx, rewardID)
		if err != nil {
			return err
		}
		if reward == nil {
			return fmt.Errorf("reward %d: %w", rewardID, ErrNotFound)
		}
		if reward.CreatorID == accountID {
			return ErrSelfRedemption
		}

		redeemer, err := s.accounts.GetByIDTx(tx, accountID)
		if err != nil {
			return err
		}
		if redeemer == nil {
			return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
		}

		ok, err := s.accounts.DebitIfSufficient(tx, accountID, reward.Cost)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBalance
		}

		message := fmt.Sprintf("%s redeemed your reward: %s", redeemer.Email, reward.Name)
		notifID, err := s.notifications.CreateTx(tx, reward.CreatorID, message)
		if err != nil {
			return err
		}

		res.Reward = reward
		res.Notification = &model.Notification{
			ID:          notifID,
			RecipientID: reward.CreatorID,
			Message:     message,
			CreatedAt:   time.Now().UTC(),
		}
		return s.loadBalanceTx(tx, accountID, &res.Balance)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reward redeemed", "account_id", accountID, "reward_id", rewardID, "cost", res.Reward.Cost, "balance", res.Balance)
	return &res, nil
}

// ResetCompletedChores re-arms completed chores: every account's when scope
// is SweepGlobal, only the given account's when scope is SweepPerAccount.
// Balances are untouched; the sweep only re-arms chores for the next cycle.
// Idempotent.
func (s *Service) ResetCompletedChores(ctx context.Context, scope SweepScope, accountID string) (int64, error) {
	var count int64
	var err error
	switch scope {
	case SweepPerAccount:
		count, err = s.chores.ResetCompletedForAccount(accountID)
	default:
		count, err = s.chores.ResetCompleted()
	}
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("reset sweep", "scope", string(scope), "chores_reset", count)
	}
	return count, nil
}

// ToggleNotification sets a notification's archive flag. Only the recipient
// may toggle it.
func (s *Service) ToggleNotification(ctx context.Context, recipientID string, notificationID int64, completed bool) (*model.Notification, error) {
	n, err := s.notifications.GetByID(notificationID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
	}
	if n.RecipientID != recipientID {
		return nil, ErrUnauthorized
	}

	if _, err := s.notifications.SetCompleted(notificationID, recipientID, completed); err != nil {
		return nil, err
	}
	n.Completed = completed
	return n, nil
}

// CreateChore adds a chore owned by the account.
func (s *Service) CreateChore(ctx context.Context, accountID, name string, tokens int) (*model.Chore, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("chore name is required: %w", ErrInvalidInput)
	}
	if tokens <= 0 {
		return nil, fmt.Errorf("chore tokens must be positive: %w", ErrInvalidInput)
	}
	return s.chores.Create(accountID, name, tokens)
}

// DeleteChore removes a chore. Only the owner may delete it.
func (s *Service) DeleteChore(ctx context.Context, accountID string, choreID int64) error {
	chore, err := s.chores.GetByID(choreID)
	if err != nil {
		return err
	}
	if chore == nil {
		return fmt.Errorf("chore %d: %w", choreID, ErrNotFound)
	}
	if chore.AccountID != accountID {
		return ErrUnauthorized
	}
	return s.chores.Delete(choreID)
}

// CreateReward posts a reward redeemable by other accounts.
func (s *Service) CreateReward(ctx context.Context, creatorID, name string, cost int, description string) (*model.Reward, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("reward name is required: %w", ErrInvalidInput)
	}
	if cost <= 0 {
		return nil, fmt.Errorf("reward cost must be positive: %w", ErrInvalidInput)
	}
	return s.rewards.Create(creatorID, name, cost, strings.TrimSpace(description))
}

// DeleteReward removes a reward. Only the creator may delete it. Prior
// notifications from redemptions of the reward are left intact.
func (s *Service) DeleteReward(ctx context.Context, accountID string, rewardID int64) error {
	reward, err := s.rewards.GetByID(rewardID)
	if err != nil {
		return err
	}
	if reward == nil {
		return fmt.Errorf("reward %d: %w", rewardID, ErrNotFound)
	}
	if reward.CreatorID != accountID {
		return ErrUnauthorized
	}
	return s.rewards.Delete(rewardID)
}

func (s *Service) loadBalanceTx(tx *sql.Tx, accountID string, out *int) error {
	a, err := s.accounts.GetByIDTx(tx, accountID)
	if err != nil {
		return err
	}
	if a != nil {
		*out = a.TokenBalance
	}
	return nil
}

// inTx runs fn in a transaction, retrying the whole transaction a bounded
// number of times when SQLite reports the database busy, then surfacing
// ErrStoreConflict.
func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	b := retry.WithMaxRetries(maxTxRetries, retry.NewFibonacci(5*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return markRetryable(fmt.Errorf("begin tx: %w", err))
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return markRetryable(err)
		}
		if err := tx.Commit(); err != nil {
			return markRetryable(fmt.Errorf("commit tx: %w", err))
		}
		return nil
	})
	if err != nil && isBusy(err) {
		return fmt.Errorf("%w: %v", ErrStoreConflict, err)
	}
	return err
}

func markRetryable(err error) error {
	if isBusy(err) {
		return retry.RetryableError(err)
	}
	return err
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
