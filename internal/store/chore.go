package store

import (
	"database/sql"
	"fmt"

	"tokenjar/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var completed int

	err := scanner.Scan(&c.ID, &c.AccountID, &c.Name, &c.Tokens, &completed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Completed = completed != 0
	return &c, nil
}

const choreCols = `id, account_id, name, tokens, completed, created_at, updated_at`

func (s *ChoreStore) Create(accountID, name string, tokens int) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (account_id, name, tokens) VALUES (?, ?, ?)`,
		accountID, name, tokens,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// GetByIDTx reads a chore inside the given transaction.
func (s *ChoreStore) GetByIDTx(tx *sql.Tx, id int64) (*model.Chore, error) {
	row := tx.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByAccount(accountID string) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE account_id = ? ORDER BY name ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// MarkCompleted flips the chore to completed inside the given transaction,
// guarded so an already-completed or foreign chore is untouched. Returns
// true only when this call performed the flip.
func (s *ChoreStore) MarkCompleted(tx *sql.Tx, id int64, accountID string) (bool, error) {
	result, err := tx.Exec(
		`UPDATE chores SET completed = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND account_id = ? AND completed = 0`,
		id, accountID,
	)
	if err != nil {
		return false, fmt.Errorf("mark chore completed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkUncompleted re-arms a completed chore inside the given transaction.
// Returns true only when this call performed the flip.
func (s *ChoreStore) MarkUncompleted(tx *sql.Tx, id int64, accountID string) (bool, error) {
	result, err := tx.Exec(
		`UPDATE chores SET completed = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND account_id = ? AND completed = 1`,
		id, accountID,
	)
	if err != nil {
		return false, fmt.Errorf("mark chore uncompleted: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ResetCompleted re-arms every completed chore in the store and returns how
// many were flipped. Running it with nothing completed is a no-op.
func (s *ChoreStore) ResetCompleted() (int64, error) {
	result, err := s.db.Exec(
		`UPDATE chores SET completed = 0, updated_at = CURRENT_TIMESTAMP WHERE completed = 1`,
	)
	if err != nil {
		return 0, fmt.Errorf("reset completed chores: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// ResetCompletedForAccount re-arms the completed chores of a single account.
func (s *ChoreStore) ResetCompletedForAccount(accountID string) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE chores SET completed = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE account_id = ? AND completed = 1`,
		accountID,
	)
	if err != nil {
		return 0, fmt.Errorf("reset completed chores for account: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
