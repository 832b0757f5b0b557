package store

import (
	"database/sql"
	"fmt"

	"tokenjar/internal/model"
)

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	err := scanner.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.TokenBalance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const accountCols = `id, email, password_hash, token_balance, created_at, updated_at`

func (s *AccountStore) Create(id, email, passwordHash string) (*model.Account, error) {
	_, err := s.db.Exec(
		`INSERT INTO accounts (id, email, password_hash) VALUES (?, ?, ?)`,
		id, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return s.GetByID(id)
}

// CreateIfAbsent inserts an account with a zero balance if no record exists
// for the id. Safe under concurrent calls: the insert is ignored when the
// row is already present, so all callers converge on one record.
func (s *AccountStore) CreateIfAbsent(id, email, passwordHash string) (*model.Account, error) {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO accounts (id, email, password_hash) VALUES (?, ?, ?)`,
		id, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account if absent: %w", err)
	}
	a, err := s.GetByID(id)
	if err != nil || a != nil {
		return a, err
	}
	// The insert was ignored because the email is already registered.
	return s.GetByEmail(email)
}

func (s *AccountStore) GetByID(id string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(email string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

// ListIDs returns every account id, for sweeps that walk accounts one at a time.
func (s *AccountStore) ListIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByIDTx reads an account inside the given transaction.
func (s *AccountStore) GetByIDTx(tx *sql.Tx, id string) (*model.Account, error) {
	row := tx.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// Credit adds delta tokens to the account's balance inside the given
// transaction. The balance is adjusted in place by the database, never
// computed from a previously read value.
func (s *AccountStore) Credit(tx *sql.Tx, id string, delta int) error {
	result, err := tx.Exec(
		`UPDATE accounts SET token_balance = token_balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DebitIfSufficient subtracts amount from the account's balance inside the
// given transaction, but only when the stored balance covers it. Returns
// false (and performs no write) when the balance is insufficient or the
// account does not exist.
func (s *AccountStore) DebitIfSufficient(tx *sql.Tx, id string, amount int) (bool, error) {
	result, err := tx.Exec(
		`UPDATE accounts SET token_balance = token_balance - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND token_balance >= ?`,
		amount, id, amount,
	)
	if err != nil {
		return false, fmt.Errorf("debit account: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
