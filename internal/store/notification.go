package store

import (
	"database/sql"
	"fmt"

	"tokenjar/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var completed int

	err := scanner.Scan(&n.ID, &n.RecipientID, &n.Message, &completed, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	n.Completed = completed != 0
	return &n, nil
}

const notificationCols = `id, recipient_id, message, completed, created_at`

// CreateTx inserts a notification inside the given transaction, so a
// redemption's debit and its notification commit together or not at all.
func (s *NotificationStore) CreateTx(tx *sql.Tx, recipientID, message string) (int64, error) {
	result, err := tx.Exec(
		`INSERT INTO notifications (recipient_id, message) VALUES (?, ?)`,
		recipientID, message,
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *NotificationStore) GetByID(id int64) (*model.Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListByRecipient returns a recipient's notifications newest first. A limit
// of 0 means no limit.
func (s *NotificationStore) ListByRecipient(recipientID string, limit int) ([]model.Notification, error) {
	query := `SELECT ` + notificationCols + ` FROM notifications WHERE recipient_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{recipientID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// SetCompleted sets the archive flag, guarded by the recipient id. Returns
// true when a row was updated.
func (s *NotificationStore) SetCompleted(id int64, recipientID string, completed bool) (bool, error) {
	var c int
	if completed {
		c = 1
	}

	result, err := s.db.Exec(
		`UPDATE notifications SET completed = ? WHERE id = ? AND recipient_id = ?`,
		c, id, recipientID,
	)
	if err != nil {
		return false, fmt.Errorf("set notification completed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
