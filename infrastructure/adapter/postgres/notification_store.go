package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

type NotificationStore struct{ db *sql.DB }

var _ outbound.NotificationStore = (*NotificationStore)(nil)

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Save(ctx context.Context, n *entity.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient, request_id, kind, subject, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.Recipient, nullString(n.RequestID), string(n.Kind), n.Subject, n.Body, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient, request_id, kind, subject, body, read, created_at
		FROM notifications
		WHERE recipient = $1 AND ($2 = false OR read = false)
		ORDER BY created_at DESC
		LIMIT $3
	`, entity.NormalizeEmail(recipient), unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	items := make([]*entity.Notification, 0)
	for rows.Next() {
		var (
			n         entity.Notification
			requestID sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Recipient, &requestID, &n.Kind, &n.Subject, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.RequestID = requestID.String
		items = append(items, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return items, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, recipient, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = true WHERE id = $1 AND recipient = $2
	`, id, entity.NormalizeEmail(recipient))
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return outbound.ErrNotificationNotFound
	}
	return nil
}
