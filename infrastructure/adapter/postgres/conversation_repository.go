package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// ConversationRepository stores the conversation log in its own table so chat
// writes never touch the travel_requests row.
type ConversationRepository struct{ db *sql.DB }

var _ outbound.ConversationRepository = (*ConversationRepository)(nil)

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) AppendSystemMessage(ctx context.Context, requestID, text string) error {
	return r.Append(ctx, entity.NewSystemMessage(uuid.NewString(), requestID, text, time.Now().UTC()))
}

func (r *ConversationRepository) Append(ctx context.Context, msg *entity.ConversationMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, request_id, author_email, author_name, role, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.RequestID, msg.AuthorEmail, msg.AuthorName, string(msg.Role), msg.Body, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append conversation message: %w", err)
	}
	return nil
}

func (r *ConversationRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.ConversationMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, author_email, author_name, role, body, created_at
		FROM conversation_messages
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*entity.ConversationMessage, 0)
	for rows.Next() {
		var m entity.ConversationMessage
		if err := rows.Scan(&m.ID, &m.RequestID, &m.AuthorEmail, &m.AuthorName, &m.Role, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation messages: %w", err)
	}
	return messages, nil
}
