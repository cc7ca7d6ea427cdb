package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// ConversationRepository is an append-only in-process conversation log.
type ConversationRepository struct {
	mu       sync.RWMutex
	messages map[string][]entity.ConversationMessage
	now      func() time.Time
}

var _ outbound.ConversationRepository = (*ConversationRepository)(nil)

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		messages: make(map[string][]entity.ConversationMessage),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *ConversationRepository) AppendSystemMessage(ctx context.Context, requestID, text string) error {
	return r.Append(ctx, entity.NewSystemMessage(uuid.NewString(), requestID, text, r.now()))
}

func (r *ConversationRepository) Append(ctx context.Context, msg *entity.ConversationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.messages[msg.RequestID] = append(r.messages[msg.RequestID], *msg)
	r.mu.Unlock()
	return nil
}

func (r *ConversationRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.ConversationMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.messages[requestID]
	out := make([]*entity.ConversationMessage, len(stored))
	for i := range stored {
		m := stored[i]
		out[i] = &m
	}
	return out, nil
}
