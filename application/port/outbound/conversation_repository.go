package outbound

import (
	"context"

	"github.com/tripdesk/tripdesk/domain/entity"
)

// AuditSink records engine transitions in a request's conversation log.
type AuditSink interface {
	AppendSystemMessage(ctx context.Context, requestID, text string) error
}

type ConversationRepository interface {
	AuditSink
	Append(ctx context.Context, msg *entity.ConversationMessage) error
	ListByRequest(ctx context.Context, requestID string) ([]*entity.ConversationMessage, error)
}
