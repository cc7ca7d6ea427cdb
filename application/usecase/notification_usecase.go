package usecase

import (
	"context"
	"errors"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	"github.com/tripdesk/tripdesk/application/port/outbound"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// NotificationUseCase reads the in-app inbox.
type NotificationUseCase struct {
	store outbound.NotificationStore
}

var _ inbound.NotificationUseCase = (*NotificationUseCase)(nil)

func NewNotificationUseCase(store outbound.NotificationStore) *NotificationUseCase {
	return &NotificationUseCase{store: store}
}

func (uc *NotificationUseCase) Inbox(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	recipient = entity.NormalizeEmail(recipient)
	if recipient == "" {
		return nil, apperror.ErrMissingField("recipient")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := uc.store.ListByRecipient(ctx, recipient, unreadOnly, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError("list notifications", err)
	}
	if items == nil {
		items = []*entity.Notification{}
	}
	return items, nil
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, recipient, id string) error {
	if id == "" {
		return apperror.ErrMissingField("id")
	}
	err := uc.store.MarkRead(ctx, entity.NormalizeEmail(recipient), id)
	if errors.Is(err, outbound.ErrNotificationNotFound) {
		return apperror.ErrInvalidRequest("notification not found")
	}
	if err != nil {
		return apperror.ErrDatabaseError("mark notification read", err)
	}
	return nil
}
