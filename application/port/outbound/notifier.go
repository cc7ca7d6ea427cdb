package outbound

import (
	"context"
	"errors"

	"github.com/tripdesk/tripdesk/domain/entity"
)

// Message is what the engine hands to the notifier.
type Message struct {
	Recipient  string
	Kind       entity.NotificationKind
	Title      string
	Body       string
	RequestRef string
}

// Notifier is fire-and-forget. An error means the message could not be
// queued, never that the caller's work should be undone.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationStore keeps delivered notifications for the in-app inbox.
type NotificationStore interface {
	Save(ctx context.Context, n *entity.Notification) error
	ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, recipient, id string) error
}
