package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

type NotificationStore struct {
	mu    sync.RWMutex
	items []entity.Notification
}

var _ outbound.NotificationStore = (*NotificationStore)(nil)

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Save(ctx context.Context, n *entity.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.items = append(s.items, *n)
	s.mu.Unlock()
	return nil
}

// ListByRecipient returns newest first.
func (s *NotificationStore) ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*entity.Notification, 0)
	for i := range s.items {
		n := s.items[i]
		if !entity.SameEmail(n.Recipient, recipient) || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, &n)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, 0, limit), nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, recipient, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && entity.SameEmail(s.items[i].Recipient, recipient) {
			s.items[i].Read = true
			return nil
		}
	}
	return outbound.ErrNotificationNotFound
}
