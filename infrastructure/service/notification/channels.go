package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

// InboxChannel stores notifications for the in-app inbox.
type InboxChannel struct {
	store outbound.NotificationStore
}

func NewInboxChannel(store outbound.NotificationStore) *InboxChannel {
	return &InboxChannel{store: store}
}

func (c *InboxChannel) Name() string { return "inbox" }

func (c *InboxChannel) Deliver(ctx context.Context, n *entity.Notification) error {
	return c.store.Save(ctx, n)
}

// LogChannel writes notifications to the service log. It stands in for mail
// delivery in development.
type LogChannel struct {
	logger logger.Logger
}

func NewLogChannel(log logger.Logger) *LogChannel {
	return &LogChannel{logger: log}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Deliver(ctx context.Context, n *entity.Notification) error {
	c.logger.Info(ctx, "Notification delivered", map[string]interface{}{
		"recipient":  n.Recipient,
		"kind":       string(n.Kind),
		"subject":    n.Subject,
		"request_id": n.RequestID,
	})
	return nil
}

// BuildChannels resolves channel names from the approval policy. Channels
// built outside this package, such as the live stream, are matched by Name.
func BuildChannels(names []string, store outbound.NotificationStore, log logger.Logger, extra ...Channel) ([]Channel, error) {
	if len(names) == 0 {
		names = []string{"inbox", "log"}
	}
	channels := make([]Channel, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "inbox":
			channels = append(channels, NewInboxChannel(store))
		case "log":
			channels = append(channels, NewLogChannel(log))
		default:
			ch := findChannel(extra, name)
			if ch == nil {
				return nil, fmt.Errorf("unknown notification channel %q", name)
			}
			channels = append(channels, ch)
		}
	}
	return channels, nil
}

func findChannel(channels []Channel, name string) Channel {
	for _, ch := range channels {
		if ch.Name() == name {
			return ch
		}
	}
	return nil
}
