package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

var (
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
	ErrQueueFull        = errors.New("notification queue is full")
)

// Channel delivers one notification somewhere.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n *entity.Notification) error
}

type Config struct {
	PoolSize int
	// QueueSize bounds deliveries waiting for a worker. Notify drops instead
	// of waiting once it is full.
	QueueSize int
	// OverrideRecipient redirects every delivery to one address. The intended
	// recipient is kept in the body.
	OverrideRecipient string
	ShutdownTimeout   time.Duration
}

// Dispatcher queues notifications for an ants pool so Notify never waits on
// a channel or a busy worker. Deliveries run on the dispatcher's own context
// and survive the request that triggered them.
type Dispatcher struct {
	pool     *ants.Pool
	queue    chan func()
	fed      chan struct{}
	channels []Channel
	override string
	timeout  time.Duration
	logger   logger.Logger

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
	newID  func() string
}

var _ outbound.Notifier = (*Dispatcher)(nil)

func NewDispatcher(cfg Config, log logger.Logger, channels ...Channel) (*Dispatcher, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 16
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	panicHandler := func(p interface{}) {
		log.Error(context.Background(), "Notification worker panic recovered", fmt.Errorf("%v", p), nil)
	}
	pool, err := ants.NewPool(cfg.PoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		pool:     pool,
		queue:    make(chan func(), cfg.QueueSize),
		fed:      make(chan struct{}),
		channels: channels,
		override: entity.NormalizeEmail(cfg.OverrideRecipient),
		timeout:  cfg.ShutdownTimeout,
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	go d.feed()
	return d, nil
}

// Notify enqueues msg and returns at once. A full queue drops the delivery
// with ErrQueueFull.
func (d *Dispatcher) Notify(ctx context.Context, msg outbound.Message) error {
	if msg.Recipient == "" {
		return fmt.Errorf("notification recipient cannot be empty")
	}
	n := d.build(msg)
	correlationID := logger.CorrelationID(ctx)
	task := func() {
		taskCtx := logger.WithCorrelationID(d.ctx, correlationID)
		d.deliver(taskCtx, n)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- task:
		return nil
	default:
		d.logger.Warn(ctx, "Notification dropped, queue full", map[string]interface{}{
			"recipient":  n.Recipient,
			"kind":       string(n.Kind),
			"request_id": n.RequestID,
		})
		return ErrQueueFull
	}
}

// feed moves queued deliveries onto the pool, waiting for free workers.
func (d *Dispatcher) feed() {
	defer close(d.fed)
	for task := range d.queue {
		if err := d.pool.Submit(task); err != nil {
			d.logger.Error(d.ctx, "Notification not delivered", err, nil)
		}
	}
}

func (d *Dispatcher) build(msg outbound.Message) *entity.Notification {
	recipient := msg.Recipient
	body := msg.Body
	if d.override != "" && !entity.SameEmail(d.override, recipient) {
		body = fmt.Sprintf("[originally for %s] %s", entity.NormalizeEmail(recipient), body)
		recipient = d.override
	}
	return entity.NewNotification(d.newID(), recipient, msg.RequestRef, msg.Kind, msg.Title, body, d.now())
}

func (d *Dispatcher) deliver(ctx context.Context, n *entity.Notification) {
	for _, ch := range d.channels {
		if err := ch.Deliver(ctx, n); err != nil {
			d.logger.Error(ctx, "Notification delivery failed", err, map[string]interface{}{
				"channel":    ch.Name(),
				"recipient":  n.Recipient,
				"kind":       string(n.Kind),
				"request_id": n.RequestID,
			})
		}
	}
}

// Close stops accepting notifications and waits for queued deliveries up to
// the shutdown timeout.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	defer d.cancel()

	deadline := time.Now().Add(d.timeout)
	select {
	case <-d.fed:
	case <-time.After(d.timeout):
		d.pool.Release()
		return fmt.Errorf("notification queue did not drain within %s", d.timeout)
	}
	if err := d.pool.ReleaseTimeout(time.Until(deadline)); err != nil {
		return fmt.Errorf("notification pool did not drain: %w", err)
	}
	return nil
}

// Stats reports pool usage for the health endpoint.
func (d *Dispatcher) Stats() map[string]int {
	return map[string]int{
		"running": d.pool.Running(),
		"free":    d.pool.Free(),
		"cap":     d.pool.Cap(),
		"waiting": d.pool.Waiting(),
		"queued":  len(d.queue),
	}
}
