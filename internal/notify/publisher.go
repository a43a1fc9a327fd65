package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/seat-ledger/internal/metrics"
	"github.com/iliyamo/seat-ledger/internal/queue"
)

// Publisher hands notification requests to RabbitMQ.  It implements both
// Notifier and AdminNotifier.  The connection is opened lazily and
// re-dialled after a failure, so a broker outage only costs the messages
// published while it lasts.
type Publisher struct {
	url     string
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, timeout time.Duration, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{url: url, timeout: timeout, log: log, now: time.Now}
}

func (p *Publisher) Notify(ctx context.Context, n Notification) error {
	ev := queue.UserNotificationEvent{
		Broadcast:   n.Target.IsBroadcast(),
		Title:       n.Title,
		Message:     n.Message,
		Category:    n.Category,
		RequestedAt: p.now().UTC().Format(time.RFC3339),
	}
	if id, ok := n.Target.UserID(); ok {
		ev.UserID = id
	}
	return p.publish(ctx, queue.UserQueue, ev)
}

func (p *Publisher) NotifyAdmin(ctx context.Context, n AdminNotification) error {
	prio := n.Priority
	if prio == "" {
		prio = PriorityNormal
	}
	return p.publish(ctx, queue.AdminQueue, queue.AdminNotificationEvent{
		Title:       n.Title,
		Message:     n.Message,
		Category:    n.Category,
		RelatedID:   n.RelatedID,
		Priority:    prio,
		RequestedAt: p.now().UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) (err error) {
	defer func() { metrics.TrackNotification(queueName, err == nil) }()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", queueName, err)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.log.Warn("rabbitmq: publish failed", "queue", queueName, "error", err)
		p.reset()
		return fmt.Errorf("publish %s: %w", queueName, err)
	}
	return nil
}

// channel returns an open channel, dialling when needed.  p.mu must be held.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := queue.Declare(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
