package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Sink drains both notification queues and appends every request to a
// log file, one line per request.  It stands in for the real delivery
// service in development.
type Sink struct {
	URL     string
	LogPath string
	Log     *slog.Logger
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broken
// connections are re-dialled with exponential backoff.
func (s *Sink) Run(ctx context.Context) error {
	log := s.logger()
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(s.URL)
		if err != nil {
			log.Warn("notification-sink: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = s.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("notification-sink: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (s *Sink) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Sink) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if err := Declare(ch); err != nil {
		return err
	}
	users, err := ch.Consume(UserQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", UserQueue, err)
	}
	admins, err := ch.Consume(AdminQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", AdminQueue, err)
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-users:
		case d, ok = <-admins:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		line, err := FormatLine(d.RoutingKey, d.Body)
		if err == nil {
			err = s.appendLine(line)
		}
		if err != nil {
			s.logger().Warn("notification-sink: handle message failed", "queue", d.RoutingKey, "error", err)
			_ = d.Nack(false, false) // do not requeue, avoids tight redelivery loops
			continue
		}
		_ = d.Ack(false)
	}
}

// FormatLine renders one queued request as a single human-readable line.
func FormatLine(queueName string, body []byte) (string, error) {
	switch queueName {
	case UserQueue:
		var ev UserNotificationEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		to := fmt.Sprintf("user_id=%d", ev.UserID)
		if ev.Broadcast {
			to = "broadcast"
		}
		return fmt.Sprintf("[%s] USER %s | category=%s | title=%q | message=%q\n",
			ev.RequestedAt, to, ev.Category, ev.Title, ev.Message), nil
	case AdminQueue:
		var ev AdminNotificationEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] ADMIN %s | category=%s | related_id=%s | title=%q | message=%q\n",
			ev.RequestedAt, strings.ToUpper(ev.Priority), ev.Category, ev.RelatedID, ev.Title, ev.Message), nil
	}
	return "", fmt.Errorf("unexpected queue %q", queueName)
}

func (s *Sink) appendLine(line string) error {
	if err := os.MkdirAll(filepath.Dir(s.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(s.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
