// Package queue defines the notification payloads exchanged over the
// message broker and the development consumer that drains them.
package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	UserQueue  = "ledger.notifications"
	AdminQueue = "ledger.admin_notifications"
)

// UserNotificationEvent asks the delivery service to notify one user, or
// everyone when Broadcast is set.
type UserNotificationEvent struct {
	UserID      uint64 `json:"user_id,omitempty"`
	Broadcast   bool   `json:"broadcast"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Category    string `json:"category"`
	RequestedAt string `json:"requested_at"`
}

// AdminNotificationEvent asks the delivery service to notify operators.
type AdminNotificationEvent struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Category    string `json:"category"`
	RelatedID   string `json:"related_id"`
	Priority    string `json:"priority"`
	RequestedAt string `json:"requested_at"`
}

// Declare makes sure both durable queues exist.  It is idempotent.
func Declare(ch *amqp.Channel) error {
	for _, name := range []string{UserQueue, AdminQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}
	return nil
}
