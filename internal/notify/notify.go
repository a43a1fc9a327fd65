// Package notify defines the collaborators the ledger hands notification
// requests to.  Delivery is someone else's job: the ledger only produces
// requests, and only after the transaction that caused them has committed.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// Target says who a notification is for: one user or everyone.
type Target struct {
	userID    uint64
	broadcast bool
}

// Direct targets a single user.
func Direct(userID uint64) Target { return Target{userID: userID} }

// Broadcast targets every user.
func Broadcast() Target { return Target{broadcast: true} }

// UserID returns the target user and false for a broadcast.
func (t Target) UserID() (uint64, bool) { return t.userID, !t.broadcast }

func (t Target) IsBroadcast() bool { return t.broadcast }

type targetJSON struct {
	Kind   string `json:"kind"`
	UserID uint64 `json:"user_id,omitempty"`
}

func (t Target) MarshalJSON() ([]byte, error) {
	if t.broadcast {
		return json.Marshal(targetJSON{Kind: "broadcast"})
	}
	return json.Marshal(targetJSON{Kind: "direct", UserID: t.userID})
}

func (t *Target) UnmarshalJSON(b []byte) error {
	var v targetJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v.Kind {
	case "broadcast":
		*t = Broadcast()
	case "direct":
		if v.UserID == 0 {
			return errors.New("direct target without user_id")
		}
		*t = Direct(v.UserID)
	default:
		return errors.New("unknown target kind " + v.Kind)
	}
	return nil
}

// Notification is a user-facing notification request.
type Notification struct {
	Target   Target `json:"target"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// Priority tiers for admin notifications.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// AdminNotification is an operator-facing notification request.
type AdminNotification struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Category  string `json:"category"`
	RelatedID string `json:"related_id"`
	Priority  string `json:"priority,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, n AdminNotification) error
}

// Outbox collects notifications produced inside a transaction.  It is
// flushed by a Dispatcher once the transaction has committed and simply
// dropped otherwise.
type Outbox struct {
	users  []Notification
	admins []AdminNotification
}

func (o *Outbox) User(n Notification) { o.users = append(o.users, n) }

func (o *Outbox) Admin(n AdminNotification) { o.admins = append(o.admins, n) }

func (o *Outbox) Len() int { return len(o.users) + len(o.admins) }

// Dispatcher delivers an Outbox to the collaborators.  Failures are logged
// and never returned: a committed ledger change stands regardless.
type Dispatcher struct {
	Users  Notifier
	Admins AdminNotifier
	Log    *slog.Logger
}

func NewDispatcher(users Notifier, admins AdminNotifier, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{Users: users, Admins: admins, Log: log}
}

// Flush sends every collected notification and empties the outbox.
func (d *Dispatcher) Flush(ctx context.Context, o *Outbox) {
	if d == nil || o == nil {
		return
	}
	for _, n := range o.users {
		if d.Users == nil {
			break
		}
		if err := d.Users.Notify(ctx, n); err != nil {
			d.Log.Warn("notify user failed", "category", n.Category, "error", err)
		}
	}
	for _, n := range o.admins {
		if d.Admins == nil {
			break
		}
		if err := d.Admins.NotifyAdmin(ctx, n); err != nil {
			d.Log.Warn("notify admin failed", "category", n.Category, "related_id", n.RelatedID, "error", err)
		}
	}
	o.users, o.admins = nil, nil
}
