// Package notify delivers reminder notifications. A Notification is the
// payload; a Sink is one delivery channel (log line, SSE stream to connected
// browsers, NATS subject for external automation). The daemon fans one
// notification out to every configured sink.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
)

// Action is a button offered on the notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is the reminder payload delivered to sinks.
type Notification struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Icon               string    `json:"icon,omitempty"`
	Badge              string    `json:"badge,omitempty"`
	Tag                string    `json:"tag,omitempty"`
	Vibration          []int     `json:"vibration,omitempty"`
	Actions            []Action  `json:"actions,omitempty"`
	RequireInteraction bool      `json:"require_interaction"`
	Timestamp          time.Time `json:"timestamp"`
}

// DailyReminder builds the standard daily reminder notification.
func DailyReminder(now time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Title:     "Daily Inventory Reminder",
		Body:      "Don't forget to fill out your inventory!",
		Icon:      "/logo192.png",
		Badge:     "/logo192.png",
		Tag:       "daily-inventory-reminder",
		Vibration: []int{200, 100, 200},
		Actions: []Action{
			{Action: "open", Title: "Open App"},
			{Action: "dismiss", Title: "Dismiss"},
		},
		RequireInteraction: true,
		Timestamp:          now,
	}
}

// TestNotification builds an on-demand notification for verifying delivery.
func TestNotification(now time.Time) Notification {
	n := DailyReminder(now)
	n.Title = "Test Notification"
	n.Body = "Notifications are working correctly."
	n.Tag = "test-notification"
	n.RequireInteraction = false
	return n
}

// Sink is one notification delivery channel.
type Sink interface {
	// Name identifies the sink in logs and status reports.
	Name() string
	// Probe checks whether the sink can currently deliver. Called once at
	// scheduler initialization and again on demand.
	Probe(ctx context.Context) error
	// Deliver sends the notification.
	Deliver(ctx context.Context, n Notification) error
}

// Fanout delivers to all sinks, collecting failures. Delivery succeeds if at
// least one sink accepted the notification.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a fanout over the given sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Sinks returns the configured sinks.
func (f *Fanout) Sinks() []Sink { return f.sinks }

// Deliver sends the notification to every sink. It returns an error only when
// every sink fails.
func (f *Fanout) Deliver(ctx context.Context, n Notification) error {
	if len(f.sinks) == 0 {
		return ierr.NotificationError("no notification sinks configured").Build()
	}

	var delivered int
	var lastErr error
	for _, sink := range f.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			lastErr = err
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return ierr.WrapError(lastErr, ierr.CategoryNotification, "all notification sinks failed").
			WithContext("sinks", len(f.sinks)).Build()
	}
	return nil
}
