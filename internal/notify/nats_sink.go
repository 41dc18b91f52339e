package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/logfields"
)

// NATSSink publishes notifications to a NATS subject so external automation
// (a phone push bridge, a home dashboard) can pick them up. Optional; only
// built when a NATS URL is configured.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to NATS and returns a sink publishing on subject.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	if subject == "" {
		subject = "inventoryd.reminders"
	}

	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, ierr.WrapError(err, ierr.CategoryNotification, "failed to connect to NATS").
			WithContext("url", url).Build()
	}

	slog.Info("NATS notification sink initialized",
		slog.String("url", url), slog.String("subject", subject))

	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Name() string { return "nats" }

// Probe reports whether the connection is currently usable.
func (s *NATSSink) Probe(context.Context) error {
	if !s.conn.IsConnected() {
		return ierr.NotificationError("NATS connection is down").
			WithContext("sink", s.Name()).Build()
	}
	return nil
}

// Deliver publishes the notification as JSON and flushes within the context
// deadline.
func (s *NATSSink) Deliver(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return ierr.WrapError(err, ierr.CategoryInternal, "failed to marshal notification").Build()
	}

	if err := s.conn.Publish(s.subject, data); err != nil {
		return ierr.WrapError(err, ierr.CategoryNotification, "failed to publish notification").
			WithContext("subject", s.subject).Build()
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return ierr.WrapError(err, ierr.CategoryNotification, "failed to flush notification").
			WithContext("subject", s.subject).Build()
	}

	slog.Debug("Published reminder notification",
		logfields.Sink(s.Name()), slog.String("tag", n.Tag))
	return nil
}

// Close drains and closes the NATS connection.
func (s *NATSSink) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
