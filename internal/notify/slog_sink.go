package notify

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/inventoryd/internal/logfields"
)

// SlogSink writes notifications to the structured log. Always available; it is
// the fallback channel when no browser is connected and NATS is disabled.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink builds a log sink. A nil logger uses the default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Name() string { return "log" }

func (s *SlogSink) Probe(context.Context) error { return nil }

func (s *SlogSink) Deliver(_ context.Context, n Notification) error {
	s.logger.Info("Reminder notification",
		logfields.Sink(s.Name()),
		slog.String("title", n.Title),
		slog.String("body", n.Body),
		slog.String("tag", n.Tag))
	return nil
}
