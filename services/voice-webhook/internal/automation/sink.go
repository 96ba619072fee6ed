package automation

import (
	"context"
	"log/slog"
)

// Sink receives booking events. Publish errors never reach the booking
// caller; the operation layer logs and moves on.
type Sink interface {
	Publish(ctx context.Context, evt BookingEvent) error
	Name() string
}

type NoopSink struct{}

func (NoopSink) Publish(context.Context, BookingEvent) error { return nil }
func (NoopSink) Name() string                                { return "noop" }

// MultiSink fans an event out to every configured sink. One sink failing
// does not stop delivery to the others; the first error is returned for
// logging.
type MultiSink struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewMultiSink(logger *slog.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger}
}

func (m *MultiSink) Name() string { return "multi" }

func (m *MultiSink) Publish(ctx context.Context, evt BookingEvent) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, evt); err != nil {
			m.logger.Error("automation publish failed", "sink", s.Name(), "event", evt.Event, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
