package notify

import (
	"context"

	"studiobook/pkg/logger"
)

// LogNotifier only records events. Used when no broker is configured.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, e Event) error {
	n.log.Info("Booking event",
		"event_id", e.ID,
		"event_type", e.Type,
		"booking_id", e.BookingID,
		"user_id", e.UserID,
		"status", e.Status,
	)
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
