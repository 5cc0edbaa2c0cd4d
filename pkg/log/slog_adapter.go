package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger.
// Useful for development when you want to watch the conversation with
// the device in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given
// slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.SerialNumber != "" {
		attrs = append(attrs, slog.String("serial", event.SerialNumber))
	}
	if event.Port != "" {
		attrs = append(attrs, slog.String("port", event.Port))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("kind", event.Frame.KindName),
			slog.Int("frame_size", event.Frame.Size),
		)
	case event.Transaction != nil:
		attrs = append(attrs,
			slog.Int("request_kind", int(event.Transaction.RequestKind)),
			slog.Int("attempt", event.Transaction.Attempt),
			slog.Int("max_attempts", event.Transaction.MaxAttempts),
			slog.String("outcome", event.Transaction.Outcome),
		)
		if event.Transaction.Elapsed > 0 {
			attrs = append(attrs, slog.Duration("elapsed", event.Transaction.Elapsed))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Resync != nil:
		attrs = append(attrs,
			slog.Int("skipped", event.Resync.Skipped),
			slog.String("reason", event.Resync.Reason),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("phase", event.Error.Phase),
			slog.String("error_msg", event.Error.Message),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
