package observability

import (
	"log/slog"

	"takochain/core/events"
	"takochain/core/types"
)

// EventRecorder satisfies events.Emitter by logging every emitted ledger event
// and bumping the per-type prometheus counter. It is the emitter the daemon
// wires into the presale engine.
type EventRecorder struct {
	logger *slog.Logger
}

// NewEventRecorder builds a recorder writing through the supplied logger. A
// nil logger falls back to the process default.
func NewEventRecorder(logger *slog.Logger) *EventRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRecorder{logger: logger}
}

// Emit implements events.Emitter.
func (r *EventRecorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	Presale().RecordEvent(evt.EventType())
	attrs := []any{slog.String("type", evt.EventType())}
	type payloadProvider interface {
		Event() *types.Event
	}
	if provider, ok := evt.(payloadProvider); ok {
		if payload := provider.Event(); payload != nil {
			for key, value := range payload.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	r.logger.Info("ledger event", attrs...)
}
