// Package events carries abstract domain events out of the settlement core.
// Emission is fire-and-forget: a failed or panicking consumer never unwinds a
// completed settlement.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	EventTaskSubmitted      = "task.submitted"
	EventTaskApproved       = "task.approved"
	EventTaskRejected       = "task.rejected"
	EventInvoiceProcessing  = "invoice.processing"
	EventInvoicePaid        = "invoice.paid"
	EventProjectCompleted   = "project.completed"
	EventWithdrawalHeld     = "withdrawal.held"
	EventWithdrawalComplete = "withdrawal.completed"
)

// Event is an abstract domain event consumed by the notification component.
type Event struct {
	Type       string
	ActorID    string
	TargetID   string
	Context    map[string]any
	OccurredAt time.Time
}

// Handler consumes emitted events.
type Handler func(ctx context.Context, event Event)

// Emitter dispatches domain events. Implementations must never return the
// consumer's failure to the caller.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Dispatcher fans events out to registered handlers inside its own failure
// boundary.
type Dispatcher struct {
	log      *zap.Logger
	handlers []Handler
}

func NewDispatcher(log *zap.Logger, handlers ...Handler) *Dispatcher {
	return &Dispatcher{
		log:      log.Named("events"),
		handlers: handlers,
	}
}

func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	d.log.Info("domain event",
		zap.String("type", event.Type),
		zap.String("actor_id", event.ActorID),
		zap.String("target_id", event.TargetID),
	)

	for _, handler := range d.handlers {
		d.dispatch(ctx, handler, event)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("event handler panicked",
				zap.String("type", event.Type),
				zap.Any("panic", r),
			)
		}
	}()
	handler(ctx, event)
}
