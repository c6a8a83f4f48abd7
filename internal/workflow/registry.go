package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/forgeflowhq/forgeflow/common/logger"
	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

// Registry holds the ordered list of active workflows and dispatches each
// event to every one of them in registration order.
type Registry struct {
	gw        gateway.Gateway
	workflows []Workflow

	// One event is processed to completion before the next; card indexes
	// and other derived state are only touched under this lock.
	mu sync.Mutex
}

func NewRegistry(gw gateway.Gateway) *Registry {
	return &Registry{gw: gw}
}

// Register appends a workflow. Dispatch order is registration order.
func (r *Registry) Register(w Workflow) {
	r.workflows = append(r.workflows, w)
}

// Len returns the number of registered workflows.
func (r *Registry) Len() int {
	return len(r.workflows)
}

// StartAll resynchronizes every workflow in registration order. The first
// failure aborts: a misconfigured workflow must not run half-initialized.
func (r *Registry) StartAll(ctx context.Context) error {
	for _, w := range r.workflows {
		if err := w.Start(ctx, r.gw); err != nil {
			return fmt.Errorf("starting workflow %s: %w", w.Name(), err)
		}
		slog.InfoContext(ctx, "workflow started", "workflow", w.Name())
	}
	return nil
}

// Dispatch fans the event out to every workflow in registration order.
// A failing hook is logged once and never prevents the workflows after it
// from receiving the same event.
func (r *Registry) Dispatch(ctx context.Context, evt event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.workflows {
		r.invoke(ctx, w, evt)
	}
}

func (r *Registry) invoke(ctx context.Context, w Workflow, evt event.Event) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Workflow: w.Name()})

	sc := logger.StartSpan(ctx, "workflow.hook")
	defer sc.End()
	ctx = sc.Context()

	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "workflow hook panicked",
				"panic", rec,
				"payload", logger.Truncate(string(evt.Payload), 2048),
			)
		}
	}()

	if err := w.Hook(ctx, evt, r.gw); err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "workflow hook failed",
			"error", err,
			"payload", logger.Truncate(string(evt.Payload), 2048),
		)
	}
}
