// Package workflow defines the automation-rule contract and the dispatcher
// that fans verified webhook events out to every registered rule.
package workflow

import (
	"context"

	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

// Workflow is one independently configured automation rule. Implementations
// own their derived state; nothing is shared across workflows.
type Workflow interface {
	// Name tags the workflow for logging. It is not required to be unique.
	Name() string

	// Start rebuilds the workflow's derived state from the platform before
	// any event is accepted. It must only read from the gateway. An error
	// here is a configuration problem and aborts startup.
	Start(ctx context.Context, gw gateway.Gateway) error

	// Hook handles one dispatched event. Events the workflow does not
	// understand, including payloads with missing fields, must be treated
	// as not relevant rather than returned as errors.
	Hook(ctx context.Context, evt event.Event, gw gateway.Gateway) error
}
