// Package events delivers interaction callbacks from native modules to the
// scripting side. Delivery is gated on the correlator: an event for an
// interaction that has been removed is dropped, so once a removal returns the
// scripting side hears nothing more about that UUID.
package events

import (
	"context"
	"sync"

	"github.com/vk/walletbridge/internal/correlator"
	"github.com/vk/walletbridge/internal/ctxlog"
)

// Event names emitted for wallet workflows.
const (
	RequestAcknowledged = "requestAcknowledged"
	GetPin              = "getPin"
	FlowComplete        = "flowComplete"
	FlowInterrupt       = "flowInterrupt"
)

// Event is one callback for a tracked interaction.
type Event struct {
	UUID    string            `json:"uuid"`
	Module  string            `json:"module"`
	Name    string            `json:"event"`
	Status  string            `json:"status"`
	Payload map[string]string `json:"payload,omitempty"`
	// Caller is the client the event is addressed to. It never goes on the
	// wire.
	Caller string `json:"-"`
}

// Emitter sends events across the bridge. Implementations must be safe for
// concurrent use and must not call back into the correlator.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Dispatcher routes events to the attached Emitter.
type Dispatcher struct {
	store *correlator.Store

	mu      sync.RWMutex
	emitter Emitter
}

// NewDispatcher creates a Dispatcher bound to the store. The emitter is
// optional and can be attached later with SetEmitter.
func NewDispatcher(store *correlator.Store, emitter Emitter) *Dispatcher {
	return &Dispatcher{store: store, emitter: emitter}
}

// SetEmitter sets or replaces the emitter. It can be called at any time.
func (d *Dispatcher) SetEmitter(e Emitter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emitter = e
}

// Dispatch emits an event for the interaction if it is still live and
// reports whether it was delivered to an emitter.
func (d *Dispatcher) Dispatch(ctx context.Context, id correlator.ID, module, name string, payload map[string]string) bool {
	logger := ctxlog.FromContext(ctx)

	d.mu.RLock()
	emitter := d.emitter
	d.mu.RUnlock()

	if emitter == nil {
		logger.Debug("No emitter attached, dropping interaction event.", "uuid", id, "event", name)
		return false
	}

	delivered := d.store.Do(ctx, id, func(info correlator.Info) {
		logger.Debug("Dispatching interaction event.", "uuid", id, "event", name, "status", info.Status.String())
		emitter.Emit(ctx, Event{
			UUID:    id.String(),
			Module:  module,
			Name:    name,
			Status:  info.Status.String(),
			Payload: payload,
			Caller:  info.Caller,
		})
	})
	if !delivered {
		logger.Debug("Interaction no longer tracked, event dropped.", "uuid", id, "event", name)
	}
	return delivered
}
