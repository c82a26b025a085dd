package walletsdk

import (
	"context"
	"sync"

	"github.com/vk/walletbridge/internal/correlator"
	"github.com/vk/walletbridge/internal/events"
	"github.com/vk/walletbridge/internal/host"
	"github.com/vk/walletbridge/internal/wallet"
)

// interaction is what the correlator tracks for one SDK workflow.
type interaction struct {
	delegate *delegate

	mu       sync.Mutex
	workflow wallet.Workflow
	released bool
}

// attach binds the running workflow. If the interaction was removed while the
// workflow was starting, the workflow is cancelled right away.
func (it *interaction) attach(wf wallet.Workflow) {
	it.mu.Lock()
	if it.released {
		it.mu.Unlock()
		wf.Cancel()
		return
	}
	it.workflow = wf
	it.mu.Unlock()
}

// Release implements correlator.Interaction.
func (it *interaction) Release() {
	it.mu.Lock()
	it.released = true
	wf := it.workflow
	it.workflow = nil
	it.mu.Unlock()

	if wf != nil {
		wf.Cancel()
	}
}

// ProvidePin forwards the user's PIN to the waiting workflow.
func (it *interaction) ProvidePin(pin string) error {
	it.mu.Lock()
	wf := it.workflow
	it.mu.Unlock()
	if wf == nil {
		return wallet.ErrPinNotRequested
	}
	return wf.ProvidePin(pin)
}

// delegate turns SDK callbacks into bridge events for one interaction.
type delegate struct {
	ctx    context.Context
	id     correlator.ID
	hc     *host.Context
	module string
}

func (d *delegate) RequestAcknowledged(entity wallet.Entity) {
	d.hc.Events.Dispatch(d.ctx, d.id, d.module, events.RequestAcknowledged, entityPayload(entity))
}

func (d *delegate) PinRequired() {
	d.hc.Events.Dispatch(d.ctx, d.id, d.module, events.GetPin, nil)
}

func (d *delegate) FlowComplete(entity wallet.Entity) {
	d.finish(events.FlowComplete, entityPayload(entity))
}

func (d *delegate) FlowInterrupt(err error) {
	d.finish(events.FlowInterrupt, map[string]string{"error": err.Error()})
}

// finish marks the interaction Completed, emits the terminal event and, when
// configured, evicts it.
func (d *delegate) finish(name string, payload map[string]string) {
	d.hc.Correlator.Complete(d.ctx, d.id)
	d.hc.Events.Dispatch(d.ctx, d.id, d.module, name, payload)
	if d.hc.Settings.EvictOnComplete {
		d.hc.Correlator.Remove(d.ctx, d.id)
	}
}

func entityPayload(entity wallet.Entity) map[string]string {
	payload := make(map[string]string, len(entity.Data)+1)
	for k, v := range entity.Data {
		payload[k] = v
	}
	payload["entity_type"] = entity.Type
	return payload
}
