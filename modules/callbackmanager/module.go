// Package callbackmanager exposes the interaction correlator to the scripting
// side: removal of tracked interactions by UUID, status queries, and the PIN
// answer path for workflows that asked for one.
package callbackmanager

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/walletbridge/internal/correlator"
	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/vk/walletbridge/internal/host"
	"github.com/vk/walletbridge/internal/registry"
)

// Name is the identifier the scripting side addresses this module by.
const Name = "CallbackManager"

// Module implements registry.Module.
type Module struct {
	hc *host.Context
}

// New creates the module.
func New(hc *host.Context) *Module {
	return &Module{hc: hc}
}

func (m *Module) Name() string { return Name }

// RefInput carries a UUID previously returned by a trackable operation.
type RefInput struct {
	UUID string `cty:"uuid"`
}

// RemoveOutput is returned by remove. Removed is false when the UUID was
// unknown or already removed; that is not an error.
type RemoveOutput struct {
	Removed bool `cty:"removed"`
}

// StatusOutput is returned by status.
type StatusOutput struct {
	Found  bool   `cty:"found"`
	Status string `cty:"status"`
	Owner  string `cty:"owner"`
}

// InteractionInfo is one entry of list.
type InteractionInfo struct {
	UUID        string `cty:"uuid"`
	Owner       string `cty:"owner"`
	Status      string `cty:"status"`
	CreatedAt   string `cty:"created_at"`
	CompletedAt string `cty:"completed_at"`
}

// ListOutput is returned by list.
type ListOutput struct {
	Interactions []InteractionInfo `cty:"interactions"`
}

// PinInput defines the arguments for providePin.
type PinInput struct {
	UUID string `cty:"uuid"`
	Pin  string `cty:"pin"`
}

// PinOutput is returned by providePin.
type PinOutput struct {
	Accepted bool `cty:"accepted"`
}

// pinReceiver is implemented by interactions that can pause for a PIN.
type pinReceiver interface {
	ProvidePin(pin string) error
}

// Register registers the module's methods.
func (m *Module) Register(ms *registry.Methods) {
	ms.Add(registry.Handler("remove", m.remove))
	ms.Add(registry.Handler("status", m.status))
	ms.Add(registry.Handler("list", m.list))
	ms.Add(registry.Handler("providePin", m.providePin))
}

func (m *Module) remove(ctx context.Context, in *RefInput) (RemoveOutput, error) {
	removed := m.hc.Correlator.RemoveString(ctx, in.UUID)
	ctxlog.FromContext(ctx).Info("Remove requested.", "uuid", in.UUID, "removed", removed)
	return RemoveOutput{Removed: removed}, nil
}

func (m *Module) status(ctx context.Context, in *RefInput) (StatusOutput, error) {
	h, ok := m.hc.Correlator.LookupString(ctx, in.UUID)
	if !ok {
		return StatusOutput{Found: false, Status: "not_found"}, nil
	}
	info := h.Info()
	return StatusOutput{Found: true, Status: info.Status.String(), Owner: info.Owner}, nil
}

// list reports the caller's own interactions, or all of them for an
// in-process caller.
func (m *Module) list(ctx context.Context, _ *struct{}) (ListOutput, error) {
	caller := correlator.CallerFrom(ctx)
	snapshot := m.hc.Correlator.Snapshot()
	out := ListOutput{Interactions: make([]InteractionInfo, 0, len(snapshot))}
	for _, info := range snapshot {
		if caller != "" && info.Caller != caller {
			continue
		}
		entry := InteractionInfo{
			UUID:      info.ID.String(),
			Owner:     info.Owner,
			Status:    info.Status.String(),
			CreatedAt: info.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !info.CompletedAt.IsZero() {
			entry.CompletedAt = info.CompletedAt.UTC().Format(time.RFC3339)
		}
		out.Interactions = append(out.Interactions, entry)
	}
	return out, nil
}

func (m *Module) providePin(ctx context.Context, in *PinInput) (PinOutput, error) {
	h, ok := m.hc.Correlator.LookupString(ctx, in.UUID)
	// Only the client that started a workflow may answer its PIN prompt.
	if ok && h.Caller() != correlator.CallerFrom(ctx) {
		ok = false
	}
	if !ok {
		ctxlog.FromContext(ctx).Debug("PIN for unknown interaction ignored.", "uuid", in.UUID)
		return PinOutput{Accepted: false}, nil
	}
	receiver, ok := h.Interaction().(pinReceiver)
	if !ok {
		return PinOutput{}, fmt.Errorf("interaction %s does not accept a pin", in.UUID)
	}
	if err := receiver.ProvidePin(in.Pin); err != nil {
		return PinOutput{}, fmt.Errorf("interaction %s: %w", in.UUID, err)
	}
	return PinOutput{Accepted: true}, nil
}
