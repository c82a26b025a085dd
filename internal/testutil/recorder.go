// Package testutil holds shared fixtures for package tests: an event
// recorder, a ready-made host context and small mock modules.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/walletbridge/internal/events"
)

// EventRecorder is an events.Emitter that keeps every event it receives.
type EventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

var _ events.Emitter = (*EventRecorder)(nil)

// Emit implements events.Emitter.
func (r *EventRecorder) Emit(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *EventRecorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Names returns the event names recorded for uuid, in order.
func (r *EventRecorder) Names(uuid string) []string {
	var names []string
	for _, ev := range r.Events() {
		if ev.UUID == uuid {
			names = append(names, ev.Name)
		}
	}
	return names
}

// WaitFor blocks until an event named name arrives for uuid and returns it.
func (r *EventRecorder) WaitFor(t *testing.T, uuid, name string) events.Event {
	t.Helper()
	var found events.Event
	require.Eventually(t, func() bool {
		for _, ev := range r.Events() {
			if ev.UUID == uuid && ev.Name == name {
				found = ev
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "event %q for %s never arrived", name, uuid)
	return found
}
