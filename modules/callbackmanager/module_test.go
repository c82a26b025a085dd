package callbackmanager_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/walletbridge/internal/correlator"
	"github.com/vk/walletbridge/internal/events"
	"github.com/vk/walletbridge/internal/host"
	"github.com/vk/walletbridge/internal/registry"
	"github.com/vk/walletbridge/internal/testutil"
	"github.com/vk/walletbridge/internal/wallet"
	"github.com/vk/walletbridge/internal/wallet/simulator"
	"github.com/vk/walletbridge/modules/callbackmanager"
	"github.com/vk/walletbridge/modules/walletsdk"
)

type releaseCounter struct{ n int }

func (r *releaseCounter) Release() { r.n++ }

type fixture struct {
	reg *registry.Registry
	hc  *host.Context
	rec *testutil.EventRecorder
}

func newFixture(t *testing.T, opts simulator.Options) *fixture {
	t.Helper()
	hc, rec := testutil.NewHost(t, simulator.New(opts), host.Settings{DefaultEndpoint: "https://wallet.test"})
	reg, err := registry.New(context.Background(), walletsdk.New(hc), callbackmanager.New(hc))
	require.NoError(t, err)
	return &fixture{reg: reg, hc: hc, rec: rec}
}

func (f *fixture) call(t *testing.T, module, method string, args any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := f.reg.Invoke(context.Background(), module, method, raw)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(res, &out))
	return out
}

func TestRemove(t *testing.T) {
	f := newFixture(t, simulator.Options{})

	t.Run("unknown uuid is a no-op", func(t *testing.T) {
		out := f.call(t, callbackmanager.Name, "remove", map[string]string{"uuid": "00000000-0000-0000-0000-000000000000"})
		assert.Equal(t, false, out["removed"])
	})

	t.Run("malformed uuid is a no-op", func(t *testing.T) {
		out := f.call(t, callbackmanager.Name, "remove", map[string]string{"uuid": "not-a-uuid"})
		assert.Equal(t, false, out["removed"])
	})

	t.Run("registered handle is released once", func(t *testing.T) {
		it := &releaseCounter{}
		id := f.hc.Correlator.Register(context.Background(), "Test", it)

		out := f.call(t, callbackmanager.Name, "remove", map[string]string{"uuid": id.String()})
		assert.Equal(t, true, out["removed"])
		out = f.call(t, callbackmanager.Name, "remove", map[string]string{"uuid": id.String()})
		assert.Equal(t, false, out["removed"])

		assert.Equal(t, 1, it.n)
		_, ok := f.hc.Correlator.Lookup(context.Background(), id)
		assert.False(t, ok)
	})

	t.Run("missing uuid is an argument error", func(t *testing.T) {
		_, err := f.reg.Invoke(context.Background(), callbackmanager.Name, "remove", []byte(`{}`))
		var argErr *registry.ArgumentError
		assert.ErrorAs(t, err, &argErr)
	})
}

func TestStatusAndList(t *testing.T) {
	f := newFixture(t, simulator.Options{})
	f.call(t, walletsdk.Name, "initialize", map[string]string{})

	out := f.call(t, callbackmanager.Name, "list", map[string]string{})
	assert.Empty(t, out["interactions"])

	id := f.call(t, walletsdk.Name, "setupDevice", map[string]string{"user_id": "u1", "token_id": "t1"})["uuid"].(string)
	f.rec.WaitFor(t, id, events.FlowComplete)

	status := f.call(t, callbackmanager.Name, "status", map[string]string{"uuid": id})
	assert.Equal(t, map[string]any{"found": true, "status": "completed", "owner": walletsdk.Name}, status)

	list := f.call(t, callbackmanager.Name, "list", nil)
	entries, ok := list["interactions"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, id, entry["uuid"])
	assert.NotEmpty(t, entry["created_at"])
	assert.NotEmpty(t, entry["completed_at"])

	f.call(t, callbackmanager.Name, "remove", map[string]string{"uuid": id})
	status = f.call(t, callbackmanager.Name, "status", map[string]string{"uuid": id})
	assert.Equal(t, false, status["found"])
	assert.Equal(t, "not_found", status["status"])
}

func TestProvidePin(t *testing.T) {
	f := newFixture(t, simulator.Options{PinFor: []wallet.WorkflowKind{wallet.WorkflowActivateUser}})
	f.call(t, walletsdk.Name, "initialize", nil)

	id := f.call(t, walletsdk.Name, "activateUser", map[string]any{
		"user_id": "u1", "expires_after_secs": 60, "spending_limit": "10",
	})["uuid"].(string)
	f.rec.WaitFor(t, id, events.GetPin)

	out := f.call(t, callbackmanager.Name, "providePin", map[string]string{"uuid": id, "pin": "123456"})
	assert.Equal(t, true, out["accepted"])
	f.rec.WaitFor(t, id, events.FlowComplete)

	// The workflow is no longer waiting.
	_, err := f.reg.Invoke(context.Background(), callbackmanager.Name, "providePin", []byte(`{"uuid":"`+id+`","pin":"123456"}`))
	var opErr *registry.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.ErrorIs(t, err, wallet.ErrPinNotRequested)

	out = f.call(t, callbackmanager.Name, "providePin", map[string]string{"uuid": "00000000-0000-0000-0000-000000000000", "pin": "123456"})
	assert.Equal(t, false, out["accepted"])
}

func TestProvidePin_ShortPinInterrupts(t *testing.T) {
	f := newFixture(t, simulator.Options{PinFor: []wallet.WorkflowKind{wallet.WorkflowResetPin}})
	f.call(t, walletsdk.Name, "initialize", nil)

	id := f.call(t, walletsdk.Name, "resetPin", map[string]string{"user_id": "u1"})["uuid"].(string)
	f.rec.WaitFor(t, id, events.GetPin)

	f.call(t, callbackmanager.Name, "providePin", map[string]string{"uuid": id, "pin": "12"})
	ev := f.rec.WaitFor(t, id, events.FlowInterrupt)
	assert.Contains(t, ev.Payload["error"], wallet.ErrInvalidPin.Error())
}

func TestProvidePin_InteractionWithoutPin(t *testing.T) {
	f := newFixture(t, simulator.Options{})
	id := f.hc.Correlator.Register(context.Background(), "Test", &releaseCounter{})

	_, err := f.reg.Invoke(context.Background(), callbackmanager.Name, "providePin", []byte(`{"uuid":"`+id.String()+`","pin":"123456"}`))
	var opErr *registry.OperationError
	assert.ErrorAs(t, err, &opErr)
}

func TestCallerScoping(t *testing.T) {
	f := newFixture(t, simulator.Options{PinFor: []wallet.WorkflowKind{wallet.WorkflowResetPin}})
	alice := correlator.WithCaller(context.Background(), "sid-alice")
	bob := correlator.WithCaller(context.Background(), "sid-bob")

	invokeAs := func(ctx context.Context, module, method, args string) map[string]any {
		t.Helper()
		res, err := f.reg.Invoke(ctx, module, method, []byte(args))
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(res, &out))
		return out
	}

	invokeAs(alice, walletsdk.Name, "initialize", `{}`)
	id := invokeAs(alice, walletsdk.Name, "resetPin", `{"user_id":"u1"}`)["uuid"].(string)
	f.rec.WaitFor(t, id, events.GetPin)

	t.Run("list shows only the caller's interactions", func(t *testing.T) {
		assert.Len(t, invokeAs(alice, callbackmanager.Name, "list", `{}`)["interactions"], 1)
		assert.Empty(t, invokeAs(bob, callbackmanager.Name, "list", `{}`)["interactions"])
		assert.Len(t, invokeAs(context.Background(), callbackmanager.Name, "list", `{}`)["interactions"], 1)
	})

	t.Run("another client cannot answer the pin", func(t *testing.T) {
		out := invokeAs(bob, callbackmanager.Name, "providePin", `{"uuid":"`+id+`","pin":"123456"}`)
		assert.Equal(t, false, out["accepted"])

		out = invokeAs(alice, callbackmanager.Name, "providePin", `{"uuid":"`+id+`","pin":"123456"}`)
		assert.Equal(t, true, out["accepted"])
		f.rec.WaitFor(t, id, events.FlowComplete)
	})
}
