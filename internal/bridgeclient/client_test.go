package bridgeclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/walletbridge/internal/events"
	bridge "github.com/vk/walletbridge/internal/transport/socketio"
)

func TestOnResult_RoutesByCallID(t *testing.T) {
	c := &Client{}
	first := make(chan bridge.Response, 1)
	second := make(chan bridge.Response, 1)
	c.pending.Store("a", first)
	c.pending.Store("b", second)

	c.onResult(map[string]any{"call_id": "b", "ok": true, "result": map[string]any{"removed": true}})

	require.Len(t, second, 1)
	assert.Empty(t, first)
	resp := <-second
	assert.True(t, resp.OK)
	assert.JSONEq(t, `{"removed":true}`, string(resp.Result))
}

func TestOnResult_IgnoresUnknownAndMalformed(t *testing.T) {
	c := &Client{}
	ch := make(chan bridge.Response, 1)
	c.pending.Store("a", ch)

	c.onResult()
	c.onResult("not an object")
	c.onResult(map[string]any{"call_id": "zzz", "ok": true})

	assert.Empty(t, ch)
}

func TestOnInteraction(t *testing.T) {
	c := &Client{}
	got := make(chan events.Event, 1)
	c.OnInteraction(func(ev events.Event) { got <- ev })

	c.onInteraction(map[string]any{
		"uuid":    "11111111-2222-4333-8444-555555555555",
		"module":  "WalletSdk",
		"event":   "flowComplete",
		"status":  "completed",
		"payload": map[string]any{"workflow": "SETUP_DEVICE"},
	})

	require.Len(t, got, 1)
	ev := <-got
	assert.Equal(t, "WalletSdk", ev.Module)
	assert.Equal(t, "flowComplete", ev.Name)
	assert.Equal(t, "SETUP_DEVICE", ev.Payload["workflow"])
}
