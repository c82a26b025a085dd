package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/walletbridge/internal/registry"
	"github.com/vk/walletbridge/internal/testutil"
)

type fakeInvoker struct {
	module, method string
	args           []byte
	result         []byte
	err            error
}

func (f *fakeInvoker) Invoke(_ context.Context, module, method string, args []byte) ([]byte, error) {
	f.module, f.method, f.args = module, method, args
	return f.result, f.err
}

func TestHandle_Success(t *testing.T) {
	inv := &fakeInvoker{result: []byte(`{"removed":true}`)}
	s := &Server{invoker: inv}

	resp := s.Handle(context.Background(), map[string]any{
		"call_id": "c-1",
		"module":  "CallbackManager",
		"method":  "remove",
		"args":    map[string]any{"uuid": "00000000-0000-0000-0000-000000000000"},
	})

	require.True(t, resp.OK)
	assert.Equal(t, "c-1", resp.CallID)
	assert.JSONEq(t, `{"removed":true}`, string(resp.Result))
	assert.Equal(t, "CallbackManager", inv.module)
	assert.Equal(t, "remove", inv.method)
	assert.JSONEq(t, `{"uuid":"00000000-0000-0000-0000-000000000000"}`, string(inv.args))
}

func TestHandle_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		raw      any
		err      error
		wantCode string
	}{
		{name: "not an object", raw: "remove", wantCode: CodeBadRequest},
		{name: "missing method", raw: map[string]any{"call_id": "c", "module": "WalletSdk"}, wantCode: CodeBadRequest},
		{name: "unknown module", raw: map[string]any{"module": "X", "method": "y"}, err: fmt.Errorf("%w: 'X'", registry.ErrUnknownModule), wantCode: CodeUnknownModule},
		{name: "unknown method", raw: map[string]any{"module": "X", "method": "y"}, err: fmt.Errorf("%w: 'X.y'", registry.ErrUnknownMethod), wantCode: CodeUnknownMethod},
		{name: "bad args", raw: map[string]any{"module": "X", "method": "y"}, err: &registry.ArgumentError{Module: "X", Method: "y", Err: fmt.Errorf("boom")}, wantCode: CodeInvalidArgs},
		{name: "module failure", raw: map[string]any{"module": "X", "method": "y"}, err: &registry.OperationError{Module: "X", Method: "y", Err: fmt.Errorf("boom")}, wantCode: CodeOperationFailed},
		{name: "other", raw: map[string]any{"module": "X", "method": "y"}, err: fmt.Errorf("boom"), wantCode: CodeInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Server{invoker: &fakeInvoker{err: tc.err}}
			resp := s.Handle(context.Background(), tc.raw)
			assert.False(t, resp.OK)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestResponse_WireShape(t *testing.T) {
	data, err := json.Marshal(Response{CallID: "c-1", OK: true, Result: json.RawMessage(`{"uuid":"u"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"call_id":"c-1","ok":true,"result":{"uuid":"u"}}`, string(data))

	data, err = json.Marshal(Response{CallID: "c-2", Error: &ErrorBody{Code: CodeUnknownModule, Message: "unknown module: 'X'"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"call_id":"c-2","ok":false,"error":{"code":"unknown_module","message":"unknown module: 'X'"}}`, string(data))
}

func TestWire_FlattensRawMessages(t *testing.T) {
	out := Wire(Response{CallID: "c-1", OK: true, Result: json.RawMessage(`{"uuid":"u"}`)})

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"uuid": "u"}, m["result"])
	assert.Equal(t, true, m["ok"])
}

func TestHandle_WithRegistry(t *testing.T) {
	reg, err := registry.New(context.Background(), &testutil.MockEchoModule{})
	require.NoError(t, err)
	s := &Server{invoker: reg}

	resp := s.Handle(context.Background(), map[string]any{
		"call_id": "c-1", "module": "Echo", "method": "echo",
		"args": map[string]any{"text": "ab", "times": 2},
	})
	require.True(t, resp.OK, "error: %+v", resp.Error)
	assert.JSONEq(t, `{"text":"abab","parts":["ab","ab"]}`, string(resp.Result))

	resp = s.Handle(context.Background(), map[string]any{"call_id": "c-2", "module": "Echo", "method": "fail"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeOperationFailed, resp.Error.Code)

	resp = s.Handle(context.Background(), map[string]any{"call_id": "c-3", "module": "Echo", "method": "echo", "args": map[string]any{"txt": "x"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidArgs, resp.Error.Code)

	resp = s.Handle(context.Background(), map[string]any{"call_id": "c-4", "module": "Nope", "method": "echo"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUnknownModule, resp.Error.Code)
}
