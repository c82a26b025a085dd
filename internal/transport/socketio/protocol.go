package socketio

import (
	"encoding/json"
	"errors"

	"github.com/vk/walletbridge/internal/registry"
)

// Event names used on the wire.
const (
	EventInvoke      = "invoke"
	EventResult      = "result"
	EventInteraction = "interaction"
)

// Error codes carried in Response.Error.
const (
	CodeBadRequest      = "bad_request"
	CodeUnknownModule   = "unknown_module"
	CodeUnknownMethod   = "unknown_method"
	CodeInvalidArgs     = "invalid_arguments"
	CodeOperationFailed = "operation_failed"
	CodeInternal        = "internal"
)

// Request is one scripting-side call.
type Request struct {
	CallID string          `json:"call_id"`
	Module string          `json:"module"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Response answers a Request with the same CallID.
type Response struct {
	CallID string          `json:"call_id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed call.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorBody) Error() string {
	return e.Code + ": " + e.Message
}

// errorBody maps an Invoke error onto a wire error code.
func errorBody(err error) *ErrorBody {
	var argErr *registry.ArgumentError
	var opErr *registry.OperationError
	code := CodeInternal
	switch {
	case errors.Is(err, registry.ErrUnknownModule):
		code = CodeUnknownModule
	case errors.Is(err, registry.ErrUnknownMethod):
		code = CodeUnknownMethod
	case errors.As(err, &argErr):
		code = CodeInvalidArgs
	case errors.As(err, &opErr):
		code = CodeOperationFailed
	}
	return &ErrorBody{Code: code, Message: err.Error()}
}

// Decode turns a socket.io event argument (already JSON-decoded into Go
// values by the parser) into T.
func Decode[T any](raw any) (T, error) {
	var out T
	data, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// Wire converts v into plain maps and slices before it is handed to the
// socket.io encoder, which treats byte slices (json.RawMessage included) as
// binary attachments.
func Wire(v any) any {
	out, err := Decode[map[string]any](v)
	if err != nil {
		return v
	}
	return out
}
