// Package wallet defines the boundary to the wallet SDK. The SDK itself (key
// management, signing, network calls) is an external collaborator; the bridge
// only starts workflows and relays their callbacks.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// WorkflowKind names an SDK workflow.
type WorkflowKind string

const (
	WorkflowSetupDevice        WorkflowKind = "SETUP_DEVICE"
	WorkflowActivateUser       WorkflowKind = "ACTIVATE_USER"
	WorkflowAddSession         WorkflowKind = "ADD_SESSION"
	WorkflowExecuteTransaction WorkflowKind = "EXECUTE_TRANSACTION"
	WorkflowGetDeviceMnemonics WorkflowKind = "GET_DEVICE_MNEMONICS"
	WorkflowResetPin           WorkflowKind = "RESET_PIN"
)

// ParseWorkflowKind accepts the workflow name as used on the wire and in
// configuration, case-insensitively.
func ParseWorkflowKind(s string) (WorkflowKind, error) {
	kind := WorkflowKind(strings.ToUpper(strings.TrimSpace(s)))
	switch kind {
	case WorkflowSetupDevice, WorkflowActivateUser, WorkflowAddSession,
		WorkflowExecuteTransaction, WorkflowGetDeviceMnemonics, WorkflowResetPin:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedWorkflow, s)
}

var (
	ErrNotInitialized      = errors.New("wallet sdk is not initialized")
	ErrUnsupportedWorkflow = errors.New("unsupported workflow")
	ErrPinNotRequested     = errors.New("workflow is not waiting for a pin")
	ErrInvalidPin          = errors.New("invalid pin")
	ErrCancelled           = errors.New("workflow cancelled")
)

// Request describes a workflow to start.
type Request struct {
	Kind   WorkflowKind
	UserID string
	Params map[string]string
}

// Entity is the SDK object a workflow acted on.
type Entity struct {
	Type string
	Data map[string]string
}

// Delegate receives workflow callbacks. Calls may arrive on any goroutine.
type Delegate interface {
	RequestAcknowledged(entity Entity)
	// PinRequired asks the user for a PIN. The answer is delivered through
	// Workflow.ProvidePin.
	PinRequired()
	FlowComplete(entity Entity)
	FlowInterrupt(err error)
}

// Workflow is a running SDK operation.
type Workflow interface {
	ProvidePin(pin string) error
	// Cancel stops the workflow. After Cancel returns no new delegate calls
	// are started. It is safe to call more than once.
	Cancel()
}

// SDK is the wallet SDK as seen by the bridge.
type SDK interface {
	Initialize(ctx context.Context, endpoint string) error
	Start(ctx context.Context, req Request, delegate Delegate) (Workflow, error)
}
