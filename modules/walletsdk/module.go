package walletsdk

import (
	"context"
	"fmt"

	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/vk/walletbridge/internal/host"
	"github.com/vk/walletbridge/internal/registry"
	"github.com/vk/walletbridge/internal/wallet"
)

// Name is the identifier the scripting side addresses this module by.
const Name = "WalletSdk"

// Module exposes wallet SDK workflows. Every workflow it starts is tracked in
// the correlator and surfaced to the caller as a UUID.
type Module struct {
	hc *host.Context
}

// New creates the module. It does not touch the SDK; setup happens in
// initialize.
func New(hc *host.Context) *Module {
	return &Module{hc: hc}
}

// Name implements registry.Module.
func (m *Module) Name() string { return Name }

// InitializeInput defines the arguments for initialize.
type InitializeInput struct {
	Endpoint *string `cty:"endpoint"`
}

// InitializeOutput is returned by initialize.
type InitializeOutput struct {
	Initialized bool   `cty:"initialized"`
	Endpoint    string `cty:"endpoint"`
}

// SetupDeviceInput defines the arguments for setupDevice.
type SetupDeviceInput struct {
	UserID  string `cty:"user_id"`
	TokenID string `cty:"token_id"`
}

// ActivateUserInput defines the arguments for activateUser.
type ActivateUserInput struct {
	UserID           string `cty:"user_id"`
	ExpiresAfterSecs int64  `cty:"expires_after_secs"`
	SpendingLimit    string `cty:"spending_limit"`
}

// AddSessionInput defines the arguments for addSession.
type AddSessionInput struct {
	UserID           string `cty:"user_id"`
	ExpiresAfterSecs int64  `cty:"expires_after_secs"`
	SpendingLimit    string `cty:"spending_limit"`
}

// ExecuteTransactionInput defines the arguments for executeTransaction.
type ExecuteTransactionInput struct {
	UserID         string            `cty:"user_id"`
	RuleName       string            `cty:"rule_name"`
	Addresses      []string          `cty:"token_holder_addresses"`
	Amounts        []string          `cty:"amounts"`
	Meta           map[string]string `cty:"meta"`
	RedemptionMeta map[string]string `cty:"redemption_meta"`
}

// UserInput is the argument shape of workflows that only need a user.
type UserInput struct {
	UserID string `cty:"user_id"`
}

// InteractionRef is the result of every trackable operation.
type InteractionRef struct {
	UUID string `cty:"uuid"`
}

// Register registers the module's methods.
func (m *Module) Register(ms *registry.Methods) {
	ms.Add(registry.Handler("initialize", m.initialize))
	ms.Add(registry.Handler("setupDevice", m.setupDevice))
	ms.Add(registry.Handler("activateUser", m.activateUser))
	ms.Add(registry.Handler("addSession", m.addSession))
	ms.Add(registry.Handler("executeTransaction", m.executeTransaction))
	ms.Add(registry.Handler("getDeviceMnemonics", m.getDeviceMnemonics))
	ms.Add(registry.Handler("resetPin", m.resetPin))
}

func (m *Module) initialize(ctx context.Context, in *InitializeInput) (InitializeOutput, error) {
	endpoint := m.hc.Settings.DefaultEndpoint
	if in.Endpoint != nil && *in.Endpoint != "" {
		endpoint = *in.Endpoint
	}
	if err := m.hc.Wallet.Initialize(ctx, endpoint); err != nil {
		return InitializeOutput{}, fmt.Errorf("failed to initialize wallet sdk: %w", err)
	}
	return InitializeOutput{Initialized: true, Endpoint: endpoint}, nil
}

func (m *Module) setupDevice(ctx context.Context, in *SetupDeviceInput) (InteractionRef, error) {
	if in.UserID == "" || in.TokenID == "" {
		return InteractionRef{}, fmt.Errorf("setupDevice: user_id and token_id are required")
	}
	return m.start(ctx, wallet.Request{
		Kind:   wallet.WorkflowSetupDevice,
		UserID: in.UserID,
		Params: map[string]string{"token_id": in.TokenID},
	})
}

func (m *Module) activateUser(ctx context.Context, in *ActivateUserInput) (InteractionRef, error) {
	if err := validateSession("activateUser", in.UserID, in.ExpiresAfterSecs, in.SpendingLimit); err != nil {
		return InteractionRef{}, err
	}
	return m.start(ctx, wallet.Request{
		Kind:   wallet.WorkflowActivateUser,
		UserID: in.UserID,
		Params: sessionParams(in.ExpiresAfterSecs, in.SpendingLimit),
	})
}

func (m *Module) addSession(ctx context.Context, in *AddSessionInput) (InteractionRef, error) {
	if err := validateSession("addSession", in.UserID, in.ExpiresAfterSecs, in.SpendingLimit); err != nil {
		return InteractionRef{}, err
	}
	return m.start(ctx, wallet.Request{
		Kind:   wallet.WorkflowAddSession,
		UserID: in.UserID,
		Params: sessionParams(in.ExpiresAfterSecs, in.SpendingLimit),
	})
}

func (m *Module) executeTransaction(ctx context.Context, in *ExecuteTransactionInput) (InteractionRef, error) {
	if in.UserID == "" || in.RuleName == "" {
		return InteractionRef{}, fmt.Errorf("executeTransaction: user_id and rule_name are required")
	}
	if len(in.Addresses) == 0 || len(in.Addresses) != len(in.Amounts) {
		return InteractionRef{}, fmt.Errorf("executeTransaction: need one amount per address, got %d addresses and %d amounts", len(in.Addresses), len(in.Amounts))
	}

	params := map[string]string{
		"rule_name": in.RuleName,
		"transfers": fmt.Sprint(len(in.Addresses)),
	}
	for i := range in.Addresses {
		params[fmt.Sprintf("address_%d", i)] = in.Addresses[i]
		params[fmt.Sprintf("amount_%d", i)] = in.Amounts[i]
	}
	for k, v := range in.Meta {
		params["meta."+k] = v
	}
	for k, v := range in.RedemptionMeta {
		params["redemption_meta."+k] = v
	}

	return m.start(ctx, wallet.Request{
		Kind:   wallet.WorkflowExecuteTransaction,
		UserID: in.UserID,
		Params: params,
	})
}

func (m *Module) getDeviceMnemonics(ctx context.Context, in *UserInput) (InteractionRef, error) {
	if in.UserID == "" {
		return InteractionRef{}, fmt.Errorf("getDeviceMnemonics: user_id is required")
	}
	return m.start(ctx, wallet.Request{Kind: wallet.WorkflowGetDeviceMnemonics, UserID: in.UserID})
}

func (m *Module) resetPin(ctx context.Context, in *UserInput) (InteractionRef, error) {
	if in.UserID == "" {
		return InteractionRef{}, fmt.Errorf("resetPin: user_id is required")
	}
	return m.start(ctx, wallet.Request{Kind: wallet.WorkflowResetPin, UserID: in.UserID})
}

// start registers an interaction, then launches the workflow bound to it. The
// UUID exists before the SDK can call back, so early callbacks are routable.
func (m *Module) start(ctx context.Context, req wallet.Request) (InteractionRef, error) {
	logger := ctxlog.FromContext(ctx).With("workflow", string(req.Kind), "user_id", req.UserID)

	it := &interaction{}
	id := m.hc.Correlator.Register(ctx, Name, it)
	it.delegate = &delegate{
		ctx:    ctxlog.With(context.WithoutCancel(ctx), "uuid", id.String()),
		id:     id,
		hc:     m.hc,
		module: Name,
	}

	wf, err := m.hc.Wallet.Start(ctx, req, it.delegate)
	if err != nil {
		m.hc.Correlator.Remove(ctx, id)
		logger.Debug("Workflow failed to start.", "error", err)
		return InteractionRef{}, fmt.Errorf("failed to start %s: %w", req.Kind, err)
	}
	it.attach(wf)

	logger.Info("Workflow started.", "uuid", id)
	return InteractionRef{UUID: id.String()}, nil
}

func validateSession(op, userID string, expiresAfterSecs int64, spendingLimit string) error {
	if userID == "" {
		return fmt.Errorf("%s: user_id is required", op)
	}
	if expiresAfterSecs <= 0 {
		return fmt.Errorf("%s: expires_after_secs must be positive", op)
	}
	if spendingLimit == "" {
		return fmt.Errorf("%s: spending_limit is required", op)
	}
	return nil
}

func sessionParams(expiresAfterSecs int64, spendingLimit string) map[string]string {
	return map[string]string{
		"expires_after_secs": fmt.Sprint(expiresAfterSecs),
		"spending_limit":     spendingLimit,
	}
}
