// Package simulator provides an in-process wallet.SDK that acknowledges,
// optionally asks for a PIN, and completes workflows after a fixed latency.
// It backs the development server and the module tests.
package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/vk/walletbridge/internal/wallet"
)

// Options configures the simulator.
type Options struct {
	Latency time.Duration
	// PinFor lists the workflows that pause for a PIN before completing.
	PinFor []wallet.WorkflowKind
	// PinLength is the minimum accepted PIN length. Zero means 6.
	PinLength int
}

// SDK implements wallet.SDK.
type SDK struct {
	opts Options

	mu          sync.Mutex
	initialized bool
	endpoint    string
}

var _ wallet.SDK = (*SDK)(nil)

// New creates a simulator.
func New(opts Options) *SDK {
	if opts.PinLength == 0 {
		opts.PinLength = 6
	}
	return &SDK{opts: opts}
}

// Initialize records the endpoint. An empty endpoint is rejected.
func (s *SDK) Initialize(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("initialize: empty endpoint")
	}
	s.mu.Lock()
	s.initialized = true
	s.endpoint = endpoint
	s.mu.Unlock()
	ctxlog.FromContext(ctx).Info("Wallet simulator initialized.", "endpoint", endpoint)
	return nil
}

// Start launches a simulated workflow.
func (s *SDK) Start(ctx context.Context, req wallet.Request, d wallet.Delegate) (wallet.Workflow, error) {
	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		return nil, wallet.ErrNotInitialized
	}

	switch req.Kind {
	case wallet.WorkflowSetupDevice, wallet.WorkflowActivateUser, wallet.WorkflowAddSession,
		wallet.WorkflowExecuteTransaction, wallet.WorkflowGetDeviceMnemonics, wallet.WorkflowResetPin:
	default:
		return nil, fmt.Errorf("%w: %q", wallet.ErrUnsupportedWorkflow, req.Kind)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &workflow{
		req:      req,
		delegate: d,
		ctx:      runCtx,
		cancel:   cancel,
		pins:     make(chan string, 1),
	}
	go w.run(s.opts)
	return w, nil
}

type workflow struct {
	req      wallet.Request
	delegate wallet.Delegate
	ctx      context.Context
	cancel   context.CancelFunc
	pins     chan string

	mu      sync.Mutex
	waiting bool
}

func (w *workflow) ProvidePin(pin string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.waiting {
		return wallet.ErrPinNotRequested
	}
	w.waiting = false
	w.pins <- pin
	return nil
}

func (w *workflow) Cancel() {
	w.cancel()
}

func (w *workflow) needsPin(opts Options) bool {
	for _, k := range opts.PinFor {
		if k == w.req.Kind {
			return true
		}
	}
	return false
}

// sleep waits for d or cancellation and reports whether the workflow may go on.
func (w *workflow) sleep(d time.Duration) bool {
	if d <= 0 {
		return w.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-w.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (w *workflow) run(opts Options) {
	logger := ctxlog.FromContext(w.ctx).With("workflow", string(w.req.Kind), "user_id", w.req.UserID)
	logger.Debug("Simulated workflow started.")
	defer logger.Debug("Simulated workflow finished.")

	entity := wallet.Entity{Type: string(w.req.Kind), Data: map[string]string{"user_id": w.req.UserID}}
	for k, v := range w.req.Params {
		entity.Data[k] = v
	}

	if !w.sleep(opts.Latency) {
		return
	}
	w.delegate.RequestAcknowledged(entity)

	if w.needsPin(opts) {
		w.mu.Lock()
		w.waiting = true
		w.mu.Unlock()
		if w.ctx.Err() != nil {
			return
		}
		w.delegate.PinRequired()

		select {
		case <-w.ctx.Done():
			return
		case pin := <-w.pins:
			if len(pin) < opts.PinLength {
				w.delegate.FlowInterrupt(wallet.ErrInvalidPin)
				return
			}
		}
	}

	if !w.sleep(opts.Latency) {
		return
	}
	w.delegate.FlowComplete(entity)
}
