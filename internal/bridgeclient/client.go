// Package bridgeclient is a socket.io client for a running bridge. The CLI
// uses it to call native modules the same way the scripting runtime does.
package bridgeclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/vk/walletbridge/internal/events"
	bridge "github.com/vk/walletbridge/internal/transport/socketio"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrClosed is returned by Call after Close.
var ErrClosed = errors.New("bridge client closed")

// Options configures Dial.
type Options struct {
	Namespace          string
	InsecureSkipVerify bool
}

// Client is a connected bridge client.
type Client struct {
	io      *socket.Socket
	pending sync.Map // Key: call ID, Value: chan bridge.Response
	closed  atomic.Bool

	mu        sync.RWMutex
	onEvent   func(events.Event)
	connected chan struct{}
}

// Dial connects to the bridge at rawURL (for example
// "http://127.0.0.1:7007/socket.io/") and waits for the connection or ctx.
func Dial(ctx context.Context, rawURL string, opts Options) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := opts.Namespace
	if namespace == "" {
		namespace = "/"
	}

	manager := socket.NewManager(baseURL, sockOpts)
	c := &Client{
		io:        manager.Socket(namespace, sockOpts),
		connected: make(chan struct{}),
	}

	connectErr := make(chan error, 1)
	var once sync.Once
	c.io.On(types.EventName("connect"), func(...any) {
		once.Do(func() { close(c.connected) })
		logger.Debug("Connected to bridge.", "sid", c.io.Id())
	})
	c.io.On(types.EventName("connect_error"), func(errs ...any) {
		var err error = errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectErr <- err:
		default:
		}
	})
	c.io.On(types.EventName(bridge.EventResult), c.onResult)
	c.io.On(types.EventName(bridge.EventInteraction), c.onInteraction)

	c.io.Connect()

	select {
	case <-ctx.Done():
		c.Close()
		return nil, fmt.Errorf("timed out while waiting for initial connection: %w", ctx.Err())
	case err := <-connectErr:
		c.Close()
		return nil, fmt.Errorf("failed to connect to bridge: %w", err)
	case <-c.connected:
		return c, nil
	}
}

// OnInteraction sets the callback for interaction events.
func (c *Client) OnInteraction(fn func(events.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// Call invokes module.method with args (any JSON-encodable value) and
// returns the raw JSON result.
func (c *Client) Call(ctx context.Context, module, method string, args any) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	var rawArgs json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode arguments: %w", err)
		}
		rawArgs = data
	}

	req := bridge.Request{CallID: uuid.NewString(), Module: module, Method: method, Args: rawArgs}
	done := make(chan bridge.Response, 1)
	c.pending.Store(req.CallID, done)
	defer c.pending.Delete(req.CallID)

	c.io.Emit(bridge.EventInvoke, bridge.Wire(req))

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out waiting for %s.%s: %w", module, method, ctx.Err())
	case resp := <-done:
		if !resp.OK {
			if resp.Error == nil {
				return nil, fmt.Errorf("%s.%s failed", module, method)
			}
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// Close disconnects from the bridge.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.io.Disconnect()
}

func (c *Client) onResult(data ...any) {
	if len(data) == 0 {
		return
	}
	resp, err := bridge.Decode[bridge.Response](data[0])
	if err != nil {
		return
	}
	if ch, ok := c.pending.Load(resp.CallID); ok {
		select {
		case ch.(chan bridge.Response) <- resp:
		default:
		}
	}
}

func (c *Client) onInteraction(data ...any) {
	if len(data) == 0 {
		return
	}
	ev, err := bridge.Decode[events.Event](data[0])
	if err != nil {
		return
	}
	c.mu.RLock()
	fn := c.onEvent
	c.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}
