// Package socketio exposes the capability table to the scripting runtime over
// socket.io. Clients emit "invoke" requests and receive "result" responses;
// interaction callbacks go to the client that started the interaction as
// "interaction" events.
package socketio

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/vk/walletbridge/internal/correlator"
	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/vk/walletbridge/internal/events"
	"github.com/zishang520/socket.io/v2/socket"
)

// Invoker dispatches a call to a native module.
type Invoker interface {
	Invoke(ctx context.Context, module, method string, args []byte) ([]byte, error)
}

// Server is the socket.io side of the bridge. It implements events.Emitter.
// Each invoke runs with the client's socket ID recorded as the correlator
// caller.
type Server struct {
	ctx     context.Context
	invoker Invoker
	path    string
	io      *socket.Server
	clients atomic.Int64
}

var _ events.Emitter = (*Server)(nil)

// New creates a server mounted at path. ctx carries the logger and bounds
// the lifetime of calls.
func New(ctx context.Context, invoker Invoker, path string) *Server {
	s := &Server{
		ctx:     ctx,
		invoker: invoker,
		path:    path,
		io:      socket.NewServer(nil, nil),
	}
	s.io.On("connection", s.onConnection)
	return s
}

// Handler returns the http.Handler serving the socket.io endpoint.
func (s *Server) Handler() http.Handler {
	opts := socket.DefaultServerOptions()
	opts.SetPath(s.path)
	return s.io.ServeHandler(opts)
}

// Path is the mount path of the endpoint.
func (s *Server) Path() string { return s.path }

// Clients returns the number of connected scripting clients.
func (s *Server) Clients() int { return int(s.clients.Load()) }

// Emit sends an interaction event to the client that started the
// interaction. Events without a caller were started in-process and have no
// client to go to.
func (s *Server) Emit(ctx context.Context, ev events.Event) {
	logger := ctxlog.FromContext(ctx).With("uuid", ev.UUID, "event", ev.Name)
	if ev.Caller == "" {
		logger.Debug("Interaction has no bridge caller, event not sent.")
		return
	}
	logger.Debug("Emitting interaction event.", "sid", ev.Caller)
	if err := s.io.To(socket.Room(ev.Caller)).Emit(EventInteraction, Wire(ev)); err != nil {
		logger.Warn("Failed to emit interaction event.", "sid", ev.Caller, "error", err)
	}
}

// Close disconnects all clients.
func (s *Server) Close() {
	ctxlog.FromContext(s.ctx).Debug("Closing socket.io server.")
	s.io.Close(nil)
}

func (s *Server) onConnection(clients ...any) {
	if len(clients) == 0 {
		return
	}
	client, ok := clients[0].(*socket.Socket)
	if !ok {
		return
	}

	logger := ctxlog.FromContext(s.ctx).With("sid", client.Id())
	s.clients.Add(1)
	logger.Info("Scripting client connected.")

	client.On(EventInvoke, func(args ...any) {
		var raw any
		if len(args) > 0 {
			raw = args[0]
		}
		ctx := correlator.WithCaller(ctxlog.WithLogger(s.ctx, logger), string(client.Id()))
		resp := s.Handle(ctx, raw)
		client.Emit(EventResult, Wire(resp))
	})

	client.On("disconnect", func(reason ...any) {
		s.clients.Add(-1)
		logger.Info("Scripting client disconnected.", "reason", fmt.Sprint(reason...))
	})
}

// Handle decodes one invoke payload, runs it and builds the response.
func (s *Server) Handle(ctx context.Context, raw any) Response {
	logger := ctxlog.FromContext(ctx)

	req, err := Decode[Request](raw)
	if err != nil {
		logger.Warn("Malformed invoke request.", "error", err)
		return Response{OK: false, Error: &ErrorBody{Code: CodeBadRequest, Message: err.Error()}}
	}
	if req.Module == "" || req.Method == "" {
		return Response{CallID: req.CallID, OK: false, Error: &ErrorBody{Code: CodeBadRequest, Message: "module and method are required"}}
	}

	result, err := s.invoker.Invoke(ctx, req.Module, req.Method, req.Args)
	if err != nil {
		logger.Debug("Invoke failed.", "call_id", req.CallID, "module", req.Module, "method", req.Method, "error", err)
		return Response{CallID: req.CallID, OK: false, Error: errorBody(err)}
	}
	return Response{CallID: req.CallID, OK: true, Result: result}
}
