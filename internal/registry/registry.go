package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/walletbridge/internal/ctxlog"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Registry holds the ordered module descriptors and the capability table for
// a single application instance. It is immutable after New.
type Registry struct {
	descriptors []Descriptor
	methods     map[string]*Methods
}

// MethodInfo describes a registered method for diagnostics.
type MethodInfo struct {
	Name   string
	Input  string
	Output string
}

// New registers the given modules in order and validates the resulting table.
// All problems are reported together.
func New(ctx context.Context, modules ...Module) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)
	r := &Registry{methods: make(map[string]*Methods)}
	var errs []string

	for i, mod := range modules {
		if mod == nil {
			errs = append(errs, fmt.Sprintf("module #%d is nil", i))
			continue
		}
		name := mod.Name()
		if name == "" {
			errs = append(errs, fmt.Sprintf("module #%d has an empty name", i))
			continue
		}
		if _, exists := r.methods[name]; exists {
			errs = append(errs, fmt.Sprintf("module '%s' already registered", name))
			continue
		}

		set := newMethods(name)
		mod.Register(set)
		for _, e := range set.errs {
			errs = append(errs, fmt.Sprintf("module '%s': %s", name, e))
		}
		for _, methodName := range set.order {
			if err := set.byName[methodName].err; err != nil {
				errs = append(errs, fmt.Sprintf("module '%s', method '%s': %v", name, methodName, err))
			}
		}

		r.methods[name] = set
		r.descriptors = append(r.descriptors, Descriptor{Name: name, Module: mod})
		logger.Debug("Registered native module.", "module", name, "methods", set.order)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return r, nil
}

// Descriptors returns the registered modules in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Methods lists a module's methods in registration order.
func (r *Registry) Methods(module string) ([]MethodInfo, error) {
	set, ok := r.methods[module]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownModule, module)
	}
	out := make([]MethodInfo, 0, len(set.order))
	for _, name := range set.order {
		m := set.byName[name]
		in, err := ctyjson.MarshalType(m.InputType)
		if err != nil {
			return nil, err
		}
		outType, err := ctyjson.MarshalType(m.OutputType)
		if err != nil {
			return nil, err
		}
		out = append(out, MethodInfo{Name: name, Input: string(in), Output: string(outType)})
	}
	return out, nil
}

// Invoke calls module.method with a JSON object of arguments and returns the
// JSON-encoded result. Empty or null arguments are treated as {}.
func (r *Registry) Invoke(ctx context.Context, module, method string, args []byte) ([]byte, error) {
	set, ok := r.methods[module]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownModule, module)
	}
	m, ok := set.byName[method]
	if !ok {
		return nil, fmt.Errorf("%w: '%s.%s'", ErrUnknownMethod, module, method)
	}

	ctx = ctxlog.With(ctx, "module", module, "method", method)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Invoking native method.")

	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = []byte("{}")
	}

	in, err := ctyjson.Unmarshal(args, m.InputType)
	if err != nil {
		return nil, &ArgumentError{Module: module, Method: method, Err: err}
	}

	out, err := m.call(ctx, in)
	if err != nil {
		var argErr *ArgumentError
		var opErr *OperationError
		switch {
		case errors.As(err, &argErr):
			argErr.Module, argErr.Method = module, method
		case errors.As(err, &opErr):
			opErr.Module, opErr.Method = module, method
			logger.Debug("Native method reported a failure.", "error", opErr.Err)
		}
		return nil, err
	}

	result, err := ctyjson.Marshal(out, m.OutputType)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: failed to marshal result: %w", module, method, err)
	}
	return result, nil
}
