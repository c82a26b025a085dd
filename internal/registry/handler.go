package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Method is one entry of the capability table.
type Method struct {
	Name       string
	InputType  cty.Type
	OutputType cty.Type

	call func(ctx context.Context, in cty.Value) (cty.Value, error)
	err  error
}

// Handler builds a Method from a typed Go function. I must be a struct whose
// exported fields carry `cty:"..."` tags; optional arguments are pointer
// fields. O is any value gocty can describe.
func Handler[I, O any](name string, fn func(ctx context.Context, in *I) (O, error)) *Method {
	m := &Method{Name: name}

	var zeroIn I
	inType, err := impliedType(zeroIn)
	if err != nil {
		m.err = fmt.Errorf("input type %T: %w", zeroIn, err)
		return m
	}
	if !inType.IsObjectType() {
		m.err = fmt.Errorf("input type %T must be a struct, got %s", zeroIn, inType.FriendlyName())
		return m
	}

	var zeroOut O
	outType, err := impliedType(zeroOut)
	if err != nil {
		m.err = fmt.Errorf("output type %T: %w", zeroOut, err)
		return m
	}

	m.InputType = inType
	m.OutputType = outType
	m.call = func(ctx context.Context, val cty.Value) (cty.Value, error) {
		in := new(I)
		if err := gocty.FromCtyValue(val, in); err != nil {
			return cty.NilVal, &ArgumentError{Err: err}
		}
		out, err := fn(ctx, in)
		if err != nil {
			return cty.NilVal, &OperationError{Err: err}
		}
		result, err := gocty.ToCtyValue(out, outType)
		if err != nil {
			return cty.NilVal, fmt.Errorf("failed to encode result: %w", err)
		}
		return result, nil
	}
	return m
}

// impliedType is gocty.ImpliedType, except that a struct without fields maps
// to the empty object type instead of failing for lack of cty tags.
func impliedType(v any) (cty.Type, error) {
	if rt := reflect.TypeOf(v); rt != nil && rt.Kind() == reflect.Struct && rt.NumField() == 0 {
		return cty.EmptyObject, nil
	}
	return gocty.ImpliedType(v)
}
