package testutil

import (
	"context"
	"errors"

	"github.com/vk/walletbridge/internal/registry"
)

// EchoInput is the argument of MockEchoModule.echo.
type EchoInput struct {
	Text  string  `cty:"text"`
	Times *int64  `cty:"times"`
	Tag   *string `cty:"tag"`
}

// EchoOutput is the result of MockEchoModule.echo.
type EchoOutput struct {
	Text  string   `cty:"text"`
	Parts []string `cty:"parts"`
}

// ErrEchoFailed is returned by MockEchoModule.fail.
var ErrEchoFailed = errors.New("echo failed")

// MockEchoModule is a minimal module for registry and transport tests.
type MockEchoModule struct {
	ModuleName string
}

// Name implements registry.Module.
func (m *MockEchoModule) Name() string {
	if m.ModuleName == "" {
		return "Echo"
	}
	return m.ModuleName
}

// Register implements registry.Module.
func (m *MockEchoModule) Register(ms *registry.Methods) {
	ms.Add(registry.Handler("echo", func(_ context.Context, in *EchoInput) (EchoOutput, error) {
		n := int64(1)
		if in.Times != nil {
			n = *in.Times
		}
		out := EchoOutput{Parts: []string{}}
		for i := int64(0); i < n; i++ {
			out.Parts = append(out.Parts, in.Text)
			out.Text += in.Text
		}
		return out, nil
	}))
	ms.Add(registry.Handler("fail", func(context.Context, *struct{}) (EchoOutput, error) {
		return EchoOutput{}, ErrEchoFailed
	}))
}
