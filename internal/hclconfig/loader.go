// Package hclconfig loads the bridge configuration from an HCL file.
//
// Attribute expressions are evaluated with an `env` object holding the
// process environment, so secrets and endpoints can stay out of the file:
//
//	wallet {
//	  endpoint = env.WALLET_ENDPOINT
//	}
package hclconfig

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/walletbridge/internal/config"
	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// fileRoot is the set of top-level blocks accepted in a configuration file.
type fileRoot struct {
	Log         *logBlock         `hcl:"log,block"`
	Correlator  *correlatorBlock  `hcl:"correlator,block"`
	Transport   *transportBlock   `hcl:"transport,block"`
	Healthcheck *healthcheckBlock `hcl:"healthcheck,block"`
	Wallet      *walletBlock      `hcl:"wallet,block"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type correlatorBlock struct {
	EvictOnComplete *bool   `hcl:"evict_on_complete,optional"`
	CompletedTTL    *string `hcl:"completed_ttl,optional"`
	SweepInterval   *string `hcl:"sweep_interval,optional"`
}

type transportBlock struct {
	Address *string `hcl:"address,optional"`
	Path    *string `hcl:"path,optional"`
}

type healthcheckBlock struct {
	Port *int `hcl:"port,optional"`
}

type walletBlock struct {
	Endpoint  *string         `hcl:"endpoint,optional"`
	Simulator *simulatorBlock `hcl:"simulator,block"`
}

type simulatorBlock struct {
	Latency *string  `hcl:"latency,optional"`
	PinFor  []string `hcl:"pin_for,optional"`
}

// Load parses the file at path and overlays it on config.Default().
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, l.evalContext(), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	model := config.Default()
	if err := root.apply(model); err != nil {
		return nil, fmt.Errorf("invalid HCL file %s: %w", path, err)
	}

	logger.Debug("HCL configuration loaded.", "path", path)
	return model, nil
}

// evalContext exposes the process environment as `env.NAME`.
func (l *Loader) evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

func (r *fileRoot) apply(m *config.Model) error {
	if b := r.Log; b != nil {
		setString(&m.Log.Level, b.Level)
		setString(&m.Log.Format, b.Format)
	}
	if b := r.Correlator; b != nil {
		if b.EvictOnComplete != nil {
			m.Correlator.EvictOnComplete = *b.EvictOnComplete
		}
		if b.CompletedTTL != nil {
			d, err := config.ParseDuration("correlator.completed_ttl", *b.CompletedTTL)
			if err != nil {
				return err
			}
			m.Correlator.CompletedTTL = d
		}
		if b.SweepInterval != nil {
			d, err := config.ParseDuration("correlator.sweep_interval", *b.SweepInterval)
			if err != nil {
				return err
			}
			m.Correlator.SweepInterval = d
		}
	}
	if b := r.Transport; b != nil {
		setString(&m.Transport.Address, b.Address)
		setString(&m.Transport.Path, b.Path)
	}
	if b := r.Healthcheck; b != nil && b.Port != nil {
		m.Healthcheck.Port = *b.Port
	}
	if b := r.Wallet; b != nil {
		setString(&m.Wallet.Endpoint, b.Endpoint)
		if s := b.Simulator; s != nil {
			if s.Latency != nil {
				d, err := config.ParseDuration("wallet.simulator.latency", *s.Latency)
				if err != nil {
					return err
				}
				m.Wallet.Simulator.Latency = d
			}
			if s.PinFor != nil {
				m.Wallet.Simulator.PinFor = s.PinFor
			}
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
