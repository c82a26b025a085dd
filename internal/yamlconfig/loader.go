// Package yamlconfig loads the bridge configuration from a YAML file. It
// accepts the same sections as the HCL format.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vk/walletbridge/internal/config"
	"github.com/vk/walletbridge/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

type file struct {
	Log *struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"log"`
	Correlator *struct {
		EvictOnComplete *bool          `yaml:"evict_on_complete"`
		CompletedTTL    *time.Duration `yaml:"completed_ttl"`
		SweepInterval   *time.Duration `yaml:"sweep_interval"`
	} `yaml:"correlator"`
	Transport *struct {
		Address *string `yaml:"address"`
		Path    *string `yaml:"path"`
	} `yaml:"transport"`
	Healthcheck *struct {
		Port *int `yaml:"port"`
	} `yaml:"healthcheck"`
	Wallet *struct {
		Endpoint  *string `yaml:"endpoint"`
		Simulator *struct {
			Latency *time.Duration `yaml:"latency"`
			PinFor  []string       `yaml:"pin_for"`
		} `yaml:"simulator"`
	} `yaml:"wallet"`
}

// Load reads the file at path and overlays it on config.Default(). Unknown
// keys are rejected.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", path, err)
	}

	model := config.Default()
	f.apply(model)

	logger.Debug("YAML configuration loaded.", "path", path)
	return model, nil
}

func (f *file) apply(m *config.Model) {
	if b := f.Log; b != nil {
		setIf(&m.Log.Level, b.Level)
		setIf(&m.Log.Format, b.Format)
	}
	if b := f.Correlator; b != nil {
		setIf(&m.Correlator.EvictOnComplete, b.EvictOnComplete)
		setIf(&m.Correlator.CompletedTTL, b.CompletedTTL)
		setIf(&m.Correlator.SweepInterval, b.SweepInterval)
	}
	if b := f.Transport; b != nil {
		setIf(&m.Transport.Address, b.Address)
		setIf(&m.Transport.Path, b.Path)
	}
	if b := f.Healthcheck; b != nil {
		setIf(&m.Healthcheck.Port, b.Port)
	}
	if b := f.Wallet; b != nil {
		setIf(&m.Wallet.Endpoint, b.Endpoint)
		if s := b.Simulator; s != nil {
			setIf(&m.Wallet.Simulator.Latency, s.Latency)
			if s.PinFor != nil {
				m.Wallet.Simulator.PinFor = s.PinFor
			}
		}
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
