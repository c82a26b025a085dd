package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Model is the unified, format-agnostic representation of the bridge
// configuration.
type Model struct {
	Log         Log
	Correlator  Correlator
	Transport   Transport
	Healthcheck Healthcheck
	Wallet      Wallet
}

// Log configures the slog logger.
type Log struct {
	Level  string
	Format string
}

// Correlator configures interaction retention.
type Correlator struct {
	// EvictOnComplete removes interactions as soon as their workflow ends.
	EvictOnComplete bool
	// CompletedTTL is how long a Completed interaction stays reachable
	// before the janitor evicts it. Zero disables sweeping.
	CompletedTTL  time.Duration
	SweepInterval time.Duration
}

// Transport configures the socket.io call boundary.
type Transport struct {
	Address string
	Path    string
}

// Healthcheck configures the HTTP health endpoint. Port 0 disables it.
type Healthcheck struct {
	Port int
}

// Wallet configures the wallet SDK collaborator.
type Wallet struct {
	Endpoint  string
	Simulator Simulator
}

// Simulator configures the in-process SDK.
type Simulator struct {
	Latency time.Duration
	PinFor  []string
}

// Default returns the configuration used when no file is given.
func Default() *Model {
	return &Model{
		Log: Log{Level: "info", Format: "json"},
		Correlator: Correlator{
			CompletedTTL:  10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Transport: Transport{Address: "127.0.0.1:7007", Path: "/socket.io/"},
		Wallet: Wallet{
			Simulator: Simulator{Latency: 200 * time.Millisecond},
		},
	}
}

// Validate checks the model and reports every problem at once.
func (m *Model) Validate() error {
	var errs []string

	switch m.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be one of debug, info, warn, error", m.Log.Level))
	}
	switch m.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", m.Log.Format))
	}
	if m.Correlator.CompletedTTL < 0 {
		errs = append(errs, "correlator.completed_ttl must not be negative")
	}
	if m.Correlator.CompletedTTL > 0 && m.Correlator.SweepInterval <= 0 {
		errs = append(errs, "correlator.sweep_interval must be positive when completed_ttl is set")
	}
	if m.Transport.Address == "" {
		errs = append(errs, "transport.address is required")
	}
	if !strings.HasPrefix(m.Transport.Path, "/") {
		errs = append(errs, fmt.Sprintf("transport.path %q must start with '/'", m.Transport.Path))
	}
	if m.Healthcheck.Port < 0 || m.Healthcheck.Port > 65535 {
		errs = append(errs, fmt.Sprintf("healthcheck.port %d is out of range", m.Healthcheck.Port))
	}
	if m.Wallet.Simulator.Latency < 0 {
		errs = append(errs, "wallet.simulator.latency must not be negative")
	}

	if len(errs) > 0 {
		return errors.New("invalid configuration:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// ParseDuration parses a duration attribute, naming it in the error.
func ParseDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
