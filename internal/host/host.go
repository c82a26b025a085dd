// Package host defines what the host runtime hands to native modules at
// startup, and the startup surface native modules are enumerated through.
package host

import (
	"log/slog"

	"github.com/vk/walletbridge/internal/correlator"
	"github.com/vk/walletbridge/internal/events"
	"github.com/vk/walletbridge/internal/registry"
	"github.com/vk/walletbridge/internal/wallet"
)

// Settings are the module-facing knobs taken from configuration.
type Settings struct {
	// EvictOnComplete removes an interaction as soon as its workflow finishes
	// instead of leaving it Completed until removal or sweep.
	EvictOnComplete bool
	// DefaultEndpoint is used by initialize when the caller passes none.
	DefaultEndpoint string
}

// Context is the application context handed to native modules. It is created
// once per application instance and owns nothing; the App closes the
// correlator at shutdown.
type Context struct {
	Logger     *slog.Logger
	Correlator *correlator.Store
	Events     *events.Dispatcher
	Wallet     wallet.SDK
	Settings   Settings
}

// ViewManager is a UI widget exposed to the scripting side.
type ViewManager interface {
	Name() string
}

// Package is the startup surface consumed by the host runtime.
type Package interface {
	// NativeModules returns the modules to expose, in a stable order. Each
	// module is constructed once per Context.
	NativeModules(hc *Context) []registry.Module
	ViewManagers(hc *Context) []ViewManager
	// LegacyScriptModules is kept for older host runtimes.
	//
	// Deprecated: always empty for new integrations.
	LegacyScriptModules() []string
}
