package app

import (
	"sync"

	"github.com/vk/walletbridge/internal/host"
	"github.com/vk/walletbridge/internal/registry"
	"github.com/vk/walletbridge/modules/callbackmanager"
	"github.com/vk/walletbridge/modules/walletsdk"
)

// Package is the definitive list of native modules compiled into the bridge.
// Instances are built once per host context and reused afterwards.
type Package struct {
	mu    sync.Mutex
	built map[*host.Context][]registry.Module
}

var _ host.Package = (*Package)(nil)

// NewPackage creates an empty package cache.
func NewPackage() *Package {
	return &Package{built: make(map[*host.Context][]registry.Module)}
}

// NativeModules returns [WalletSdk, CallbackManager].
func (p *Package) NativeModules(hc *host.Context) []registry.Module {
	p.mu.Lock()
	defer p.mu.Unlock()

	mods, ok := p.built[hc]
	if !ok {
		mods = []registry.Module{
			walletsdk.New(hc),
			callbackmanager.New(hc),
		}
		p.built[hc] = mods
	}
	// Callers get their own slice; the instances are shared.
	return append([]registry.Module(nil), mods...)
}

// ViewManagers returns no view managers.
func (p *Package) ViewManagers(*host.Context) []host.ViewManager {
	return []host.ViewManager{}
}

// LegacyScriptModules returns no script modules.
//
// Deprecated: kept for older host runtimes.
func (p *Package) LegacyScriptModules() []string {
	return []string{}
}
