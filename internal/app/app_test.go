package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/walletbridge/internal/config"
	"github.com/vk/walletbridge/internal/events"
	"github.com/vk/walletbridge/internal/host"
	"github.com/vk/walletbridge/internal/registry"
	"github.com/vk/walletbridge/internal/testutil"
	"github.com/vk/walletbridge/internal/wallet/simulator"
)

func moduleNames(mods []registry.Module) []string {
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = m.Name()
	}
	return names
}

func TestPackage_NativeModules(t *testing.T) {
	p := NewPackage()
	hc := &host.Context{}

	first := p.NativeModules(hc)
	second := p.NativeModules(hc)

	assert.Equal(t, []string{"WalletSdk", "CallbackManager"}, moduleNames(first))
	assert.Equal(t, moduleNames(first), moduleNames(second))
	for i := range first {
		assert.Same(t, first[i], second[i], "modules must be built once per context")
	}

	first[0] = nil
	assert.NotNil(t, p.NativeModules(hc)[0], "callers must not be able to reorder the package")

	other := p.NativeModules(&host.Context{})
	assert.NotSame(t, second[0], other[0])

	assert.Empty(t, p.ViewManagers(hc))
	assert.Empty(t, p.LegacyScriptModules())
}

func TestNewApp_Defaults(t *testing.T) {
	a, logs := SetupAppTest(t, nil)

	var names []string
	for _, d := range a.Registry().Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"WalletSdk", "CallbackManager"}, names)
	assert.Equal(t, config.Default().Transport.Address, a.Config().Transport.Address)
	assert.Contains(t, logs.String(), "Native modules registered.")
}

type stubLoader struct {
	model *config.Model
	err   error
	path  string
}

func (l *stubLoader) Load(_ context.Context, path string) (*config.Model, error) {
	l.path = path
	return l.model, l.err
}

func TestNewApp_Configuration(t *testing.T) {
	t.Run("loader result and overrides", func(t *testing.T) {
		m := config.Default()
		m.Wallet.Endpoint = "https://wallet.test"
		m.Wallet.Simulator.PinFor = []string{"reset_pin"}
		loader := &stubLoader{model: m}

		a := NewApp(&SafeBuffer{}, &Config{ConfigPath: "bridge.hcl", Address: "127.0.0.1:0", EvictOnComplete: true}, loader)
		defer a.Close()

		assert.Equal(t, "bridge.hcl", loader.path)
		assert.Equal(t, "127.0.0.1:0", a.Config().Transport.Address)
		assert.True(t, a.Host().Settings.EvictOnComplete)
		assert.Equal(t, "https://wallet.test", a.Host().Settings.DefaultEndpoint)
	})

	t.Run("loader error panics", func(t *testing.T) {
		loader := &stubLoader{err: errors.New("boom")}
		assert.PanicsWithError(t, "failed to load configuration: boom", func() {
			NewApp(&SafeBuffer{}, &Config{ConfigPath: "bridge.hcl"}, loader)
		})
	})

	t.Run("missing loader panics", func(t *testing.T) {
		assert.Panics(t, func() { NewApp(&SafeBuffer{}, &Config{ConfigPath: "bridge.hcl"}, nil) })
	})

	t.Run("invalid override panics", func(t *testing.T) {
		assert.Panics(t, func() { NewApp(&SafeBuffer{}, &Config{LogLevel: "loud"}, nil) })
	})

	t.Run("unknown pin workflow panics", func(t *testing.T) {
		m := config.Default()
		m.Wallet.Simulator.PinFor = []string{"MINT"}
		assert.Panics(t, func() { NewApp(&SafeBuffer{}, &Config{ConfigPath: "x.yaml"}, &stubLoader{model: m}) })
	})
}

type duplicatePackage struct{}

func (duplicatePackage) NativeModules(*host.Context) []registry.Module {
	return []registry.Module{&testutil.MockEchoModule{}, &testutil.MockEchoModule{}}
}

func (duplicatePackage) ViewManagers(*host.Context) []host.ViewManager { return nil }

func (duplicatePackage) LegacyScriptModules() []string { return nil }

func TestNewApp_RegistryValidationPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewApp(&SafeBuffer{}, &Config{}, nil, WithPackage(duplicatePackage{}))
	})
}

func invoke(t *testing.T, a *App, module, method, args string) map[string]any {
	t.Helper()
	raw, err := a.Registry().Invoke(context.Background(), module, method, []byte(args))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestApp_InteractionLifecycle(t *testing.T) {
	a, _ := SetupAppTest(t, nil, WithWallet(simulator.New(simulator.Options{})))
	rec := &testutil.EventRecorder{}
	a.Events().SetEmitter(rec)

	invoke(t, a, "WalletSdk", "initialize", `{"endpoint":"https://wallet.test"}`)
	id := invoke(t, a, "WalletSdk", "setupDevice", `{"user_id":"u1","token_id":"t1"}`)["uuid"].(string)
	require.Len(t, id, 36)

	rec.WaitFor(t, id, events.FlowComplete)
	assert.Equal(t, 1, a.Correlator().Len())

	out := invoke(t, a, "CallbackManager", "remove", `{"uuid":"`+id+`"}`)
	assert.Equal(t, true, out["removed"])
	assert.Zero(t, a.Correlator().Len())

	out = invoke(t, a, "CallbackManager", "remove", `{"uuid":"`+id+`"}`)
	assert.Equal(t, false, out["removed"])
}

func TestApp_RemoveUnknownUUID(t *testing.T) {
	a, _ := SetupAppTest(t, nil)

	out := invoke(t, a, "CallbackManager", "remove", `{"uuid":"00000000-0000-0000-0000-000000000000"}`)
	assert.Equal(t, false, out["removed"])
}

func TestApp_CloseReleasesInteractions(t *testing.T) {
	a, _ := SetupAppTest(t, nil)
	invoke(t, a, "WalletSdk", "initialize", `{"endpoint":"https://wallet.test"}`)
	invoke(t, a, "WalletSdk", "resetPin", `{"user_id":"u1"}`)
	require.Equal(t, 1, a.Correlator().Len())

	a.Close()
	a.Close()
	assert.Zero(t, a.Correlator().Len())
}

func TestHealthHandler(t *testing.T) {
	a, _ := SetupAppTest(t, nil)
	a.Correlator().Register(context.Background(), "Test", releaseFunc(func() {}))

	rr := httptest.NewRecorder()
	a.healthHandler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var body healthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, healthStatus{Status: "ok", Interactions: 1, Modules: 2}, body)
}

type releaseFunc func()

func (f releaseFunc) Release() { f() }

func TestApp_RunAndShutdown(t *testing.T) {
	a, logs := SetupAppTest(t, &Config{Address: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-a.Ready():
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge never became ready")
	}
	assert.NotEmpty(t, a.Addr())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	assert.Contains(t, logs.String(), "Bridge listening")
}

func TestApp_RunListenError(t *testing.T) {
	a, _ := SetupAppTest(t, &Config{Address: "not-an-address"})
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")

	select {
	case <-a.Ready():
		t.Fatal("Ready closed although Run never listened")
	default:
	}
	assert.Empty(t, a.Addr())
}
