// Package wasm loads handler modules and runs handler invocations on wazero.
package wasm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/internal/runtime/host"
	"github.com/indexvm/wasmgas/types"
)

// wazero cannot address more than 4 GiB of linear memory.
const maxRuntimePages = 65536

// module is a validated module together with its load-time charge.
type module struct {
	code           []byte
	staticMemory   types.Gas
	instructionGas types.Gas
	hits           uint32
}

// VM runs handler modules.
type VM struct {
	runtime wazero.Runtime
	config  types.VMConfig
	costs   *gas.CostTable
	rules   gas.Rules
	logger  zerolog.Logger
	metrics *Metrics

	cacheMu     sync.RWMutex
	codeStore   map[types.Checksum]*module
	memoryCache map[types.Checksum]*cachedModule
	cacheOrder  []types.Checksum // least recently used first
	hitsMemory  uint32
	misses      uint32

	invocations           atomic.Uint64
	deterministicFailures atomic.Uint64
}

// NewVM creates a VM and registers the host module. A nil Registerer keeps the
// metrics private to the VM.
func NewVM(config types.VMConfig, logger zerolog.Logger, reg prometheus.Registerer) (*VM, error) {
	if config.Gas.HostExportGas.IsZero() {
		return nil, fmt.Errorf("host export gas must not be zero")
	}
	if config.Gas.MaxGasPerHandler.IsZero() {
		return nil, fmt.Errorf("max gas per handler must not be zero")
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	ctx := context.Background()
	// SIMD stays off so every accepted module decodes with scanModule.
	rtConfig := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithCoreFeatures(api.CoreFeaturesV2.SetEnabled(api.CoreFeatureSIMD, false))
	if limit := config.Cache.InstanceMemoryLimit.Bytes(); limit > 0 {
		pages := uint64(limit) / gas.PageSize
		if pages > maxRuntimePages {
			pages = maxRuntimePages
		}
		rtConfig = rtConfig.WithMemoryLimitPages(uint32(pages))
	}
	vm := &VM{
		runtime:     wazero.NewRuntimeWithConfig(ctx, rtConfig),
		config:      config,
		costs:       gas.DefaultCostTable(),
		rules:       gas.DefaultRules(),
		logger:      logger,
		metrics:     metrics,
		codeStore:   make(map[types.Checksum]*module),
		memoryCache: make(map[types.Checksum]*cachedModule),
	}
	if _, err := host.Register(ctx, vm.runtime); err != nil {
		_ = vm.runtime.Close(ctx)
		return nil, err
	}
	logger.Info().
		Stringer("max_gas_per_handler", config.Gas.MaxGasPerHandler).
		Stringer("host_export_gas", config.Gas.HostExportGas).
		Msg("wazero runtime initialized")
	return vm, nil
}

// Close releases all compiled modules and the runtime.
func (vm *VM) Close() error {
	vm.cacheMu.Lock()
	defer vm.cacheMu.Unlock()
	ctx := context.Background()
	for _, cached := range vm.memoryCache {
		vm.closeCompiled(cached)
	}
	vm.memoryCache = make(map[types.Checksum]*cachedModule)
	vm.cacheOrder = nil
	return vm.runtime.Close(ctx)
}

// Metrics returns cache and invocation statistics.
func (vm *VM) Metrics() types.Metrics {
	vm.cacheMu.RLock()
	defer vm.cacheMu.RUnlock()
	m := types.Metrics{
		Invocations:           vm.invocations.Load(),
		DeterministicFailures: vm.deterministicFailures.Load(),
		HitsMemoryCache:       vm.hitsMemory,
		Misses:                vm.misses,
		ElementsMemoryCache:   uint64(len(vm.memoryCache)),
	}
	for cs := range vm.memoryCache {
		m.SizeMemoryCache += uint64(len(vm.codeStore[cs].code))
	}
	return m
}
