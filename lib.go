// Package wasmgas runs sandboxed wasm indexing handlers under deterministic gas
// metering.
package wasmgas

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/internal/runtime/wasm"
	"github.com/indexvm/wasmgas/types"
)

// VM is the main entry point to this library.
// Create one instance per process and use it for all handler related actions.
type VM struct {
	inner *wasm.VM
}

// NewVM creates a new VM.
//
// `config` carries the gas ceiling and per-call overhead every node must agree on,
// plus the local limits and cache sizes.
// `logger` receives the log lines of handlers and of the VM itself.
// `reg` registers the handler metrics. Pass nil to keep them private.
func NewVM(config VMConfig, logger zerolog.Logger, reg prometheus.Registerer) (*VM, error) {
	inner, err := wasm.NewVM(config, logger, reg)
	if err != nil {
		return nil, err
	}
	return &VM{inner: inner}, nil
}

// DefaultVMConfig returns the default cost model with an in-memory cache of 100
// modules and 32 MiB of memory per instance.
func DefaultVMConfig() VMConfig {
	return VMConfig{
		Gas: gas.DefaultGasConfig(),
		Cache: types.CacheOptions{
			MemoryCacheSize:     100,
			InstanceMemoryLimit: types.NewSizeMebi(32),
		},
	}
}

// Cleanup should be called when no longer using this to free the runtime.
func (vm *VM) Cleanup() {
	_ = vm.inner.Close()
}

// StoreCode validates and compiles a handler module and stores the original code.
// Both can be referenced later via the returned checksum.
//
// The returned gas is the load-time charge for the module's initial memory. It is
// never added to the counter of an invocation but is reported next to it.
// Storing the same code twice is a no-op returning the same checksum.
func (vm *VM) StoreCode(code WasmCode) (Checksum, Gas, error) {
	return vm.inner.StoreCode(code)
}

// GetCode will load the original wasm code for the given checksum.
// This will only succeed if that checksum was previously returned from
// a call to StoreCode.
func (vm *VM) GetCode(checksum Checksum) (WasmCode, error) {
	return vm.inner.GetCode(checksum)
}

// RemoveCode drops the code and any compiled copy of it.
func (vm *VM) RemoveCode(checksum Checksum) error {
	return vm.inner.RemoveCode(checksum)
}

// Invoke runs the exported handler of a stored module against st.
//
// Writes reach st only if the handler succeeds. A failure that every node would
// reproduce, such as running out of gas, is returned as a *DeterministicHostError
// and the handler must not be retried.
func (vm *VM) Invoke(ctx context.Context, checksum Checksum, handler string, st *Store) (Result, error) {
	return vm.inner.Invoke(ctx, checksum, handler, st)
}

// GetMetrics returns cache and invocation counters.
func (vm *VM) GetMetrics() Metrics {
	return vm.inner.Metrics()
}

// GetModuleMetrics returns per-module counters sorted by checksum.
func (vm *VM) GetModuleMetrics() ModuleMetrics {
	return vm.inner.ModuleMetrics()
}
