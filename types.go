package wasmgas

import (
	"github.com/indexvm/wasmgas/internal/runtime/host"
	"github.com/indexvm/wasmgas/internal/runtime/store"
	"github.com/indexvm/wasmgas/internal/runtime/wasm"
	"github.com/indexvm/wasmgas/types"
)

// WasmCode is an alias for raw bytes of the wasm compiled code
type WasmCode []byte

type (
	Checksum               = types.Checksum
	Gas                    = types.Gas
	GasReport              = types.GasReport
	VMConfig               = types.VMConfig
	Metrics                = types.Metrics
	ModuleMetrics          = types.ModuleMetrics
	OutOfGasError          = types.OutOfGasError
	DeterministicHostError = types.DeterministicHostError
)

// Result describes a successful handler invocation.
type Result = wasm.Result

// DataSourceTemplate is a data source a handler asked to create.
type DataSourceTemplate = host.DataSourceTemplate

// Store holds the entities handlers read and write.
type Store = store.MemStore

type (
	Entity    = store.Entity
	EntityKey = store.EntityKey
	Value     = store.Value
)

// NewStore returns an empty entity store.
func NewStore() *Store {
	return store.NewMemStore()
}
