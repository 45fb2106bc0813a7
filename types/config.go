package types

import (
	"encoding/json"
)

// VMConfig defines the configuration for the VM.
type VMConfig struct {
	Gas    GasConfig    `json:"gas"`
	Limits WasmLimits   `json:"wasm_limits"`
	Cache  CacheOptions `json:"cache"`
}

// GasConfig holds the values that bound one handler invocation.
// Changing either value changes consensus: every node indexing the same
// deployment must run with the same GasConfig.
type GasConfig struct {
	// MaxGasPerHandler is the ceiling of a single invocation.
	MaxGasPerHandler Gas `json:"max_gas_per_handler"`
	// HostExportGas is added to every host call regardless of its arguments.
	HostExportGas Gas `json:"host_export_gas"`
}

type WasmLimits struct {
	MaxImports     *uint32 `json:"max_imports,omitempty"`
	MaxMemoryPages *uint32 `json:"max_memory_pages,omitempty"`
}

type CacheOptions struct {
	// MemoryCacheSize is the number of compiled modules kept in memory.
	MemoryCacheSize     uint32 `json:"memory_cache_size"`
	InstanceMemoryLimit Size   `json:"instance_memory_limit"`
}

type Size struct{ uint32 }

func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.uint32)
}

func (s *Size) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.uint32)
}

// Bytes returns the size in bytes.
func (s Size) Bytes() uint32 {
	return s.uint32
}

func NewSize(v uint32) Size {
	return Size{v}
}

func NewSizeKibi(v uint32) Size {
	return Size{v * 1024}
}

func NewSizeMebi(v uint32) Size {
	return Size{v * 1024 * 1024}
}

func NewSizeGibi(v uint32) Size {
	return Size{v * 1024 * 1024 * 1024}
}
