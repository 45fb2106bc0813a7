package types

import (
	"github.com/shamaton/msgpack/v2"
)

// Metrics summarises the activity of a VM since it was created.
type Metrics struct {
	Invocations uint64
	// DeterministicFailures counts invocations that ended with a deterministic host error,
	// most commonly an exhausted gas budget.
	DeterministicFailures uint64
	HitsMemoryCache       uint32
	Misses                uint32
	ElementsMemoryCache   uint64
	// Cumulative size of all modules in the memory cache (in bytes)
	SizeMemoryCache uint64
}

type PerModuleMetrics struct {
	Hits uint32 `msgpack:"hits"`
	Size uint64 `msgpack:"size"`
	// StaticMemoryGas is the load-time memory charge of the module.
	StaticMemoryGas uint64 `msgpack:"static_memory_gas"`
	// InstructionGas is the summed weight of every instruction in the module's
	// function bodies, a static measure of its size.
	InstructionGas uint64 `msgpack:"instruction_gas"`
}

type PerModuleEntry struct {
	Checksum Checksum
	Metrics  PerModuleMetrics
}

// ModuleMetrics lists per-module statistics of the code cache.
type ModuleMetrics struct {
	PerModule []PerModuleEntry `msgpack:"per_module"`
}

func (pm *ModuleMetrics) MarshalMessagePack() ([]byte, error) {
	return msgpack.MarshalAsArray(pm)
}

func (pm *ModuleMetrics) UnmarshalMessagePack(data []byte) error {
	return msgpack.UnmarshalAsArray(data, pm)
}
