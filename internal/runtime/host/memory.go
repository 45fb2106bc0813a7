package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/indexvm/wasmgas/types"
)

// readMemory copies length bytes at offset out of guest memory. Bad pointers
// are a deterministic failure of the handler.
func readMemory(mem api.Memory, offset, length uint32) ([]byte, error) {
	if mem == nil {
		return nil, types.NewDeterministicHostError(fmt.Errorf("module exports no memory"))
	}
	data, ok := mem.Read(offset, length)
	if !ok {
		return nil, types.NewDeterministicHostError(fmt.Errorf("failed to read memory at offset %d, length %d", offset, length))
	}
	return append([]byte(nil), data...), nil
}

// readArg reads the (pointer, length) pair starting at stack[i].
func readArg(mod api.Module, stack []uint64, i int) ([]byte, error) {
	return readMemory(mod.Memory(), api.DecodeU32(stack[i]), api.DecodeU32(stack[i+1]))
}

// allocateInModule calls the module's allocate export.
func allocateInModule(ctx context.Context, mod api.Module, size uint32) (uint32, error) {
	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		return 0, types.NewDeterministicHostError(fmt.Errorf("module does not export 'allocate' function"))
	}
	results, err := allocateFn.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("failed to call 'allocate': %w", err)
	}
	if len(results) != 1 {
		return 0, types.NewDeterministicHostError(fmt.Errorf("expected 1 result from 'allocate', got %d", len(results)))
	}
	return api.DecodeU32(results[0]), nil
}

// writeResult copies data into memory allocated by the module and returns the
// packed region.
func writeResult(ctx context.Context, mod api.Module, data []byte) (uint64, error) {
	ptr, err := allocateInModule(ctx, mod, uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if !mod.Memory().Write(ptr, data) {
		return 0, types.NewDeterministicHostError(fmt.Errorf("failed to write %d bytes to memory at offset %d", len(data), ptr))
	}
	return PackRegion(ptr, uint32(len(data))), nil
}

// PackRegion packs a guest pointer and length into the i64 returned by host
// exports. Zero means no result.
func PackRegion(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

func UnpackRegion(region uint64) (ptr, length uint32) {
	return uint32(region >> 32), uint32(region)
}
