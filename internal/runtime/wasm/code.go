package wasm

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/tetratelabs/wazero"

	"github.com/indexvm/wasmgas/types"
)

// cachedModule is a compiled module in the memory cache. An evicted module is
// closed once the last instantiation using it has finished.
type cachedModule struct {
	compiled wazero.CompiledModule
	checksum types.Checksum
	inUse    int
	evicted  bool
}

// StoreCode compiles and validates a module and returns its checksum and
// static memory charge. Storing the same code twice is a no-op.
func (vm *VM) StoreCode(code []byte) (types.Checksum, types.Gas, error) {
	checksum := types.ChecksumOf(code)

	vm.cacheMu.RLock()
	stored, ok := vm.codeStore[checksum]
	vm.cacheMu.RUnlock()
	if ok {
		vm.logger.Debug().Stringer("checksum", checksum).Msg("StoreCode called for already stored code")
		return checksum, stored.staticMemory, nil
	}

	compiled, err := vm.runtime.CompileModule(context.Background(), code)
	if err != nil {
		return checksum, types.ZeroGas, &types.ValidationError{Msg: "compiling module", Err: err}
	}
	l, charge, err := vm.validate(code, compiled)
	if err != nil {
		_ = compiled.Close(context.Background())
		vm.logger.Info().Err(err).Stringer("checksum", checksum).Msg("rejected module")
		return checksum, charge, err
	}

	vm.cacheMu.Lock()
	defer vm.cacheMu.Unlock()
	if stored, ok := vm.codeStore[checksum]; ok {
		// stored concurrently
		_ = compiled.Close(context.Background())
		return checksum, stored.staticMemory, nil
	}
	vm.codeStore[checksum] = &module{
		code:           bytes.Clone(code),
		staticMemory:   charge,
		instructionGas: l.instructionGas,
	}
	vm.cacheCompiled(checksum, compiled)
	vm.metrics.observeModule(charge.Uint64())
	vm.logger.Info().
		Stringer("checksum", checksum).
		Int("size", len(code)).
		Stringer("static_memory_gas", charge).
		Stringer("instruction_gas", l.instructionGas).
		Msg("stored new module")
	return checksum, charge, nil
}

// GetCode returns the bytecode stored under checksum.
func (vm *VM) GetCode(checksum types.Checksum) ([]byte, error) {
	vm.cacheMu.RLock()
	defer vm.cacheMu.RUnlock()
	m, ok := vm.codeStore[checksum]
	if !ok {
		return nil, fmt.Errorf("code for %s not found", checksum)
	}
	return bytes.Clone(m.code), nil
}

// RemoveCode drops the bytecode and any compiled form.
func (vm *VM) RemoveCode(checksum types.Checksum) error {
	vm.cacheMu.Lock()
	defer vm.cacheMu.Unlock()
	if _, ok := vm.codeStore[checksum]; !ok {
		return fmt.Errorf("code for %s not found", checksum)
	}
	delete(vm.codeStore, checksum)
	vm.evict(checksum)
	vm.logger.Info().Stringer("checksum", checksum).Msg("removed module")
	return nil
}

// ModuleMetrics returns per module statistics ordered by checksum.
func (vm *VM) ModuleMetrics() types.ModuleMetrics {
	vm.cacheMu.RLock()
	defer vm.cacheMu.RUnlock()
	entries := make([]types.PerModuleEntry, 0, len(vm.codeStore))
	for cs, m := range vm.codeStore {
		entries = append(entries, types.PerModuleEntry{
			Checksum: cs,
			Metrics: types.PerModuleMetrics{
				Hits:            m.hits,
				Size:            uint64(len(m.code)),
				StaticMemoryGas: m.staticMemory.Uint64(),
				InstructionGas:  m.instructionGas.Uint64(),
			},
		})
	}
	slices.SortFunc(entries, func(a, b types.PerModuleEntry) int {
		return a.Checksum.Compare(b.Checksum)
	})
	return types.ModuleMetrics{PerModule: entries}
}

// acquire returns the compiled form of a stored module, compiling it again
// when it was evicted, and marks it in use until release is called. Only the
// lookup and compilation happen under cacheMu, so callers instantiate in
// parallel.
func (vm *VM) acquire(ctx context.Context, checksum types.Checksum) (*cachedModule, *module, error) {
	vm.cacheMu.Lock()
	defer vm.cacheMu.Unlock()
	m, ok := vm.codeStore[checksum]
	if !ok {
		return nil, nil, fmt.Errorf("code for %s not found", checksum)
	}
	m.hits++
	if cached, ok := vm.memoryCache[checksum]; ok {
		vm.hitsMemory++
		vm.touch(checksum)
		cached.inUse++
		return cached, m, nil
	}
	vm.misses++
	compiled, err := vm.runtime.CompileModule(ctx, m.code)
	if err != nil {
		return nil, nil, fmt.Errorf("recompiling %s: %w", checksum, err)
	}
	cached := vm.cacheCompiled(checksum, compiled)
	cached.inUse++
	return cached, m, nil
}

// release ends a use started by acquire.
func (vm *VM) release(cached *cachedModule) {
	vm.cacheMu.Lock()
	defer vm.cacheMu.Unlock()
	cached.inUse--
	if cached.evicted && cached.inUse == 0 {
		vm.closeCompiled(cached)
	}
}

// cacheCompiled adds compiled to the memory cache and evicts the least
// recently used modules above capacity. The cache always holds at least the
// module just added.
func (vm *VM) cacheCompiled(checksum types.Checksum, compiled wazero.CompiledModule) *cachedModule {
	cached := &cachedModule{compiled: compiled, checksum: checksum}
	vm.memoryCache[checksum] = cached
	vm.cacheOrder = append(vm.cacheOrder, checksum)
	limit := int(vm.config.Cache.MemoryCacheSize)
	if limit < 1 {
		limit = 1
	}
	for len(vm.cacheOrder) > limit {
		oldest := vm.cacheOrder[0]
		vm.evict(oldest)
		vm.logger.Debug().Stringer("checksum", oldest).Msg("evicted module (LRU)")
	}
	return cached
}

func (vm *VM) touch(checksum types.Checksum) {
	if i := slices.Index(vm.cacheOrder, checksum); i >= 0 {
		vm.cacheOrder = append(slices.Delete(vm.cacheOrder, i, i+1), checksum)
	}
}

// evict removes checksum from the memory cache. The compiled module is closed
// now, or by the last release if it is still being instantiated.
func (vm *VM) evict(checksum types.Checksum) {
	if cached, ok := vm.memoryCache[checksum]; ok {
		delete(vm.memoryCache, checksum)
		cached.evicted = true
		if cached.inUse == 0 {
			vm.closeCompiled(cached)
		}
	}
	if i := slices.Index(vm.cacheOrder, checksum); i >= 0 {
		vm.cacheOrder = slices.Delete(vm.cacheOrder, i, i+1)
	}
}

func (vm *VM) closeCompiled(cached *cachedModule) {
	if err := cached.compiled.Close(context.Background()); err != nil {
		vm.logger.Error().Err(err).Stringer("checksum", cached.checksum).Msg("closing compiled module")
	}
}
