package wasm

import (
	"fmt"
	"slices"

	"github.com/tetratelabs/wazero"

	"github.com/indexvm/wasmgas/internal/runtime/host"
	"github.com/indexvm/wasmgas/types"
)

// validate checks a compiled module against the host surface and the
// configured limits and returns its layout and static memory charge.
//
// The charge prices the initial memory the module defines, exported or not,
// with the memory growth rule. It is a budget of its own: it is compared with
// the handler ceiling but never added to the counter of an invocation.
func (vm *VM) validate(code []byte, compiled wazero.CompiledModule) (layout, types.Gas, error) {
	known := host.ExportNames()
	imports := compiled.ImportedFunctions()
	if limit := vm.config.Limits.MaxImports; limit != nil && len(imports) > int(*limit) {
		return layout{}, types.ZeroGas, &types.ValidationError{
			Msg: fmt.Sprintf("module imports %d functions, limit is %d", len(imports), *limit),
		}
	}
	for _, fn := range imports {
		moduleName, name, _ := fn.Import()
		if moduleName != host.ModuleName {
			return layout{}, types.ZeroGas, &types.ValidationError{Msg: fmt.Sprintf("import %s.%s: unknown module", moduleName, name)}
		}
		if _, found := slices.BinarySearch(known, name); !found {
			return layout{}, types.ZeroGas, &types.ValidationError{Msg: fmt.Sprintf("import %s.%s: unknown host export", moduleName, name)}
		}
	}

	if mems := compiled.ImportedMemories(); len(mems) > 0 {
		return layout{}, types.ZeroGas, &types.ValidationError{Msg: "module must define its own memory"}
	}

	l, err := scanModule(code, vm.rules)
	if err != nil {
		return layout{}, types.ZeroGas, &types.ValidationError{Msg: "decoding module", Err: err}
	}
	switch {
	case len(l.memories) > 1:
		return l, types.ZeroGas, &types.ValidationError{Msg: fmt.Sprintf("module defines %d memories, at most one is allowed", len(l.memories))}
	case len(l.memories) == 1 && len(compiled.ExportedMemories()) == 0:
		return l, types.ZeroGas, &types.ValidationError{Msg: "module must export its memory"}
	}

	pages := l.initialPages()
	if limit := vm.config.Limits.MaxMemoryPages; limit != nil && pages > *limit {
		return l, types.ZeroGas, &types.ValidationError{
			Msg: fmt.Sprintf("memory starts with %d pages, limit is %d", pages, *limit),
		}
	}

	charge := vm.rules.MemoryGrowCost().Cost(pages)
	if charge.AtLeast(vm.config.Gas.MaxGasPerHandler) {
		return l, charge, &types.ValidationError{
			Msg: "initial memory exceeds the handler gas ceiling",
			Err: types.NewDeterministicHostError(types.OutOfGasError{Used: charge, Limit: vm.config.Gas.MaxGasPerHandler}),
		}
	}
	return l, charge, nil
}
