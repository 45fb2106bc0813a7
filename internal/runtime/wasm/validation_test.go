package wasm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/internal/runtime/store"
	"github.com/indexvm/wasmgas/internal/wasmtest"
	"github.com/indexvm/wasmgas/types"
)

func TestStaticMemoryChargeIsSeparateFromCounter(t *testing.T) {
	vm, _ := newTestVM(t, testConfig(gas.MaxGasPerHandler.Uint64(), 10))
	checksum, static, err := vm.StoreCode(memoryModule(3))
	require.NoError(t, err)
	want := gas.DefaultMemoryGrowRule().Cost(3)
	assert.Equal(t, types.NewGas(3*50_862_630), want)
	assert.Equal(t, want, static)

	res, err := vm.Invoke(context.Background(), checksum, "handle", store.NewMemStore())
	require.NoError(t, err)
	assert.Equal(t, want, res.Gas.StaticMemory)
	assert.Equal(t, types.ZeroGas, res.Gas.Used)
}

func TestStaticMemoryChargeAtCeilingIsRejected(t *testing.T) {
	perPage := gas.DefaultMemoryGrowRule().GasPerPage.Uint64()
	vm, _ := newTestVM(t, testConfig(2*perPage, 10))

	_, static, err := vm.StoreCode(memoryModule(1))
	require.NoError(t, err)
	assert.Equal(t, types.NewGas(perPage), static)

	_, static, err = vm.StoreCode(memoryModule(2))
	require.Error(t, err)
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, types.IsDeterministic(err))
	assert.Equal(t, types.NewGas(2*perPage), static)
}

func TestStoreCodeRejectsUnknownImports(t *testing.T) {
	vm, _ := newTestVM(t, testConfig(1000, 10))

	m := wasmtest.New()
	m.ImportFunc("env", "ethereum.call", []wasmtest.ValType{i32}, noVal)
	m.Func("handle", noVal, noVal)
	_, _, err := vm.StoreCode(m.Bytes())
	require.EqualError(t, err, "import env.ethereum.call: unknown host export")

	m = wasmtest.New()
	m.ImportFunc("wasi", "gas", []wasmtest.ValType{i32}, noVal)
	m.Func("handle", noVal, noVal)
	_, _, err = vm.StoreCode(m.Bytes())
	require.EqualError(t, err, "import wasi.gas: unknown module")

	_, _, err = vm.StoreCode([]byte("not wasm"))
	require.Error(t, err)
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.False(t, types.IsDeterministic(err))
}

func TestStoreCodeLimits(t *testing.T) {
	cfg := testConfig(gas.MaxGasPerHandler.Uint64(), 10)
	one, four := uint32(1), uint32(4)
	cfg.Limits = types.WasmLimits{MaxImports: &one, MaxMemoryPages: &four}
	vm, _ := newTestVM(t, cfg)

	m := wasmtest.New()
	m.ImportFunc("env", gas.OpGas, []wasmtest.ValType{i32}, noVal)
	m.ImportFunc("env", gas.OpLog, []wasmtest.ValType{i32, i32, i32}, noVal)
	m.Func("handle", noVal, noVal)
	_, _, err := vm.StoreCode(m.Bytes())
	require.EqualError(t, err, "module imports 2 functions, limit is 1")

	_, _, err = vm.StoreCode(memoryModule(5))
	require.EqualError(t, err, "memory starts with 5 pages, limit is 4")

	_, _, err = vm.StoreCode(memoryModule(4))
	require.NoError(t, err)
}

func TestStoreCodeRequiresExportedMemory(t *testing.T) {
	perPage := gas.DefaultMemoryGrowRule().GasPerPage.Uint64()
	cfg := testConfig(10*perPage, 10)
	four := uint32(4)
	cfg.Limits = types.WasmLimits{MaxMemoryPages: &four}
	vm, _ := newTestVM(t, cfg)

	// above both the page limit and the ceiling, but not exported
	m := wasmtest.New()
	m.PrivateMemory(20)
	m.Func("handle", noVal, noVal)
	checksum, static, err := vm.StoreCode(m.Bytes())
	require.EqualError(t, err, "module must export its memory")
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, types.ZeroGas, static)
	_, err = vm.GetCode(checksum)
	require.Error(t, err)

	// a module without memory has nothing to charge
	m = wasmtest.New()
	m.Func("handle", noVal, noVal)
	_, static, err = vm.StoreCode(m.Bytes())
	require.NoError(t, err)
	assert.Equal(t, types.ZeroGas, static)
}

func TestStoreCodeRecordsInstructionGas(t *testing.T) {
	vm, _ := newTestVM(t, testConfig(gas.MaxGasPerHandler.Uint64(), 10))

	// three i32.const and call pairs and the final end
	calls, _, err := vm.StoreCode(gasModule(100, 0, 250))
	require.NoError(t, err)
	empty, _, err := vm.StoreCode(memoryModule(1))
	require.NoError(t, err)

	want := map[types.Checksum]uint64{
		calls: 3*(100+951) + 100,
		empty: 100,
	}
	mm := vm.ModuleMetrics()
	require.Len(t, mm.PerModule, 2)
	for _, e := range mm.PerModule {
		assert.Equal(t, want[e.Checksum], e.Metrics.InstructionGas, e.Checksum.String())
	}
}
