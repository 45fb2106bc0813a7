package host

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/shamaton/msgpack/v2"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/internal/runtime/store"
	"github.com/indexvm/wasmgas/types"
)

// ModuleName is the import module of every host export.
const ModuleName = "env"

var errMissingEnvironment = errors.New("host function called without an environment")

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// export is one host function. Arguments are guest (pointer, length) pairs
// unless noted, results are packed regions.
type export struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
	fn      func(ctx context.Context, env *Environment, mod api.Module, stack []uint64) error
}

var exports = []export{
	{gas.OpGas, []api.ValueType{i32}, nil, hostGas},
	{gas.OpStoreGet, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}, hostStoreGet},
	{gas.OpStoreSet, []api.ValueType{i32, i32, i32, i32, i32, i32}, nil, hostStoreSet},
	{gas.OpStoreRemove, []api.ValueType{i32, i32, i32, i32}, nil, hostStoreRemove},
	{gas.OpLog, []api.ValueType{i32, i32, i32}, nil, hostLog},
	{gas.OpBigIntPlus, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}, bigIntBinary((*Environment).BigIntPlus)},
	{gas.OpBigIntMinus, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}, bigIntBinary((*Environment).BigIntMinus)},
	{gas.OpBigIntTimes, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}, bigIntBinary((*Environment).BigIntTimes)},
	{gas.OpBigIntDividedBy, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}, bigIntBinary((*Environment).BigIntDividedBy)},
	{gas.OpBigIntMod, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}, bigIntBinary((*Environment).BigIntMod)},
	{gas.OpBigIntPow, []api.ValueType{i32, i32, i32}, []api.ValueType{i64}, hostBigIntPow},
	{gas.OpBytesToHex, []api.ValueType{i32, i32}, []api.ValueType{i64}, hostBytesToHex},
	{gas.OpBytesToString, []api.ValueType{i32, i32}, []api.ValueType{i64}, hostBytesToString},
	{gas.OpKeccak256, []api.ValueType{i32, i32}, []api.ValueType{i64}, bytesUnary((*Environment).Keccak256)},
	{gas.OpJSONFromBytes, []api.ValueType{i32, i32}, []api.ValueType{i64}, bytesUnary((*Environment).JSONFromBytes)},
	{gas.OpDataSourceCreate, []api.ValueType{i32, i32, i32, i32}, nil, hostDataSourceCreate},
}

// ExportNames returns the sorted names of all host exports.
func ExportNames() []string {
	names := make([]string, len(exports))
	for i, e := range exports {
		names[i] = e.name
	}
	sort.Strings(names)
	return names
}

// Register instantiates the host module on r. The environment of an invocation
// is taken from the context passed to the guest call, see WithEnvironment.
// A failing host function panics with its error, which aborts the guest call
// and is returned wrapped by wazero.
func Register(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(ModuleName)
	for _, e := range exports {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(wrap(e), e.params, e.results).
			Export(e.name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiating host module %q: %w", ModuleName, err)
	}
	return mod, nil
}

func wrap(e export) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		env, ok := EnvironmentFromContext(ctx)
		if !ok {
			panic(errMissingEnvironment)
		}
		if err := e.fn(ctx, env, mod, stack); err != nil {
			panic(env.fail(err))
		}
	}
}

func readKey(mod api.Module, stack []uint64) (store.EntityKey, error) {
	entityType, err := readArg(mod, stack, 0)
	if err != nil {
		return store.EntityKey{}, err
	}
	id, err := readArg(mod, stack, 2)
	if err != nil {
		return store.EntityKey{}, err
	}
	return store.EntityKey{EntityType: string(entityType), EntityID: string(id)}, nil
}

func hostGas(_ context.Context, env *Environment, _ api.Module, stack []uint64) error {
	return env.Gas(api.DecodeU32(stack[0]))
}

func hostStoreGet(ctx context.Context, env *Environment, mod api.Module, stack []uint64) error {
	key, err := readKey(mod, stack)
	if err != nil {
		return err
	}
	entity, found, err := env.StoreGet(key)
	if err != nil {
		return err
	}
	if !found {
		stack[0] = 0
		return nil
	}
	bz, err := store.EncodeEntity(entity)
	if err != nil {
		return err
	}
	stack[0], err = writeResult(ctx, mod, bz)
	return err
}

func hostStoreSet(_ context.Context, env *Environment, mod api.Module, stack []uint64) error {
	key, err := readKey(mod, stack)
	if err != nil {
		return err
	}
	data, err := readArg(mod, stack, 4)
	if err != nil {
		return err
	}
	entity, err := store.DecodeEntity(data)
	if err != nil {
		return types.NewDeterministicHostError(err)
	}
	return env.StoreSet(key, entity)
}

func hostStoreRemove(_ context.Context, env *Environment, mod api.Module, stack []uint64) error {
	key, err := readKey(mod, stack)
	if err != nil {
		return err
	}
	return env.StoreRemove(key)
}

func hostLog(_ context.Context, env *Environment, mod api.Module, stack []uint64) error {
	msg, err := readArg(mod, stack, 1)
	if err != nil {
		return err
	}
	return env.Log(LogLevel(api.DecodeU32(stack[0])), string(msg))
}

func bigIntBinary(op func(*Environment, *big.Int, *big.Int) (*big.Int, error)) func(context.Context, *Environment, api.Module, []uint64) error {
	return func(ctx context.Context, env *Environment, mod api.Module, stack []uint64) error {
		x, err := readArg(mod, stack, 0)
		if err != nil {
			return err
		}
		y, err := readArg(mod, stack, 2)
		if err != nil {
			return err
		}
		result, err := op(env, DecodeBigInt(x), DecodeBigInt(y))
		if err != nil {
			return err
		}
		stack[0], err = writeResult(ctx, mod, EncodeBigInt(result))
		return err
	}
}

func hostBigIntPow(ctx context.Context, env *Environment, mod api.Module, stack []uint64) error {
	x, err := readArg(mod, stack, 0)
	if err != nil {
		return err
	}
	exp := api.DecodeU32(stack[2])
	if exp > math.MaxUint8 {
		return types.NewDeterministicHostError(fmt.Errorf("bigInt.pow: exponent %d exceeds %d", exp, math.MaxUint8))
	}
	result, err := env.BigIntPow(DecodeBigInt(x), uint8(exp))
	if err != nil {
		return err
	}
	stack[0], err = writeResult(ctx, mod, EncodeBigInt(result))
	return err
}

func bytesUnary(op func(*Environment, []byte) ([]byte, error)) func(context.Context, *Environment, api.Module, []uint64) error {
	return func(ctx context.Context, env *Environment, mod api.Module, stack []uint64) error {
		b, err := readArg(mod, stack, 0)
		if err != nil {
			return err
		}
		result, err := op(env, b)
		if err != nil {
			return err
		}
		stack[0], err = writeResult(ctx, mod, result)
		return err
	}
}

func hostBytesToHex(ctx context.Context, env *Environment, mod api.Module, stack []uint64) error {
	return bytesUnary(func(env *Environment, b []byte) ([]byte, error) {
		s, err := env.BytesToHex(b)
		return []byte(s), err
	})(ctx, env, mod, stack)
}

func hostBytesToString(ctx context.Context, env *Environment, mod api.Module, stack []uint64) error {
	return bytesUnary(func(env *Environment, b []byte) ([]byte, error) {
		s, err := env.BytesToString(b)
		return []byte(s), err
	})(ctx, env, mod, stack)
}

// hostDataSourceCreate takes the template name and its parameters as a msgpack
// encoded list of strings.
func hostDataSourceCreate(_ context.Context, env *Environment, mod api.Module, stack []uint64) error {
	name, err := readArg(mod, stack, 0)
	if err != nil {
		return err
	}
	raw, err := readArg(mod, stack, 2)
	if err != nil {
		return err
	}
	var params []string
	if len(raw) > 0 {
		if err := msgpack.Unmarshal(raw, &params); err != nil {
			return types.NewDeterministicHostError(fmt.Errorf("dataSource.create params: %w", err))
		}
	}
	return env.DataSourceCreate(string(name), params)
}
