package gas

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/holiman/uint256"

	"github.com/indexvm/wasmgas/types"
)

// GasSizer is implemented by values whose gas size depends on their contents.
//
// The size is a stable, structural measure of the value (byte length, field count,
// digit count, element count). It must be identical on every platform and every run,
// so it may never depend on addresses, allocator state, timing or floating point.
type GasSizer interface {
	GasSizeOf() types.Gas
}

// ConstGasSizer is implemented by types whose instances all share one gas size.
// The method must not look at its receiver.
//
// A type implements exactly one of GasSizer and ConstGasSizer. CheckSizer enforces
// this in tests.
type ConstGasSizer interface {
	ConstGasSizeOf() types.Gas
}

// Sizes used for values without a GasSizer implementation of their own.
var (
	boolSize = types.NewGas(1)
	nilSize  = types.NewGas(1)
	// mapOverhead and mapEntryOverhead approximate the bookkeeping of a map
	mapOverhead      = types.NewGas(32)
	mapEntryOverhead = types.NewGas(8)
)

// SizeOf returns the gas size of v.
//
// Constant sizes take precedence, then GasSizeOf, then the built-in rules for Go
// values. A value that matches none of them is a defect in the cost model and panics
// with a types.MalformedCostModelError.
func SizeOf(v any) types.Gas {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nilSize
	}
	switch x := v.(type) {
	case nil:
		return nilSize
	case ConstGasSizer:
		return x.ConstGasSizeOf()
	case GasSizer:
		return x.GasSizeOf()
	case bool:
		return boolSize
	case uint8, int8:
		return types.NewGas(1)
	case uint16, int16:
		return types.NewGas(2)
	case uint32, int32:
		return types.NewGas(4)
	case uint64, int64, uint, int:
		return types.NewGas(8)
	case string:
		return types.NewGas(uint64(len(x)))
	case []byte:
		return types.NewGas(uint64(len(x)))
	case *big.Int:
		return bigIntSize(x)
	case *uint256.Int:
		// same rule as *big.Int, so both forms of a value cost the same
		return types.NewGas(uint64(x.BitLen())/8 + 1)
	}

	switch rv.Kind() {
	case reflect.Pointer:
		// an optional value costs one more than the value it holds
		return nilSize.Add(SizeOf(rv.Elem().Interface()))
	case reflect.Slice, reflect.Array:
		return sliceSize(rv)
	case reflect.Map:
		return mapSize(rv)
	case reflect.String:
		return types.NewGas(uint64(rv.Len()))
	}
	if c, ok := constSizeOfType(rv.Type()); ok {
		return c
	}
	panic(types.MalformedCostModelError{
		Type:   fmt.Sprintf("%T", v),
		Reason: "GasSizeOf unimplemented",
	})
}

// bigIntSize is an upper bound of the number of bytes needed to represent x.
// Zero has a size of 1.
func bigIntSize(x *big.Int) types.Gas {
	return types.NewGas(uint64(x.BitLen())/8 + 1)
}

func sliceSize(rv reflect.Value) types.Gas {
	if c, ok := constSizeOfType(rv.Type().Elem()); ok {
		return c.Mul(uint64(rv.Len()))
	}
	total := types.ZeroGas
	for i := 0; i < rv.Len(); i++ {
		total = total.Add(SizeOf(rv.Index(i).Interface()))
	}
	return total
}

func mapSize(rv reflect.Value) types.Gas {
	n := uint64(rv.Len())
	members := types.ZeroGas
	keyConst, keyIsConst := constSizeOfType(rv.Type().Key())
	valConst, valIsConst := constSizeOfType(rv.Type().Elem())
	switch {
	case keyIsConst && valIsConst:
		members = keyConst.Add(valConst).Mul(n)
	default:
		// saturating addition is commutative, so map order does not matter
		iter := rv.MapRange()
		for iter.Next() {
			ks := keyConst
			if !keyIsConst {
				ks = SizeOf(iter.Key().Interface())
			}
			vs := valConst
			if !valIsConst {
				vs = SizeOf(iter.Value().Interface())
			}
			members = members.Add(ks).Add(vs)
		}
	}
	return members.Add(mapOverhead).Add(mapEntryOverhead.Mul(n))
}

var (
	gasSizerType      = reflect.TypeOf((*GasSizer)(nil)).Elem()
	constGasSizerType = reflect.TypeOf((*ConstGasSizer)(nil)).Elem()
)

// constSizeOfType returns the type-level constant of t, if it declares one.
func constSizeOfType(t reflect.Type) (types.Gas, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return boolSize, true
	case reflect.Uint8, reflect.Int8:
		return types.NewGas(1), true
	case reflect.Uint16, reflect.Int16:
		return types.NewGas(2), true
	case reflect.Uint32, reflect.Int32:
		return types.NewGas(4), true
	case reflect.Uint64, reflect.Int64, reflect.Uint, reflect.Int:
		return types.NewGas(8), true
	}
	if t.Kind() != reflect.Interface && t.Kind() != reflect.Pointer && t.Implements(constGasSizerType) {
		return reflect.Zero(t).Interface().(ConstGasSizer).ConstGasSizeOf(), true
	}
	return types.ZeroGas, false
}

// ConstSizeOf returns the constant gas size of T if T declares one.
func ConstSizeOf[T any]() (types.Gas, bool) {
	return constSizeOfType(reflect.TypeFor[T]())
}

// CheckSizer verifies that T implements exactly one of the size-of forms.
// Run it from the tests of every package that defines a sizer.
func CheckSizer[T any]() error {
	t := reflect.TypeFor[T]()
	instance := t.Implements(gasSizerType)
	constant := t.Implements(constGasSizerType)
	switch {
	case instance && constant:
		return types.MalformedCostModelError{Type: t.String(), Reason: "implements both GasSizeOf and ConstGasSizeOf"}
	case !instance && !constant:
		return types.MalformedCostModelError{Type: t.String(), Reason: "implements neither GasSizeOf nor ConstGasSizeOf"}
	}
	return nil
}
