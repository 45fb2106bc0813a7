// Package store holds the entities handlers read and write, together with the
// gas size of each of them.
package store

import (
	"fmt"
	"math/big"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/types"
)

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindBigInt
	KindBigDecimal
	KindBytes
	KindBool
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindBigInt:
		return "BigInt"
	case KindBigDecimal:
		return "BigDecimal"
	case KindBytes:
		return "Bytes"
	case KindBool:
		return "Bool"
	case KindList:
		return "List"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// valueTagSize is charged for every value on top of its payload.
var valueTagSize = types.NewGas(4)

// Value is one attribute of an entity.
type Value struct {
	kind ValueKind
	str  string // String, and BigDecimal in canonical decimal text
	i    int32
	big  *big.Int
	b    []byte
	flag bool
	list []Value
}

func NullValue() Value { return Value{} }

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func IntValue(i int32) Value { return Value{kind: KindInt, i: i} }

// BigIntValue copies x. A nil x is stored as zero.
func BigIntValue(x *big.Int) Value {
	v := new(big.Int)
	if x != nil {
		v.Set(x)
	}
	return Value{kind: KindBigInt, big: v}
}

// BigDecimalValue parses a decimal number such as "-12.5". The text is kept as given.
func BigDecimalValue(s string) (Value, error) {
	if _, ok := new(big.Rat).SetString(s); !ok {
		return Value{}, fmt.Errorf("invalid big decimal %q", s)
	}
	return Value{kind: KindBigDecimal, str: s}, nil
}

func BytesValue(b []byte) Value {
	return Value{kind: KindBytes, b: append([]byte(nil), b...)}
}

func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the text of a String or BigDecimal value.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString || v.kind == KindBigDecimal
}

func (v Value) AsInt() (int32, bool) { return v.i, v.kind == KindInt }

// AsBigInt returns a copy of the number.
func (v Value) AsBigInt() (*big.Int, bool) {
	if v.kind != KindBigInt {
		return nil, false
	}
	return new(big.Int).Set(v.big), true
}

func (v Value) AsBytes() ([]byte, bool) { return v.b, v.kind == KindBytes }

func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == KindBool }

func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindBigDecimal:
		return v.str == o.str
	case KindInt:
		return v.i == o.i
	case KindBigInt:
		return v.big.Cmp(o.big) == 0
	case KindBytes:
		return string(v.b) == string(o.b)
	case KindBool:
		return v.flag == o.flag
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// GasSizeOf is 4 plus the size of the payload. Null has a payload size of 1.
func (v Value) GasSizeOf() types.Gas {
	var inner types.Gas
	switch v.kind {
	case KindNull:
		inner = types.NewGas(1)
	case KindString, KindBigDecimal:
		inner = gas.SizeOf(v.str)
	case KindInt:
		inner = gas.SizeOf(v.i)
	case KindBigInt:
		inner = gas.SizeOf(v.big)
	case KindBytes:
		inner = gas.SizeOf(v.b)
	case KindBool:
		inner = gas.SizeOf(v.flag)
	case KindList:
		inner = gas.SizeOf(v.list)
	}
	return valueTagSize.Add(inner)
}

// Entity is a set of named attributes.
type Entity map[string]Value

// GasSizeOf follows the map rule: the attribute names and values plus a fixed
// overhead and a per attribute overhead.
func (e Entity) GasSizeOf() types.Gas {
	return gas.SizeOf(map[string]Value(e))
}

// Equal reports whether both entities hold the same attributes.
func (e Entity) Equal(o Entity) bool {
	if len(e) != len(o) {
		return false
	}
	for name, v := range e {
		ov, ok := o[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// EntityKey addresses one entity in the store.
type EntityKey struct {
	EntityType string
	EntityID   string
}

func (k EntityKey) GasSizeOf() types.Gas {
	return gas.SizeOf(k.EntityType).Add(gas.SizeOf(k.EntityID))
}

func (k EntityKey) String() string {
	return fmt.Sprintf("%s[%s]", k.EntityType, k.EntityID)
}

func (k EntityKey) less(o EntityKey) bool {
	if k.EntityType != o.EntityType {
		return k.EntityType < o.EntityType
	}
	return k.EntityID < o.EntityID
}
