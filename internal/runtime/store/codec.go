package store

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/shamaton/msgpack/v2"
)

// wireValue is the msgpack form of a Value.
type wireValue struct {
	Kind     uint8       `msgpack:"k"`
	Str      string      `msgpack:"s"`
	Int      int32       `msgpack:"i"`
	Big      []byte      `msgpack:"n"`
	Negative bool        `msgpack:"m"`
	Bytes    []byte      `msgpack:"b"`
	Bool     bool        `msgpack:"t"`
	List     []wireValue `msgpack:"l"`
}

type wireField struct {
	Name  string    `msgpack:"f"`
	Value wireValue `msgpack:"v"`
}

// EncodeEntity encodes e with msgpack. Attributes are written in name order so
// equal entities always encode to the same bytes.
func EncodeEntity(e Entity) ([]byte, error) {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]wireField, len(names))
	for i, name := range names {
		fields[i] = wireField{Name: name, Value: toWire(e[name])}
	}
	bz, err := msgpack.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding entity: %w", err)
	}
	return bz, nil
}

// DecodeEntity reverses EncodeEntity.
func DecodeEntity(bz []byte) (Entity, error) {
	var fields []wireField
	if err := msgpack.Unmarshal(bz, &fields); err != nil {
		return nil, fmt.Errorf("decoding entity: %w", err)
	}
	e := make(Entity, len(fields))
	for _, f := range fields {
		v, err := fromWire(f.Value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", f.Name, err)
		}
		e[f.Name] = v
	}
	return e, nil
}

func toWire(v Value) wireValue {
	w := wireValue{Kind: uint8(v.kind)}
	switch v.kind {
	case KindString, KindBigDecimal:
		w.Str = v.str
	case KindInt:
		w.Int = v.i
	case KindBigInt:
		w.Big = v.big.Bytes()
		w.Negative = v.big.Sign() < 0
	case KindBytes:
		w.Bytes = v.b
	case KindBool:
		w.Bool = v.flag
	case KindList:
		w.List = make([]wireValue, len(v.list))
		for i, item := range v.list {
			w.List[i] = toWire(item)
		}
	}
	return w
}

func fromWire(w wireValue) (Value, error) {
	switch ValueKind(w.Kind) {
	case KindNull:
		return NullValue(), nil
	case KindString:
		return StringValue(w.Str), nil
	case KindBigDecimal:
		return BigDecimalValue(w.Str)
	case KindInt:
		return IntValue(w.Int), nil
	case KindBigInt:
		x := new(big.Int).SetBytes(w.Big)
		if w.Negative {
			x.Neg(x)
		}
		return Value{kind: KindBigInt, big: x}, nil
	case KindBytes:
		return BytesValue(w.Bytes), nil
	case KindBool:
		return BoolValue(w.Bool), nil
	case KindList:
		items := make([]Value, len(w.List))
		for i, item := range w.List {
			v, err := fromWire(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	default:
		return Value{}, fmt.Errorf("unknown value kind %d", w.Kind)
	}
}
