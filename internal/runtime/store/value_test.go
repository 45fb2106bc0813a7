package store

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/types"
)

func TestSizers(t *testing.T) {
	require.NoError(t, gas.CheckSizer[Value]())
	require.NoError(t, gas.CheckSizer[Entity]())
	require.NoError(t, gas.CheckSizer[EntityKey]())
}

func mustDecimal(t *testing.T, s string) Value {
	t.Helper()
	v, err := BigDecimalValue(s)
	require.NoError(t, err)
	return v
}

func TestValueGasSize(t *testing.T) {
	specs := map[string]struct {
		value Value
		exp   uint64
	}{
		"null":        {NullValue(), 5},
		"string":      {StringValue("hello"), 9},
		"int":         {IntValue(-7), 8},
		"big int":     {BigIntValue(big.NewInt(1 << 20)), 4 + 3},
		"big int nil": {BigIntValue(nil), 5},
		"decimal":     {mustDecimal(t, "-12.50"), 4 + 6},
		"bytes":       {BytesValue(make([]byte, 32)), 36},
		"bool":        {BoolValue(true), 5},
		"empty list":  {ListValue(), 4},
		"list":        {ListValue(IntValue(1), StringValue("ab")), 4 + 8 + 6},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, types.NewGas(spec.exp), gas.SizeOf(spec.value))
		})
	}
}

func TestEntityGasSize(t *testing.T) {
	e := Entity{
		"id":    StringValue("0xab"),
		"owner": BytesValue(make([]byte, 20)),
	}
	// names 2+5, values 8+24, map overhead 32, two entries 16
	assert.Equal(t, types.NewGas(87), gas.SizeOf(e))
	assert.Equal(t, types.NewGas(32), gas.SizeOf(Entity{}))

	key := EntityKey{EntityType: "Token", EntityID: "0xab"}
	assert.Equal(t, types.NewGas(9), gas.SizeOf(key))
	assert.Equal(t, "Token[0xab]", key.String())
}

func TestBigDecimalRejectsGarbage(t *testing.T) {
	_, err := BigDecimalValue("twelve")
	require.EqualError(t, err, `invalid big decimal "twelve"`)
}

func TestValueAccessors(t *testing.T) {
	s, ok := StringValue("x").AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = IntValue(1).AsString()
	assert.False(t, ok)

	orig := big.NewInt(99)
	v := BigIntValue(orig)
	orig.SetInt64(1)
	got, ok := v.AsBigInt()
	require.True(t, ok)
	assert.Equal(t, int64(99), got.Int64())

	assert.Equal(t, KindList, ListValue().Kind())
	assert.Equal(t, "BigDecimal", KindBigDecimal.String())
	assert.Equal(t, "ValueKind(42)", ValueKind(42).String())
}

func TestEntityCodec(t *testing.T) {
	e := Entity{
		"name":     StringValue("pool"),
		"decimals": IntValue(18),
		"supply":   BigIntValue(new(big.Int).Lsh(big.NewInt(1), 200)),
		"debt":     BigIntValue(big.NewInt(-5)),
		"price":    mustDecimal(t, "1.25"),
		"hash":     BytesValue([]byte{0xde, 0xad}),
		"active":   BoolValue(true),
		"parent":   NullValue(),
		"tags":     ListValue(StringValue("a"), ListValue(IntValue(1))),
	}
	bz, err := EncodeEntity(e)
	require.NoError(t, err)

	again, err := EncodeEntity(e)
	require.NoError(t, err)
	assert.Equal(t, bz, again)

	decoded, err := DecodeEntity(bz)
	require.NoError(t, err)
	assert.True(t, e.Equal(decoded))
	assert.Equal(t, gas.SizeOf(e), gas.SizeOf(decoded))

	_, err = DecodeEntity([]byte{0xc1})
	require.Error(t, err)
}
