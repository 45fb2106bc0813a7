package gas

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexvm/wasmgas/types"
)

// address is a fixed size value, like a 20 byte account address.
type address [20]byte

func (address) ConstGasSizeOf() types.Gas { return types.NewGas(20) }

type blob struct{ data []byte }

func (b blob) GasSizeOf() types.Gas { return types.NewGas(uint64(len(b.data))) }

type both struct{}

func (both) GasSizeOf() types.Gas      { return types.ZeroGas }
func (both) ConstGasSizeOf() types.Gas { return types.ZeroGas }

type neither struct{}

func TestConstSizeIgnoresContents(t *testing.T) {
	var zero address
	full := address{}
	for i := range full {
		full[i] = 0xff
	}
	assert.Equal(t, types.NewGas(20), SizeOf(zero))
	assert.Equal(t, types.NewGas(20), SizeOf(full))

	c, ok := ConstSizeOf[address]()
	require.True(t, ok)
	assert.Equal(t, types.NewGas(20), c)

	_, ok = ConstSizeOf[blob]()
	assert.False(t, ok)
}

func TestSizeOfBuiltins(t *testing.T) {
	specs := map[string]struct {
		value any
		exp   uint64
	}{
		"nil":           {nil, 1},
		"bool":          {true, 1},
		"uint8":         {uint8(200), 1},
		"int16":         {int16(-3), 2},
		"uint32":        {uint32(7), 4},
		"int64":         {int64(-1), 8},
		"string":        {"hello", 5},
		"empty string":  {"", 0},
		"bytes":         {[]byte{1, 2, 3}, 3},
		"big zero":      {big.NewInt(0), 1},
		"big 255":       {big.NewInt(255), 2},
		"big negative":  {big.NewInt(-256), 2},
		"uint256 zero":  {uint256.NewInt(0), 1},
		"uint256 65535": {uint256.NewInt(65535), 3},
		"uint256 1":     {uint256.NewInt(1), 1},
		"uint256 256":   {uint256.NewInt(256), 2},
		"nil pointer":   {(*uint64)(nil), 1},
		"pointer":       {ptr(uint32(1)), 5},
		"const slice":   {[]address{{}, {}, {}}, 60},
		"sizer slice":   {[]blob{{make([]byte, 4)}, {make([]byte, 6)}}, 10},
		"string slice":  {[]string{"ab", "cde"}, 5},
		"const map":     {map[uint32]bool{1: true, 2: false}, 32 + 2*(4+1) + 2*8},
		"string map":    {map[string]string{"a": "bb", "ccc": ""}, 32 + 6 + 16},
		"empty map":     {map[string]string{}, 32},
		"gas":           {types.NewGas(42), 42},
		"sizer":         {blob{make([]byte, 9)}, 9},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, types.NewGas(spec.exp), SizeOf(spec.value))
		})
	}
}

func TestSizeOfIsStable(t *testing.T) {
	m := map[string][]byte{}
	for i := 0; i < 100; i++ {
		m[string(rune('a'+i%26))+string(rune('A'+i/26))] = make([]byte, i)
	}
	first := SizeOf(m)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, SizeOf(m))
	}
}

func TestSizeOfUnsupportedPanics(t *testing.T) {
	assert.PanicsWithValue(t, types.MalformedCostModelError{
		Type:   "gas.neither",
		Reason: "GasSizeOf unimplemented",
	}, func() { SizeOf(neither{}) })
	assert.Panics(t, func() { SizeOf(3.5) })
}

func TestCheckSizer(t *testing.T) {
	require.NoError(t, CheckSizer[address]())
	require.NoError(t, CheckSizer[blob]())
	require.NoError(t, CheckSizer[types.Gas]())

	err := CheckSizer[both]()
	require.EqualError(t, err, "malformed cost model for gas.both: implements both GasSizeOf and ConstGasSizeOf")
	err = CheckSizer[neither]()
	require.EqualError(t, err, "malformed cost model for gas.neither: implements neither GasSizeOf nor ConstGasSizeOf")
}

func ptr[T any](v T) *T {
	return &v
}
