package types

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saturated computes min(x, MaxUint64) with arbitrary precision.
func saturated(x *big.Int) uint64 {
	max := new(big.Int).SetUint64(math.MaxUint64)
	if x.Cmp(max) > 0 {
		return math.MaxUint64
	}
	return x.Uint64()
}

func TestGasAddSaturates(t *testing.T) {
	values := []uint64{0, 1, 2, 1000, math.MaxUint32, math.MaxUint64 / 2, math.MaxUint64/2 + 1, math.MaxUint64 - 1, math.MaxUint64}
	for _, a := range values {
		for _, b := range values {
			want := saturated(new(big.Int).Add(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b)))
			assert.Equal(t, want, NewGas(a).Add(NewGas(b)).Uint64(), "%d + %d", a, b)
		}
	}
}

func TestGasMulSaturates(t *testing.T) {
	values := []uint64{0, 1, 3, 1000, math.MaxUint32, math.MaxUint32 + 1, math.MaxUint64 / 3, math.MaxUint64}
	for _, a := range values {
		for _, b := range values {
			want := saturated(new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b)))
			assert.Equal(t, want, NewGas(a).Mul(b).Uint64(), "%d * %d", a, b)
			assert.Equal(t, want, NewGas(a).MulGas(NewGas(b)).Uint64(), "%d * %d", a, b)
		}
	}
}

func TestGasPow(t *testing.T) {
	specs := map[string]struct {
		base, exp uint64
		want      uint64
	}{
		"zero to the zero": {0, 0, 1},
		"zero":             {0, 5, 0},
		"one":              {1, math.MaxUint64, 1},
		"small":            {3, 4, 81},
		"two to the 63":    {2, 63, 1 << 63},
		"two to the 64":    {2, 64, math.MaxUint64},
		"huge":             {1000, 1000, math.MaxUint64},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, spec.want, NewGas(spec.base).Pow(spec.exp).Uint64())
		})
	}
}

func TestGasOrdering(t *testing.T) {
	a, b := NewGas(10), NewGas(20)
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(NewGas(10)))
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, b.AtLeast(a))
	assert.True(t, a.AtLeast(a))
	assert.Equal(t, a, MinGas(a, b))
	assert.Equal(t, b, MaxOf(a, b))
	assert.True(t, ZeroGas.IsZero())
	assert.True(t, ZeroGas.Less(MaxGas))
}

func TestGasRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 42, 1 << 40, math.MaxUint64 - 1, math.MaxUint64} {
		require.Equal(t, v, NewGas(v).Uint64())
	}
}

func TestSumGas(t *testing.T) {
	assert.Equal(t, ZeroGas, SumGas())
	assert.Equal(t, NewGas(6), SumGas(NewGas(1), NewGas(2), NewGas(3)))
	assert.Equal(t, MaxGas, SumGas(NewGas(1), MaxGas, NewGas(3)))
}

func TestGasJSON(t *testing.T) {
	bz, err := json.Marshal(NewGas(math.MaxUint64))
	require.NoError(t, err)
	require.Equal(t, `"18446744073709551615"`, string(bz))

	var g Gas
	require.NoError(t, json.Unmarshal([]byte(`"123"`), &g))
	require.Equal(t, NewGas(123), g)

	err = json.Unmarshal([]byte(`123`), &g)
	require.EqualError(t, err, "cannot unmarshal 123 into Gas, expected string-encoded integer")
	err = json.Unmarshal([]byte(`"18446744073709551616"`), &g)
	require.Error(t, err)
}

func TestGasReportJSON(t *testing.T) {
	report := GasReport{Limit: NewGas(1000), Used: NewGas(1040), StaticMemory: NewGas(7)}
	bz, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Equal(t, `{"limit":"1000","used":"1040","remaining":"0","static_memory":"7"}`, string(bz))
}
