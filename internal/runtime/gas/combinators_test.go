package gas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/indexvm/wasmgas/types"
)

func gasList(vs ...uint64) []types.Gas {
	out := make([]types.Gas, len(vs))
	for i, v := range vs {
		out[i] = types.NewGas(v)
	}
	return out
}

func TestCombinators(t *testing.T) {
	specs := map[string]struct {
		c     Combinator
		sizes []types.Gas
		exp   types.Gas
	}{
		"size":              {Size{}, gasList(7), types.NewGas(7)},
		"linear":            {Linear{}, gasList(1, 2, 3), types.NewGas(6)},
		"linear empty":      {Linear{}, nil, types.ZeroGas},
		"linear saturates":  {Linear{}, []types.Gas{types.MaxGas, types.NewGas(1)}, types.MaxGas},
		"mul":               {Mul{}, gasList(3, 4, 5), types.NewGas(60)},
		"mul empty":         {Mul{}, nil, types.ZeroGas},
		"mul saturates":     {Mul{}, []types.Gas{types.MaxGas, types.NewGas(2)}, types.MaxGas},
		"exponential":       {Exponential{}, gasList(3, 4), types.NewGas(81)},
		"exponential zero":  {Exponential{}, gasList(0, 0), types.NewGas(1)},
		"exponential large": {Exponential{}, gasList(2, 64), types.MaxGas},
		"min":               {Min{}, gasList(9, 2, 5), types.NewGas(2)},
		"min empty":         {Min{}, nil, types.ZeroGas},
		"max":               {Max{}, gasList(9, 2, 5), types.NewGas(9)},
		"max empty":         {Max{}, nil, types.ZeroGas},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, spec.exp, spec.c.Combine(spec.sizes))
		})
	}
}

func TestCombinatorArity(t *testing.T) {
	assert.Panics(t, func() { Size{}.Combine(gasList(1, 2)) })
	assert.Panics(t, func() { Size{}.Combine(nil) })
	assert.Panics(t, func() { Exponential{}.Combine(gasList(1)) })
}

func TestCombineMeasuresArguments(t *testing.T) {
	assert.Equal(t, types.NewGas(8), Combine(Linear{}, "abc", []byte{1, 2, 3, 4, 5}))
	assert.Equal(t, types.NewGas(15), Combine(Mul{}, "abc", []byte{1, 2, 3, 4, 5}))
}

func TestWithContext(t *testing.T) {
	schema := []string{"id", "owner", "amount"}
	c := WithContext(Linear{}, schema)
	assert.Equal(t, types.NewGas(13+4), Combine(c, "abcd"))

	sized := WithContext(Size{}, schema)
	assert.Panics(t, func() { Combine(sized, "x") })
	assert.Equal(t, types.NewGas(13), WithContext(Max{}, schema).Combine(gasList(1, 2)))
}
