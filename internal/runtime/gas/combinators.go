package gas

import (
	"github.com/indexvm/wasmgas/types"
)

// Combinator folds the gas sizes of several arguments into the single size
// a GasOp multiplies with. Implementations must be pure and saturating.
type Combinator interface {
	Combine(sizes []types.Gas) types.Gas
}

// Combine measures every argument with SizeOf and folds the sizes with c.
func Combine(c Combinator, args ...any) types.Gas {
	sizes := make([]types.Gas, len(args))
	for i, arg := range args {
		sizes[i] = SizeOf(arg)
	}
	return c.Combine(sizes)
}

// Size is the size of exactly one argument.
type Size struct{}

func (Size) Combine(sizes []types.Gas) types.Gas {
	if len(sizes) != 1 {
		panic(types.MalformedCostModelError{Type: "gas.Size", Reason: "expects exactly one argument"})
	}
	return sizes[0]
}

// Linear is the sum of all sizes. Use it for operations that touch each input once,
// like concatenation or storing an entity together with its key.
type Linear struct{}

func (Linear) Combine(sizes []types.Gas) types.Gas {
	return types.SumGas(sizes...)
}

// Mul is the product of all sizes, the complexity of schoolbook multiplication.
type Mul struct{}

func (Mul) Combine(sizes []types.Gas) types.Gas {
	if len(sizes) == 0 {
		return types.ZeroGas
	}
	product := sizes[0]
	for _, s := range sizes[1:] {
		product = product.MulGas(s)
	}
	return product
}

// Exponential is a^b for exactly two arguments (base, exponent).
type Exponential struct{}

func (Exponential) Combine(sizes []types.Gas) types.Gas {
	if len(sizes) != 2 {
		panic(types.MalformedCostModelError{Type: "gas.Exponential", Reason: "expects exactly two arguments"})
	}
	return sizes[0].Pow(sizes[1].Uint64())
}

// Min is the smallest size, or zero without arguments.
type Min struct{}

func (Min) Combine(sizes []types.Gas) types.Gas {
	if len(sizes) == 0 {
		return types.ZeroGas
	}
	m := sizes[0]
	for _, s := range sizes[1:] {
		m = types.MinGas(m, s)
	}
	return m
}

// Max is the largest size, or zero without arguments.
type Max struct{}

func (Max) Combine(sizes []types.Gas) types.Gas {
	m := types.ZeroGas
	for _, s := range sizes {
		m = types.MaxOf(m, s)
	}
	return m
}

// contextual feeds the size of shared execution context to the wrapped combinator
// as if it were the first argument.
type contextual struct {
	inner Combinator
	size  types.Gas
}

// WithContext returns a combinator that treats ctx as an extra leading argument of c.
// ctx is measured once, when WithContext is called. A typical ctx is the schema of the
// entity being written, whose size depends on its field count.
func WithContext(c Combinator, ctx any) Combinator {
	return contextual{inner: c, size: SizeOf(ctx)}
}

func (c contextual) Combine(sizes []types.Gas) types.Gas {
	all := make([]types.Gas, 0, len(sizes)+1)
	all = append(all, c.size)
	all = append(all, sizes...)
	return c.inner.Combine(all)
}
