// Package types provides core types used throughout the wasmgas package.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"math/bits"
	"strconv"
)

// Gas represents the amount of computational resources consumed by a handler.
//
// Gas is deliberately opaque: all arithmetic goes through the methods below, which
// saturate at MaxGas instead of wrapping, so every node computes the same totals.
type Gas struct {
	v uint64
}

var (
	// ZeroGas is the starting value of every counter.
	ZeroGas = Gas{}
	// MaxGas is the saturation point of all gas arithmetic.
	MaxGas = Gas{math.MaxUint64}
)

// NewGas converts an unsigned integer into Gas.
func NewGas(v uint64) Gas {
	return Gas{v}
}

// Uint64 returns the raw value.
func (g Gas) Uint64() uint64 {
	return g.v
}

// IsZero reports whether g equals ZeroGas.
func (g Gas) IsZero() bool {
	return g.v == 0
}

// Add returns g + o, clamped to MaxGas.
func (g Gas) Add(o Gas) Gas {
	sum, carry := bits.Add64(g.v, o.v, 0)
	if carry != 0 {
		return MaxGas
	}
	return Gas{sum}
}

// Mul returns g * n, clamped to MaxGas.
func (g Gas) Mul(n uint64) Gas {
	hi, lo := bits.Mul64(g.v, n)
	if hi != 0 {
		return MaxGas
	}
	return Gas{lo}
}

// MulGas returns g * o, clamped to MaxGas.
func (g Gas) MulGas(o Gas) Gas {
	return g.Mul(o.v)
}

// Pow returns g^exp, clamped to MaxGas. 0^0 is 1.
func (g Gas) Pow(exp uint64) Gas {
	result := Gas{1}
	base := g
	for exp > 0 {
		if exp&1 == 1 {
			result = result.MulGas(base)
		}
		exp >>= 1
		if exp > 0 {
			base = base.MulGas(base)
		}
	}
	return result
}

// Cmp compares g and o and returns -1, 0 or +1.
func (g Gas) Cmp(o Gas) int {
	switch {
	case g.v < o.v:
		return -1
	case g.v > o.v:
		return 1
	default:
		return 0
	}
}

// Less reports whether g < o.
func (g Gas) Less(o Gas) bool {
	return g.v < o.v
}

// AtLeast reports whether g >= o.
func (g Gas) AtLeast(o Gas) bool {
	return g.v >= o.v
}

// MinGas returns the smaller of a and b.
func MinGas(a, b Gas) Gas {
	if a.v < b.v {
		return a
	}
	return b
}

// MaxOf returns the larger of a and b.
func MaxOf(a, b Gas) Gas {
	if a.v > b.v {
		return a
	}
	return b
}

// SumGas adds all values, saturating at MaxGas.
func SumGas(values ...Gas) Gas {
	total := ZeroGas
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// GasSizeOf lets an amount reported by instrumented code be charged through a
// cost formula like any other argument.
func (g Gas) GasSizeOf() Gas {
	return g
}

func (g Gas) String() string {
	return strconv.FormatUint(g.v, 10)
}

// MarshalJSON encodes gas as a decimal string so that values above 2^53 survive
// JavaScript clients.
func (g Gas) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(g.v, 10))
}

func (g *Gas) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cannot unmarshal %s into Gas, expected string-encoded integer", data)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("cannot unmarshal %s into Gas, failed to parse integer", data)
	}
	g.v = v
	return nil
}

// GasMeter is a read-only view of a gas counter.
type GasMeter interface {
	GasConsumed() Gas
}

// GasReport summarises the gas accounting of one handler invocation.
type GasReport struct {
	Limit     Gas `json:"limit"`
	Used      Gas `json:"used"`
	Remaining Gas `json:"remaining"`
	// StaticMemory is the load-time memory charge of the module. It is reported
	// next to, never inside, Used.
	StaticMemory Gas `json:"static_memory"`
}
