package gas

import (
	"sort"

	"github.com/indexvm/wasmgas/types"
)

// All gas costs live in this file so they can be compared easily.
// Once deployed, none of these values can change without a new version of the
// cost model: every indexing node must agree on them.

// GasPerSecond calibrates the unit: 10 gas is roughly 1ns of wasm execution.
const GasPerSecond uint64 = 10_000_000_000

const (
	// Pessimistic host bandwidth of 10 MB/s, which still allows 10 GB to pass through
	// host exports within one handler budget.
	defaultBytePerSecond uint64 = 10_000_000
	// Big math has multiplicative complexity and therefore large sizes, so it assumes
	// a faster 100 MB/s.
	bigMathBytePerSecond uint64 = 100_000_000

	maxGasPerHandler uint64 = 1000 * GasPerSecond
)

var (
	// MaxGasPerHandler is 1000 seconds worth of gas. The deterministic cutoff is meant to be
	// very high; operators can still apply tighter wall-clock limits outside the core.
	MaxGasPerHandler = types.NewGas(maxGasPerHandler)

	// HostExportGas is charged on every host call on top of the operation cost.
	// It must be non-zero.
	HostExportGas = types.NewGas(10_000)

	// DefaultGasPerByte is 1_000 with the current parameters.
	DefaultGasPerByte = types.NewGas(GasPerSecond / defaultBytePerSecond)
	BigMathGasPerByte = types.NewGas(GasPerSecond / bigMathBytePerSecond)

	// DefaultBaseCost must be non-zero.
	DefaultBaseCost = types.NewGas(100_000)

	DefaultGasOp = GasOp{BaseCost: DefaultBaseCost, SizeMult: DefaultGasPerByte}
	BigMathGasOp = GasOp{BaseCost: DefaultBaseCost, SizeMult: BigMathGasPerByte}

	// CreateDataSource allows up to 100_000 data sources per handler.
	CreateDataSource = types.NewGas(maxGasPerHandler / 100_000)

	// LogOp allows up to 100_000 log lines per handler.
	LogOp = GasOp{
		BaseCost: types.NewGas(maxGasPerHandler / 100_000),
		SizeMult: DefaultGasPerByte,
	}

	// StoreSet is one of the most expensive operations. The base cost allows 250k
	// entities to be saved; if the size roughly corresponds to bytes, the multiplier
	// allows 1 GB.
	StoreSet = GasOp{
		BaseCost: types.NewGas(maxGasPerHandler / 250_000),
		SizeMult: types.NewGas(maxGasPerHandler / 1_000_000_000),
	}

	// StoreGet is much cheaper than writing.
	StoreGet = GasOp{
		BaseCost: types.NewGas(maxGasPerHandler / 10_000_000),
		SizeMult: types.NewGas(maxGasPerHandler / 10_000_000_000),
	}

	StoreRemove = StoreSet

	// InstrumentationOp charges the amount reported by the injected gas callback
	// one to one.
	InstrumentationOp = GasOp{BaseCost: types.ZeroGas, SizeMult: types.NewGas(1)}
)

// Host export names. They double as the keys of the cost table.
const (
	OpGas              = "gas"
	OpStoreGet         = "store.get"
	OpStoreSet         = "store.set"
	OpStoreRemove      = "store.remove"
	OpLog              = "log.log"
	OpBigIntPlus       = "bigInt.plus"
	OpBigIntMinus      = "bigInt.minus"
	OpBigIntTimes      = "bigInt.times"
	OpBigIntDividedBy  = "bigInt.dividedBy"
	OpBigIntMod        = "bigInt.mod"
	OpBigIntPow        = "bigInt.pow"
	OpBytesToHex       = "typeConversion.bytesToHex"
	OpBytesToString    = "typeConversion.bytesToString"
	OpKeccak256        = "crypto.keccak256"
	OpJSONFromBytes    = "json.fromBytes"
	OpDataSourceCreate = "dataSource.create"
)

// GasOp is the cost formula of one host operation:
// BaseCost + SizeMult * size_of(arguments).
type GasOp struct {
	BaseCost types.Gas
	SizeMult types.Gas
}

// WithArgs combines the sizes of args with c and applies the formula.
func (op GasOp) WithArgs(c Combinator, args ...any) types.Gas {
	return op.BaseCost.Add(op.SizeMult.MulGas(Combine(c, args...)))
}

// WithSize applies the formula to an already computed size.
func (op GasOp) WithSize(size types.Gas) types.Gas {
	return op.BaseCost.Add(op.SizeMult.MulGas(size))
}

// CostTable maps host export names to their cost formulas. It is read-only after
// construction and safe for concurrent use.
type CostTable struct {
	ops map[string]GasOp
}

// NewCostTable copies ops into a new table.
func NewCostTable(ops map[string]GasOp) *CostTable {
	copied := make(map[string]GasOp, len(ops))
	for name, op := range ops {
		copied[name] = op
	}
	return &CostTable{ops: copied}
}

var defaultCostTable = NewCostTable(map[string]GasOp{
	OpGas:              InstrumentationOp,
	OpStoreGet:         StoreGet,
	OpStoreSet:         StoreSet,
	OpStoreRemove:      StoreRemove,
	OpLog:              LogOp,
	OpBigIntPlus:       BigMathGasOp,
	OpBigIntMinus:      BigMathGasOp,
	OpBigIntTimes:      BigMathGasOp,
	OpBigIntDividedBy:  BigMathGasOp,
	OpBigIntMod:        BigMathGasOp,
	OpBigIntPow:        BigMathGasOp,
	OpBytesToHex:       DefaultGasOp,
	OpBytesToString:    DefaultGasOp,
	OpKeccak256:        DefaultGasOp,
	OpJSONFromBytes:    DefaultGasOp,
	OpDataSourceCreate: {BaseCost: CreateDataSource, SizeMult: types.ZeroGas},
})

// DefaultCostTable returns the cost table every node must use.
func DefaultCostTable() *CostTable {
	return defaultCostTable
}

// Lookup returns the cost formula of the named host export.
func (t *CostTable) Lookup(name string) (GasOp, bool) {
	op, ok := t.ops[name]
	return op, ok
}

// MustLookup is Lookup for names known at compile time. A missing entry is a
// defect in the cost model and panics.
func (t *CostTable) MustLookup(name string) GasOp {
	op, ok := t.ops[name]
	if !ok {
		panic(types.MalformedCostModelError{Type: name, Reason: "no cost table entry"})
	}
	return op
}

// Names returns the sorted names of all priced host exports.
func (t *CostTable) Names() []string {
	names := make([]string, 0, len(t.ops))
	for name := range t.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultGasConfig returns the ceiling and call overhead of the default cost model.
func DefaultGasConfig() types.GasConfig {
	return types.GasConfig{
		MaxGasPerHandler: MaxGasPerHandler,
		HostExportGas:    HostExportGas,
	}
}
