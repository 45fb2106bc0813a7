package gas

import (
	"errors"
	"sync/atomic"

	"github.com/indexvm/wasmgas/types"
)

// Counter is the gas counter of one handler invocation. Copies share the same
// underlying total, so a Counter can be handed to every host export of the
// invocation by value. It is safe for concurrent use.
//
// Counters are created with NewCounter or NewCounterWithConfig. The zero Counter
// has no ceiling to charge against: it reports zero everywhere and refuses every
// charge with ErrUninitializedCounter.
type Counter struct {
	state *counterState
}

type counterState struct {
	used     atomic.Uint64
	limit    types.Gas
	overhead types.Gas
}

var _ types.GasMeter = Counter{}

// ErrUninitializedCounter is returned when charging the zero Counter.
var ErrUninitializedCounter = errors.New("gas counter not initialized")

// NewCounter returns a counter at zero with the default ceiling and call overhead.
func NewCounter() Counter {
	return NewCounterWithConfig(DefaultGasConfig())
}

// NewCounterWithConfig returns a counter at zero using the ceiling and per call
// overhead of cfg.
func NewCounterWithConfig(cfg types.GasConfig) Counter {
	return Counter{state: &counterState{
		limit:    cfg.MaxGasPerHandler,
		overhead: cfg.HostExportGas,
	}}
}

// ConsumeHostFn charges amount plus the per call overhead.
//
// The addition and the ceiling check happen in one atomic step: when several
// goroutines race over the ceiling, exactly one total is observed per charge.
// The charge is recorded even when it fails, so once the ceiling is reached
// every further charge fails as well, zero amounts included. The returned error
// is a *types.DeterministicHostError wrapping types.OutOfGasError.
func (c Counter) ConsumeHostFn(amount types.Gas) error {
	if c.state == nil {
		return ErrUninitializedCounter
	}
	amount = amount.Add(c.state.overhead)
	for {
		old := c.state.used.Load()
		next := types.NewGas(old).Add(amount)
		if !c.state.used.CompareAndSwap(old, next.Uint64()) {
			continue
		}
		if next.AtLeast(c.state.limit) {
			return types.NewDeterministicHostError(types.OutOfGasError{Used: next, Limit: c.state.limit})
		}
		return nil
	}
}

// GasConsumed returns the current total, including charges that failed.
func (c Counter) GasConsumed() types.Gas {
	if c.state == nil {
		return types.ZeroGas
	}
	return types.NewGas(c.state.used.Load())
}

func (c Counter) Limit() types.Gas {
	if c.state == nil {
		return types.ZeroGas
	}
	return c.state.limit
}

// Remaining returns the gas left before the ceiling, or zero once it is reached.
func (c Counter) Remaining() types.Gas {
	if c.state == nil {
		return types.ZeroGas
	}
	used := c.GasConsumed()
	if used.AtLeast(c.state.limit) {
		return types.ZeroGas
	}
	return types.NewGas(c.state.limit.Uint64() - used.Uint64())
}

// Report snapshots the counter.
func (c Counter) Report() types.GasReport {
	if c.state == nil {
		return types.GasReport{}
	}
	used := c.GasConsumed()
	remaining := types.ZeroGas
	if used.Less(c.state.limit) {
		remaining = types.NewGas(c.state.limit.Uint64() - used.Uint64())
	}
	return types.GasReport{Limit: c.state.limit, Used: used, Remaining: remaining}
}
