package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/internal/runtime/host"
	"github.com/indexvm/wasmgas/internal/runtime/store"
	"github.com/indexvm/wasmgas/types"
)

// Result describes a successful handler invocation.
type Result struct {
	Gas         types.GasReport
	DataSources []host.DataSourceTemplate
	// Changes is the number of entities written or removed.
	Changes int
}

// Invoke runs the exported handler function of a stored module against st.
//
// Every invocation gets a fresh gas counter. Entity writes are buffered and
// reach st only when the handler succeeds. When the handler fails
// deterministically, for example by exhausting its gas, the returned error is
// a *types.DeterministicHostError and must not be retried; the gas report is
// returned alongside it.
func (vm *VM) Invoke(ctx context.Context, checksum types.Checksum, handler string, st *store.MemStore) (Result, error) {
	counter := gas.NewCounterWithConfig(vm.config.Gas)
	batch := store.NewBatch(st)
	logger := vm.logger.With().Stringer("checksum", checksum).Str("handler", handler).Logger()
	env := host.NewEnvironment(counter, vm.costs, batch, logger)
	ctx = host.WithEnvironment(ctx, env)

	cached, m, err := vm.acquire(ctx, checksum)
	if err != nil {
		return Result{}, fmt.Errorf("instantiating %s: %w", checksum, err)
	}
	instance, err := vm.runtime.InstantiateModule(ctx, cached.compiled, wazero.NewModuleConfig().WithName("").WithStartFunctions())
	vm.release(cached)
	if err != nil {
		return Result{}, fmt.Errorf("instantiating %s: %w", checksum, err)
	}
	defer instance.Close(ctx)

	report := func() types.GasReport {
		r := counter.Report()
		r.StaticMemory = m.staticMemory
		return r
	}

	fn := instance.ExportedFunction(handler)
	if fn == nil {
		return Result{Gas: report()}, fmt.Errorf("module %s does not export handler %q", checksum, handler)
	}

	vm.invocations.Add(1)
	if _, callErr := fn.Call(ctx); callErr != nil {
		batch.Discard()
		err := classify(env, handler, callErr)
		outcome := outcomeError
		if types.IsDeterministic(err) {
			outcome = outcomeDeterministic
			vm.deterministicFailures.Add(1)
		}
		r := report()
		vm.metrics.observeInvocation(outcome, r.Used.Uint64())
		logger.Info().Err(err).Stringer("gas_used", r.Used).Str("outcome", outcome).Msg("handler failed")
		return Result{Gas: r}, err
	}

	changes := batch.Changes()
	batch.Commit()
	r := report()
	vm.metrics.observeInvocation(outcomeSuccess, r.Used.Uint64())
	logger.Debug().Stringer("gas_used", r.Used).Int("changes", changes).Msg("handler succeeded")
	return Result{Gas: r, DataSources: env.DataSources(), Changes: changes}, nil
}

// classify turns the error of a guest call into the error reported for the
// invocation. A deterministic host failure wins over whatever the runtime
// wrapped around it.
func classify(env *host.Environment, handler string, callErr error) error {
	var det *types.DeterministicHostError
	if errors.As(callErr, &det) {
		return det
	}
	if err := env.Err(); err != nil {
		return err
	}
	return fmt.Errorf("handler %s: %w", handler, callErr)
}
