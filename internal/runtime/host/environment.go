// Package host implements the functions a handler module imports from the
// runtime. Every export charges gas before it has any observable effect.
package host

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/internal/runtime/store"
	"github.com/indexvm/wasmgas/types"
)

// Store is the entity storage a handler writes to.
type Store interface {
	Get(key store.EntityKey) (store.Entity, bool, error)
	Set(key store.EntityKey, e store.Entity) error
	Remove(key store.EntityKey) bool
}

// DataSourceTemplate is a data source created by a handler at runtime.
type DataSourceTemplate struct {
	Name   string
	Params []string
}

// Environment holds all execution context of one handler invocation.
type Environment struct {
	counter gas.Counter
	costs   *gas.CostTable
	store   Store
	logger  zerolog.Logger

	mu          sync.Mutex
	dataSources []DataSourceTemplate
	err         error
}

// NewEnvironment creates the environment of one invocation. The counter must be
// fresh; it is shared with every frame of the invocation.
func NewEnvironment(counter gas.Counter, costs *gas.CostTable, st Store, logger zerolog.Logger) *Environment {
	return &Environment{
		counter: counter,
		costs:   costs,
		store:   st,
		logger:  logger,
	}
}

func (e *Environment) Counter() gas.Counter {
	return e.counter
}

// DataSources returns the data sources created so far.
func (e *Environment) DataSources() []DataSourceTemplate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]DataSourceTemplate(nil), e.dataSources...)
}

// Err returns the first deterministic failure of the invocation, if any.
func (e *Environment) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// fail records err if it is the first deterministic failure and returns it.
func (e *Environment) fail(err error) error {
	if err == nil || !types.IsDeterministic(err) {
		return err
	}
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
	return err
}

// charge prices op over args and consumes the result from the counter.
func (e *Environment) charge(op string, c gas.Combinator, args ...any) error {
	amount := e.costs.MustLookup(op).WithArgs(c, args...)
	if err := e.counter.ConsumeHostFn(amount); err != nil {
		e.logger.Debug().
			Str("export", op).
			Stringer("gas_used", e.counter.GasConsumed()).
			Msg("gas limit exceeded")
		return e.fail(err)
	}
	return nil
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const envKey contextKey = "env"

// WithEnvironment attaches env to ctx. Host functions registered with Register
// find their environment this way.
func WithEnvironment(ctx context.Context, env *Environment) context.Context {
	return context.WithValue(ctx, envKey, env)
}

// EnvironmentFromContext returns the environment attached with WithEnvironment.
func EnvironmentFromContext(ctx context.Context) (*Environment, bool) {
	env, ok := ctx.Value(envKey).(*Environment)
	return env, ok
}
