package host

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strings"
	"unicode/utf8"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/internal/runtime/store"
	"github.com/indexvm/wasmgas/types"
)

// LogLevel is the severity a handler logs with.
type LogLevel uint32

const (
	LogCritical LogLevel = iota
	LogError
	LogWarning
	LogInfo
	LogDebug
)

// ErrDivisionByZero is returned by BigIntDividedBy and BigIntMod.
var ErrDivisionByZero = errors.New("division by zero")

// Gas is the callback injected by the instrumentation pass. The amount is the
// precomputed weight of the instructions executed since the last callback.
func (e *Environment) Gas(amount uint32) error {
	return e.charge(gas.OpGas, gas.Size{}, types.NewGas(uint64(amount)))
}

// StoreGet loads an entity. The charge covers the key and the loaded entity, so
// it is computed after the read and before the entity is handed to the guest.
func (e *Environment) StoreGet(key store.EntityKey) (store.Entity, bool, error) {
	entity, found, err := e.store.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("store.get %s: %w", key, err)
	}
	var loaded any
	if found {
		loaded = entity
	}
	if err := e.charge(gas.OpStoreGet, gas.Linear{}, key, loaded); err != nil {
		return nil, false, err
	}
	return entity, found, nil
}

func (e *Environment) StoreSet(key store.EntityKey, entity store.Entity) error {
	if err := e.charge(gas.OpStoreSet, gas.Linear{}, key, entity); err != nil {
		return err
	}
	if err := e.store.Set(key, entity); err != nil {
		return fmt.Errorf("store.set %s: %w", key, err)
	}
	return nil
}

func (e *Environment) StoreRemove(key store.EntityKey) error {
	if err := e.charge(gas.OpStoreRemove, gas.Size{}, key); err != nil {
		return err
	}
	e.store.Remove(key)
	return nil
}

// Log writes msg to the invocation logger. A critical message fails the handler.
func (e *Environment) Log(level LogLevel, msg string) error {
	if err := e.charge(gas.OpLog, gas.Size{}, msg); err != nil {
		return err
	}
	switch level {
	case LogCritical:
		e.logger.Error().Str("level", "critical").Msg(msg)
		return e.fail(types.NewDeterministicHostError(fmt.Errorf("critical error logged in handler: %s", msg)))
	case LogError:
		e.logger.Error().Msg(msg)
	case LogWarning:
		e.logger.Warn().Msg(msg)
	case LogInfo:
		e.logger.Info().Msg(msg)
	case LogDebug:
		e.logger.Debug().Msg(msg)
	default:
		return e.fail(types.NewDeterministicHostError(fmt.Errorf("invalid log level %d", level)))
	}
	return nil
}

// chargeOperands charges op for x and y. Operands that fit 256-bit words are
// returned as words and charged in that form, which costs the same.
func (e *Environment) chargeOperands(op string, c gas.Combinator, x, y *big.Int) (*uint256.Int, *uint256.Int, bool, error) {
	a, b, fits := toWords(x, y)
	var err error
	if fits {
		err = e.charge(op, c, a, b)
	} else {
		err = e.charge(op, c, x, y)
	}
	return a, b, fits, err
}

func (e *Environment) BigIntPlus(x, y *big.Int) (*big.Int, error) {
	a, b, fits, err := e.chargeOperands(gas.OpBigIntPlus, gas.Max{}, x, y)
	if err != nil {
		return nil, err
	}
	if fits {
		if z, overflow := new(uint256.Int).AddOverflow(a, b); !overflow {
			return z.ToBig(), nil
		}
	}
	return new(big.Int).Add(x, y), nil
}

func (e *Environment) BigIntMinus(x, y *big.Int) (*big.Int, error) {
	a, b, fits, err := e.chargeOperands(gas.OpBigIntMinus, gas.Max{}, x, y)
	if err != nil {
		return nil, err
	}
	if fits {
		if z, underflow := new(uint256.Int).SubOverflow(a, b); !underflow {
			return z.ToBig(), nil
		}
	}
	return new(big.Int).Sub(x, y), nil
}

func (e *Environment) BigIntTimes(x, y *big.Int) (*big.Int, error) {
	a, b, fits, err := e.chargeOperands(gas.OpBigIntTimes, gas.Mul{}, x, y)
	if err != nil {
		return nil, err
	}
	if fits {
		if z, overflow := new(uint256.Int).MulOverflow(a, b); !overflow {
			return z.ToBig(), nil
		}
	}
	return new(big.Int).Mul(x, y), nil
}

// BigIntDividedBy truncates towards zero.
func (e *Environment) BigIntDividedBy(x, y *big.Int) (*big.Int, error) {
	a, b, fits, err := e.chargeOperands(gas.OpBigIntDividedBy, gas.Mul{}, x, y)
	if err != nil {
		return nil, err
	}
	if y.Sign() == 0 {
		return nil, e.fail(types.NewDeterministicHostError(fmt.Errorf("bigInt.dividedBy: %w", ErrDivisionByZero)))
	}
	if fits {
		return new(uint256.Int).Div(a, b).ToBig(), nil
	}
	return new(big.Int).Quo(x, y), nil
}

// BigIntMod returns the remainder of truncated division; its sign follows x.
func (e *Environment) BigIntMod(x, y *big.Int) (*big.Int, error) {
	a, b, fits, err := e.chargeOperands(gas.OpBigIntMod, gas.Mul{}, x, y)
	if err != nil {
		return nil, err
	}
	if y.Sign() == 0 {
		return nil, e.fail(types.NewDeterministicHostError(fmt.Errorf("bigInt.mod: %w", ErrDivisionByZero)))
	}
	if fits {
		return new(uint256.Int).Mod(a, b).ToBig(), nil
	}
	return new(big.Int).Rem(x, y), nil
}

// BigIntPow is priced as size(x)^floor(log2(exp)), with a zero exponent
// counting as zero.
func (e *Environment) BigIntPow(x *big.Int, exp uint8) (*big.Int, error) {
	var log2 uint64
	if exp > 0 {
		log2 = uint64(bits.Len8(exp) - 1)
	}
	if err := e.charge(gas.OpBigIntPow, gas.Exponential{}, x, types.NewGas(log2)); err != nil {
		return nil, err
	}
	return new(big.Int).Exp(x, big.NewInt(int64(exp)), nil), nil
}

// BytesToHex returns the 0x prefixed lower case hex form of b.
func (e *Environment) BytesToHex(b []byte) (string, error) {
	if err := e.charge(gas.OpBytesToHex, gas.Size{}, b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

// BytesToString decodes b as UTF-8, replacing invalid sequences and dropping
// trailing NUL characters.
func (e *Environment) BytesToString(b []byte) (string, error) {
	if err := e.charge(gas.OpBytesToString, gas.Size{}, b); err != nil {
		return "", err
	}
	s := strings.ToValidUTF8(string(b), string(utf8.RuneError))
	return strings.TrimRight(s, "\x00"), nil
}

func (e *Environment) Keccak256(b []byte) ([]byte, error) {
	if err := e.charge(gas.OpKeccak256, gas.Size{}, b); err != nil {
		return nil, err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil), nil
}

// JSONFromBytes validates b as JSON and returns its compact form.
func (e *Environment) JSONFromBytes(b []byte) ([]byte, error) {
	if err := e.charge(gas.OpJSONFromBytes, gas.Size{}, b); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, e.fail(types.NewDeterministicHostError(fmt.Errorf("json.fromBytes: %w", err)))
	}
	return buf.Bytes(), nil
}

// DataSourceCreate records a new data source from the named template.
func (e *Environment) DataSourceCreate(name string, params []string) error {
	if err := e.charge(gas.OpDataSourceCreate, gas.Linear{}); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dataSources = append(e.dataSources, DataSourceTemplate{Name: name, Params: append([]string(nil), params...)})
	e.logger.Info().Str("template", name).Strs("params", params).Msg("data source created")
	return nil
}
