package gas

import (
	"math"

	"github.com/indexvm/wasmgas/types"
)

const (
	// PageSize is the size of one wasm linear memory page.
	PageSize uint64 = 64 * 1024
	gib      uint64 = 1024 * 1024 * 1024
	// MaxPages is 12 GiB worth of pages. With 32-bit wasm this is never reached unless
	// pages are also freed.
	MaxPages = 12 * gib / PageSize
)

// MemoryGrowRule prices growing linear memory. It is applied when a module is loaded,
// not through the runtime counter.
type MemoryGrowRule struct {
	GasPerPage types.Gas
}

// DefaultMemoryGrowRule spreads the handler ceiling over MaxPages,
// 50_862_630 gas per page.
func DefaultMemoryGrowRule() MemoryGrowRule {
	return MemoryGrowRule{GasPerPage: types.NewGas(maxGasPerHandler / MaxPages)}
}

// Cost returns the charge of growing memory by pages.
func (r MemoryGrowRule) Cost(pages uint32) types.Gas {
	return r.GasPerPage.Mul(uint64(pages))
}

// Opcode is a wasm instruction opcode.
type Opcode byte

// Opcodes with a dedicated weight.
const (
	OpcodeBr            Opcode = 0x0c
	OpcodeBrIf          Opcode = 0x0d
	OpcodeBrTable       Opcode = 0x0e
	OpcodeIf            Opcode = 0x04
	OpcodeCall          Opcode = 0x10
	OpcodeCallIndirect  Opcode = 0x11
	OpcodeSelect        Opcode = 0x1b
	OpcodeLocalGet      Opcode = 0x20
	OpcodeLocalSet      Opcode = 0x21
	OpcodeLocalTee      Opcode = 0x22
	OpcodeGlobalGet     Opcode = 0x23
	OpcodeGlobalSet     Opcode = 0x24
	OpcodeI64Load       Opcode = 0x29
	OpcodeI64Store      Opcode = 0x37
	OpcodeMemorySize    Opcode = 0x3f
	OpcodeMemoryGrow    Opcode = 0x40
	OpcodeI64Const      Opcode = 0x42
	OpcodeI64Eqz        Opcode = 0x50
	OpcodeI64Eq         Opcode = 0x51
	OpcodeI64Ne         Opcode = 0x52
	OpcodeI64LtS        Opcode = 0x53
	OpcodeI64LtU        Opcode = 0x54
	OpcodeI64GtS        Opcode = 0x55
	OpcodeI64GtU        Opcode = 0x56
	OpcodeI64LeS        Opcode = 0x57
	OpcodeI64LeU        Opcode = 0x58
	OpcodeI64GeS        Opcode = 0x59
	OpcodeI64GeU        Opcode = 0x5a
	OpcodeI64Clz        Opcode = 0x79
	OpcodeI64Ctz        Opcode = 0x7a
	OpcodeI64Popcnt     Opcode = 0x7b
	OpcodeI64Add        Opcode = 0x7c
	OpcodeI64Sub        Opcode = 0x7d
	OpcodeI64Mul        Opcode = 0x7e
	OpcodeI64DivS       Opcode = 0x7f
	OpcodeI64DivU       Opcode = 0x80
	OpcodeI64RemS       Opcode = 0x81
	OpcodeI64RemU       Opcode = 0x82
	OpcodeI64And        Opcode = 0x83
	OpcodeI64Or         Opcode = 0x84
	OpcodeI64Xor        Opcode = 0x85
	OpcodeI64Shl        Opcode = 0x86
	OpcodeI64ShrS       Opcode = 0x87
	OpcodeI64ShrU       Opcode = 0x88
	OpcodeI64Rotl       Opcode = 0x89
	OpcodeI64Rotr       Opcode = 0x8a
	OpcodeI32WrapI64    Opcode = 0xa7
	OpcodeI64ExtendI32S Opcode = 0xac
	OpcodeI64ExtendI32U Opcode = 0xad
)

const (
	defaultInstructionGas uint32 = 100
	brTableBaseGas        uint32 = 146
)

// Instruction is the part of a decoded instruction its weight depends on.
type Instruction struct {
	Op Opcode
	// BrTableTargets is the number of targets of a br_table.
	BrTableTargets uint32
}

// instructionWeights are benchmark results for a reference machine, in tenths of
// a nanosecond.
var instructionWeights = map[Opcode]uint32{
	OpcodeI64Const:      16,
	OpcodeI64Load:       1573,
	OpcodeI64Store:      2263,
	OpcodeSelect:        61,
	OpcodeIf:            79,
	OpcodeBr:            30,
	OpcodeBrIf:          63,
	OpcodeCall:          951,
	OpcodeCallIndirect:  1995,
	OpcodeLocalGet:      18,
	OpcodeLocalSet:      21,
	OpcodeLocalTee:      21,
	OpcodeGlobalGet:     66,
	OpcodeGlobalSet:     107,
	OpcodeMemorySize:    23,
	OpcodeMemoryGrow:    435_000,
	OpcodeI64Clz:        23,
	OpcodeI64Ctz:        23,
	OpcodeI64Popcnt:     29,
	OpcodeI64Eqz:        24,
	OpcodeI64ExtendI32S: 22,
	OpcodeI64ExtendI32U: 22,
	OpcodeI32WrapI64:    23,
	OpcodeI64Eq:         26,
	OpcodeI64Ne:         25,
	OpcodeI64LtS:        25,
	OpcodeI64LtU:        26,
	OpcodeI64GtS:        25,
	OpcodeI64GtU:        25,
	OpcodeI64LeS:        25,
	OpcodeI64LeU:        26,
	OpcodeI64GeS:        26,
	OpcodeI64GeU:        25,
	OpcodeI64Add:        25,
	OpcodeI64Sub:        26,
	OpcodeI64Mul:        25,
	OpcodeI64DivS:       82,
	OpcodeI64DivU:       72,
	OpcodeI64RemS:       81,
	OpcodeI64RemU:       73,
	OpcodeI64And:        25,
	OpcodeI64Or:         25,
	OpcodeI64Xor:        26,
	OpcodeI64Shl:        25,
	OpcodeI64ShrS:       26,
	OpcodeI64ShrU:       26,
	OpcodeI64Rotl:       25,
	OpcodeI64Rotr:       26,
}

// Rules prices the instructions of a module when it is stored and the growth of
// its linear memory.
type Rules struct {
	memory MemoryGrowRule
}

// DefaultRules returns the instruction weights and memory rule every node must use.
func DefaultRules() Rules {
	return Rules{memory: DefaultMemoryGrowRule()}
}

// InstructionCost returns the weight of one instruction.
func (Rules) InstructionCost(ins Instruction) uint32 {
	if ins.Op == OpcodeBrTable {
		if ins.BrTableTargets > math.MaxUint32-brTableBaseGas {
			return math.MaxUint32
		}
		return brTableBaseGas + ins.BrTableTargets
	}
	if w, ok := instructionWeights[ins.Op]; ok {
		return w
	}
	return defaultInstructionGas
}

// MemoryGrowCost returns the rule used to price memory growth.
func (r Rules) MemoryGrowCost() MemoryGrowRule {
	return r.memory
}
