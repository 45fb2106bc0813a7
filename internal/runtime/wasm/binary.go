package wasm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/types"
)

const (
	sectionMemory byte = 5
	sectionCode   byte = 10
)

var errTruncated = errors.New("unexpected end of module")

// layout is what the loader needs from a module binary beyond what wazero
// exposes on a CompiledModule.
type layout struct {
	// memories holds the initial pages of every memory the module defines,
	// exported or not.
	memories []uint32
	// instructionGas is the weight of every instruction of every function body.
	instructionGas types.Gas
}

func (l layout) initialPages() uint32 {
	var pages uint32
	for _, p := range l.memories {
		pages += p
	}
	return pages
}

// scanModule walks the sections of a module wazero has already compiled. It
// only decodes the memory and code sections.
func scanModule(code []byte, rules gas.Rules) (layout, error) {
	var l layout
	r := &reader{b: code, pos: 8} // magic and version
	if len(code) < r.pos {
		return l, errTruncated
	}
	for !r.done() {
		id, err := r.byte()
		if err != nil {
			return l, err
		}
		size, err := r.u32()
		if err != nil {
			return l, err
		}
		content, err := r.slice(int(size))
		if err != nil {
			return l, err
		}
		switch id {
		case sectionMemory:
			if l.memories, err = scanMemories(content); err != nil {
				return l, fmt.Errorf("memory section: %w", err)
			}
		case sectionCode:
			if l.instructionGas, err = scanCode(content, rules); err != nil {
				return l, fmt.Errorf("code section: %w", err)
			}
		}
	}
	return l, nil
}

func scanMemories(content []byte) ([]uint32, error) {
	r := &reader{b: content}
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	pages := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		flags, err := r.byte()
		if err != nil {
			return nil, err
		}
		initial, err := r.u32()
		if err != nil {
			return nil, err
		}
		if flags&1 == 1 {
			if _, err := r.u32(); err != nil {
				return nil, err
			}
		}
		pages = append(pages, initial)
	}
	return pages, nil
}

func scanCode(content []byte, rules gas.Rules) (types.Gas, error) {
	r := &reader{b: content}
	n, err := r.u32()
	if err != nil {
		return types.ZeroGas, err
	}
	total := types.ZeroGas
	for i := uint32(0); i < n; i++ {
		size, err := r.u32()
		if err != nil {
			return types.ZeroGas, err
		}
		body, err := r.slice(int(size))
		if err != nil {
			return types.ZeroGas, err
		}
		cost, err := scanBody(body, rules)
		if err != nil {
			return types.ZeroGas, fmt.Errorf("function %d: %w", i, err)
		}
		total = total.Add(cost)
	}
	return total, nil
}

func scanBody(body []byte, rules gas.Rules) (types.Gas, error) {
	r := &reader{b: body}
	groups, err := r.u32()
	if err != nil {
		return types.ZeroGas, err
	}
	for i := uint32(0); i < groups; i++ {
		if _, err := r.u32(); err != nil {
			return types.ZeroGas, err
		}
		if _, err := r.byte(); err != nil {
			return types.ZeroGas, err
		}
	}
	total := types.ZeroGas
	for !r.done() {
		ins, err := r.instruction()
		if err != nil {
			return types.ZeroGas, err
		}
		total = total.Add(types.NewGas(uint64(rules.InstructionCost(ins))))
	}
	return total, nil
}

type reader struct {
	b   []byte
	pos int
}

func (r *reader) done() bool {
	return r.pos >= len(r.b)
}

func (r *reader) byte() (byte, error) {
	if r.done() {
		return 0, errTruncated
	}
	b := r.b[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) slice(n int) ([]byte, error) {
	if n < 0 || n > len(r.b)-r.pos {
		return nil, errTruncated
	}
	s := r.b[r.pos : r.pos+n]
	r.pos += n
	return s, nil
}

// u32 reads an unsigned LEB128 value, which is the varint encoding of
// encoding/binary.
func (r *reader) u32() (uint32, error) {
	v, n := binary.Uvarint(r.b[r.pos:])
	if n <= 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("invalid integer at offset %d", r.pos)
	}
	r.pos += n
	return uint32(v), nil
}

// skipLEB skips a signed LEB128 value of up to 64 bits.
func (r *reader) skipLEB() error {
	for i := 0; i < 10; i++ {
		b, err := r.byte()
		if err != nil {
			return err
		}
		if b&0x80 == 0 {
			return nil
		}
	}
	return fmt.Errorf("integer too long at offset %d", r.pos)
}

func (r *reader) skipU32s(n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.u32(); err != nil {
			return err
		}
	}
	return nil
}

// instruction decodes one instruction and skips its immediates.
func (r *reader) instruction() (gas.Instruction, error) {
	op, err := r.byte()
	if err != nil {
		return gas.Instruction{}, err
	}
	ins := gas.Instruction{Op: gas.Opcode(op)}
	switch {
	case op <= 0x01, op == 0x05, op == 0x0b, op == 0x0f, op == 0x1a, op == 0x1b,
		op >= 0x45 && op <= 0xc4, op == 0xd1:
		// no immediates
	case op >= 0x02 && op <= 0x04: // block, loop, if
		err = r.skipLEB()
	case op == 0x0c, op == 0x0d, op == 0x10, op >= 0x20 && op <= 0x26,
		op == 0x3f, op == 0x40, op == 0xd0, op == 0xd2:
		err = r.skipU32s(1)
	case op == 0x0e: // br_table
		var n uint32
		if n, err = r.u32(); err == nil {
			ins.BrTableTargets = n
			err = r.skipU32s(int(n) + 1)
		}
	case op == 0x11: // call_indirect
		err = r.skipU32s(2)
	case op == 0x1c: // typed select
		var n uint32
		if n, err = r.u32(); err == nil {
			err = r.skipU32s(int(n))
		}
	case op >= 0x28 && op <= 0x3e: // memarg
		err = r.skipU32s(2)
	case op == 0x41, op == 0x42:
		err = r.skipLEB()
	case op == 0x43:
		_, err = r.slice(4)
	case op == 0x44:
		_, err = r.slice(8)
	case op == 0xfc:
		err = r.miscImmediates()
	default:
		err = fmt.Errorf("unsupported opcode 0x%02x at offset %d", op, r.pos-1)
	}
	return ins, err
}

// miscImmediates skips the immediates of a 0xfc prefixed instruction.
func (r *reader) miscImmediates() error {
	sub, err := r.u32()
	if err != nil {
		return err
	}
	switch {
	case sub <= 7: // saturating truncation
		return nil
	case sub == 8, sub == 10, sub == 12, sub == 14:
		return r.skipU32s(2)
	case sub <= 17:
		return r.skipU32s(1)
	default:
		return fmt.Errorf("unsupported opcode 0xfc %d", sub)
	}
}
