// Package wasmtest assembles small wasm modules for tests.
package wasmtest

import (
	"encoding/binary"
)

// ValType is a wasm value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

const (
	opEnd      = 0x0b
	opCall     = 0x10
	opDrop     = 0x1a
	opLocalGet = 0x20
	opI32Const = 0x41
	opI64Const = 0x42
)

type funcType struct {
	params  []ValType
	results []ValType
}

type importFunc struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type dataSegment struct {
	offset uint32
	data   []byte
}

// Module is a module under construction. Declare every import before the
// first function, since imported functions come first in the index space.
type Module struct {
	types    []funcType
	imports  []importFunc
	funcs    []function
	memPages *uint32
	exports  []export
	dataSegs []dataSegment
}

func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []ValType) uint32 {
	for i, t := range m.types {
		if string(valBytes(t.params)) == string(valBytes(params)) && string(valBytes(t.results)) == string(valBytes(results)) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// ImportFunc imports a function and returns its function index.
func (m *Module) ImportFunc(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must be declared before functions")
	}
	m.imports = append(m.imports, importFunc{module: module, name: name, typeIdx: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function without locals and returns its index. body must not
// include the final end opcode. An empty export name keeps it private.
func (m *Module) Func(exportName string, params, results []ValType, body ...[]byte) uint32 {
	var code []byte
	for _, b := range body {
		code = append(code, b...)
	}
	m.funcs = append(m.funcs, function{typeIdx: m.typeIndex(params, results), body: code})
	idx := uint32(len(m.imports) + len(m.funcs) - 1)
	if exportName != "" {
		m.exports = append(m.exports, export{name: exportName, kind: 0x00, idx: idx})
	}
	return idx
}

// Memory declares memory 0 with an initial size in pages and exports it as
// "memory".
func (m *Module) Memory(minPages uint32) *Module {
	m.PrivateMemory(minPages)
	m.exports = append(m.exports, export{name: "memory", kind: 0x02, idx: 0})
	return m
}

// PrivateMemory declares memory 0 without exporting it.
func (m *Module) PrivateMemory(minPages uint32) *Module {
	m.memPages = &minPages
	return m
}

// Data places b at offset in memory 0 when the module is instantiated.
func (m *Module) Data(offset uint32, b []byte) *Module {
	m.dataSegs = append(m.dataSegs, dataSegment{offset: offset, data: b})
	return m
}

// Bytes encodes the module in the binary format.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.types) > 0 {
		var items [][]byte
		for _, t := range m.types {
			item := []byte{0x60}
			item = append(item, vec(byteItems(valBytes(t.params)))...)
			item = append(item, vec(byteItems(valBytes(t.results)))...)
			items = append(items, item)
		}
		out = append(out, section(1, vec(items))...)
	}
	if len(m.imports) > 0 {
		var items [][]byte
		for _, imp := range m.imports {
			item := name(imp.module)
			item = append(item, name(imp.name)...)
			item = append(item, 0x00)
			item = append(item, ULEB(uint64(imp.typeIdx))...)
			items = append(items, item)
		}
		out = append(out, section(2, vec(items))...)
	}
	if len(m.funcs) > 0 {
		var items [][]byte
		for _, f := range m.funcs {
			items = append(items, ULEB(uint64(f.typeIdx)))
		}
		out = append(out, section(3, vec(items))...)
	}
	if m.memPages != nil {
		limits := append([]byte{0x00}, ULEB(uint64(*m.memPages))...)
		out = append(out, section(5, vec([][]byte{limits}))...)
	}
	if len(m.exports) > 0 {
		var items [][]byte
		for _, e := range m.exports {
			item := name(e.name)
			item = append(item, e.kind)
			item = append(item, ULEB(uint64(e.idx))...)
			items = append(items, item)
		}
		out = append(out, section(7, vec(items))...)
	}
	if len(m.funcs) > 0 {
		var items [][]byte
		for _, f := range m.funcs {
			body := []byte{0x00} // no locals
			body = append(body, f.body...)
			body = append(body, opEnd)
			items = append(items, append(ULEB(uint64(len(body))), body...))
		}
		out = append(out, section(10, vec(items))...)
	}
	if len(m.dataSegs) > 0 {
		var items [][]byte
		for _, d := range m.dataSegs {
			item := []byte{0x00, opI32Const}
			item = append(item, SLEB(int64(int32(d.offset)))...)
			item = append(item, opEnd)
			item = append(item, ULEB(uint64(len(d.data)))...)
			item = append(item, d.data...)
			items = append(items, item)
		}
		out = append(out, section(11, vec(items))...)
	}
	return out
}

// I32Const pushes v.
func I32Const(v int32) []byte {
	return append([]byte{opI32Const}, SLEB(int64(v))...)
}

// I64Const pushes v.
func I64Const(v int64) []byte {
	return append([]byte{opI64Const}, SLEB(v)...)
}

// Call calls the function at idx.
func Call(idx uint32) []byte {
	return append([]byte{opCall}, ULEB(uint64(idx))...)
}

// LocalGet pushes parameter or local i.
func LocalGet(i uint32) []byte {
	return append([]byte{opLocalGet}, ULEB(uint64(i))...)
}

func Drop() []byte {
	return []byte{opDrop}
}

// ULEB encodes v as unsigned LEB128.
func ULEB(v uint64) []byte {
	return binary.AppendUvarint(nil, v)
}

// SLEB encodes v as signed LEB128.
func SLEB(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func section(id byte, content []byte) []byte {
	out := append([]byte{id}, ULEB(uint64(len(content)))...)
	return append(out, content...)
}

func vec(items [][]byte) []byte {
	out := ULEB(uint64(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func name(s string) []byte {
	return append(ULEB(uint64(len(s))), s...)
}

func valBytes(vs []ValType) []byte {
	out := make([]byte, len(vs))
	for i, v := range vs {
		out[i] = byte(v)
	}
	return out
}

func byteItems(b []byte) [][]byte {
	items := make([][]byte, len(b))
	for i := range b {
		items[i] = b[i : i+1]
	}
	return items
}
