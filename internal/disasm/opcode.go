package disasm

import (
	"fmt"
	"sort"
)

// OperandKind says how the decoder treats one operand of an opcode.
type OperandKind byte

const (
	OperandInt    OperandKind = 'i' // plain literal, no semantic effect
	OperandCode   OperandKind = 'c' // code address, raises the watermark
	OperandString OperandKind = 'm' // string address, pushed on the reference stack
)

func (k OperandKind) String() string {
	switch k {
	case OperandInt:
		return "int"
	case OperandCode:
		return "code"
	case OperandString:
		return "string"
	}
	return fmt.Sprintf("operand(%q)", byte(k))
}

// Template is the ordered operand layout of one opcode.
type Template []OperandKind

// ParseTemplate parses a compact template such as "iic".
func ParseTemplate(s string) (Template, error) {
	t := make(Template, 0, len(s))
	for i := 0; i < len(s); i++ {
		k := OperandKind(s[i])
		switch k {
		case OperandInt, OperandCode, OperandString:
			t = append(t, k)
		default:
			return nil, fmt.Errorf("disasm: template %q: bad operand %q", s, s[i])
		}
	}
	return t, nil
}

func (t Template) String() string {
	b := make([]byte, len(t))
	for i, k := range t {
		b[i] = byte(k)
	}
	return string(b)
}

// Table maps opcode ids to operand templates. Tables are built once per
// format and never modified.
type Table map[uint32]Template

// MustParseTable builds a Table from compact templates and panics on a
// malformed entry; format tables are package-level literals.
func MustParseTable(m map[uint32]string) Table {
	t := make(Table, len(m))
	for op, s := range m {
		tpl, err := ParseTemplate(s)
		if err != nil {
			panic(fmt.Sprintf("opcode 0x%04x: %v", op, err))
		}
		t[op] = tpl
	}
	return t
}

// Opcodes returns the table's opcode ids in ascending order.
func (t Table) Opcodes() []uint32 {
	ops := make([]uint32, 0, len(t))
	for op := range t {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// OpSet builds a membership set of opcode ids.
func OpSet(ops ...uint32) map[uint32]bool {
	s := make(map[uint32]bool, len(ops))
	for _, op := range ops {
		s[op] = true
	}
	return s
}
