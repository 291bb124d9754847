package disasm

import (
	"errors"
	"fmt"

	"vnpatch/internal/binfmt"
	"vnpatch/internal/script"
)

var (
	ErrUnknownOpcode  = errors.New("disasm: unknown opcode")
	ErrStepLimit      = errors.New("disasm: step limit exceeded")
	ErrStackUnderflow = errors.New("disasm: reference stack underflow")
)

// Handler decodes the operands of one opcode and applies its effect on the
// reference stack. Handlers read their own operands through the Machine.
type Handler func(m *Machine) error

// Spec describes one bytecode format to the decode loop.
type Spec struct {
	Name        string
	OpcodeSize  int // bytes per opcode id: 1, 2 or 4
	OperandSize int // bytes per operand: 1, 2 or 4

	Templates Table
	Handlers  map[uint32]Handler

	// Terminators are return/pop-class opcodes that may end the script.
	Terminators map[uint32]bool
	// Boundaries start a new statement; stack residue is drained as Internal.
	Boundaries map[uint32]bool

	Mnemonics map[uint32]string
}

// Mnemonic returns the display name of op.
func (s *Spec) Mnemonic(op uint32) string {
	if name, ok := s.Mnemonics[op]; ok {
		return name
	}
	return fmt.Sprintf("op_%04x", op)
}

// StackEntry is a pushed string address awaiting classification.
type StackEntry struct {
	Offset  int // absolute position of the address field
	Address int // raw operand value
}

// Ref is a classified string reference.
type Ref struct {
	Offset  int
	Address int
	Kind    script.Kind
}

// Resolver turns a raw string address into text.
type Resolver func(address int) (string, error)

// Result is the outcome of one decode pass.
type Result struct {
	Refs       []Ref
	CodeOffset int
	CodeEnd    int // absolute position just past the terminating opcode
	Watermark  int
	Steps      int
	Insts      []Inst
	Diags      []binfmt.Diag
}

// Machine runs the decode loop for one script. It owns its reference stack
// and is not reused across scripts.
type Machine struct {
	spec       *Spec
	s          *binfmt.Stream
	codeOffset int
	resolve    Resolver
	opts       binfmt.Options

	stack     []StackEntry
	watermark int
	refs      []Ref
	insts     []Inst
	diags     binfmt.Diags
}

// NewMachine prepares a decode of data starting at codeOffset.
func NewMachine(spec *Spec, data []byte, codeOffset int, resolve Resolver, opts binfmt.Options) *Machine {
	return &Machine{
		spec:       spec,
		s:          binfmt.NewStreamAt(data, codeOffset),
		codeOffset: codeOffset,
		resolve:    resolve,
		opts:       opts,
	}
}

// Run decodes until the watermark rule ends the script.
//
// No length field exists, so the end is inferred: after a terminator opcode,
// if every code address seen so far lies behind the cursor, nothing can jump
// further and the remaining bytes belong to the string region.
func (m *Machine) Run() (*Result, error) {
	m.s.SetPosition(m.codeOffset)
	maxSteps := m.opts.EffectiveMaxSteps()
	steps := 0
	for {
		if steps >= maxSteps {
			return nil, fmt.Errorf("%w: %d steps at 0x%x", ErrStepLimit, steps, m.s.Position())
		}
		steps++

		start := m.s.Position()
		op, err := m.s.ReadUint(m.spec.OpcodeSize)
		if err != nil {
			return nil, fmt.Errorf("disasm: opcode at 0x%x: %w", start, err)
		}
		if m.opts.Trace {
			m.insts = append(m.insts, Inst{Offset: start, Opcode: op, Mnemonic: m.spec.Mnemonic(op)})
		}

		if h, ok := m.spec.Handlers[op]; ok {
			err = h(m)
		} else if tpl, ok := m.spec.Templates[op]; ok {
			err = m.ReadOperands(tpl)
		} else {
			return nil, fmt.Errorf("%w 0x%04x at 0x%x", ErrUnknownOpcode, op, start)
		}
		if err != nil {
			return nil, fmt.Errorf("disasm: opcode 0x%04x at 0x%x: %w", op, start, err)
		}
		if m.opts.Trace {
			m.insts[len(m.insts)-1].Watermark = m.watermark
		}

		if m.spec.Terminators[op] && m.watermark < m.s.Position()-m.codeOffset {
			break
		}
		if m.spec.Boundaries[op] {
			m.DrainInternal()
		}
	}
	if n := len(m.stack); n > 0 {
		m.diags.Addf(uint64(m.s.Position()), binfmt.DiagResidue, "%d string address(es) left on stack at end of script", n)
	}
	m.DrainInternal()

	return &Result{
		Refs:       m.refs,
		CodeOffset: m.codeOffset,
		CodeEnd:    m.s.Position(),
		Watermark:  m.watermark,
		Steps:      steps,
		Insts:      m.insts,
		Diags:      m.diags.Items(),
	}, nil
}

// ReadOperand reads one operand and applies the default effect of its kind.
// It returns the field offset and the value.
func (m *Machine) ReadOperand(kind OperandKind) (int, int, error) {
	off := m.s.Position()
	raw, err := m.s.ReadUint(m.spec.OperandSize)
	if err != nil {
		return 0, 0, err
	}
	v := int(raw)
	if m.spec.OperandSize == 4 {
		v = int(int32(raw))
	}

	switch kind {
	case OperandCode:
		m.ObserveCodeAddress(v)
	case OperandString:
		m.Push(StackEntry{Offset: off, Address: v})
	}
	if m.opts.Trace && len(m.insts) > 0 {
		last := &m.insts[len(m.insts)-1]
		last.Args = append(last.Args, Arg{Kind: kind, Offset: off, Value: v})
	}
	return off, v, nil
}

// ReadOperands consumes operands per tpl.
func (m *Machine) ReadOperands(tpl Template) error {
	for _, k := range tpl {
		if _, _, err := m.ReadOperand(k); err != nil {
			return err
		}
	}
	return nil
}

// ObserveCodeAddress raises the watermark. It never lowers it.
func (m *Machine) ObserveCodeAddress(v int) {
	if v > m.watermark {
		m.watermark = v
	}
}

// Watermark returns the largest code address seen so far.
func (m *Machine) Watermark() int { return m.watermark }

// Position returns the cursor position.
func (m *Machine) Position() int { return m.s.Position() }

// CodeOffset returns the start of the code region.
func (m *Machine) CodeOffset() int { return m.codeOffset }

// Push records a string address.
func (m *Machine) Push(e StackEntry) { m.stack = append(m.stack, e) }

// Pop removes the most recent string address.
func (m *Machine) Pop() (StackEntry, bool) {
	n := len(m.stack)
	if n == 0 {
		return StackEntry{}, false
	}
	e := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return e, true
}

// MustPop pops or fails with ErrStackUnderflow.
func (m *Machine) MustPop() (StackEntry, error) {
	e, ok := m.Pop()
	if !ok {
		return StackEntry{}, fmt.Errorf("%w at 0x%x", ErrStackUnderflow, m.s.Position())
	}
	return e, nil
}

// Depth returns the number of pending string addresses.
func (m *Machine) Depth() int { return len(m.stack) }

// DrainOrdered empties the stack and returns its entries in push order.
func (m *Machine) DrainOrdered() []StackEntry {
	out := make([]StackEntry, 0, len(m.stack))
	for {
		e, ok := m.Pop()
		if !ok {
			break
		}
		out = append([]StackEntry{e}, out...)
	}
	return out
}

// DrainInternal pops every pending entry and emits it as Internal.
func (m *Machine) DrainInternal() {
	for {
		e, ok := m.Pop()
		if !ok {
			return
		}
		m.Emit(e, script.Internal)
	}
}

// Emit classifies e.
func (m *Machine) Emit(e StackEntry, kind script.Kind) {
	m.refs = append(m.refs, Ref{Offset: e.Offset, Address: e.Address, Kind: kind})
}

// Resolve returns the text at a raw string address.
func (m *Machine) Resolve(address int) (string, error) {
	if m.resolve == nil {
		return "", errors.New("disasm: no string resolver")
	}
	return m.resolve(address)
}

// IsEmptyString reports whether address resolves to the empty string.
func (m *Machine) IsEmptyString(address int) (bool, error) {
	s, err := m.Resolve(address)
	if err != nil {
		return false, err
	}
	return s == "", nil
}

// Diag records a non-fatal decode issue at the cursor.
func (m *Machine) Diag(kind binfmt.DiagKind, format string, args ...any) {
	m.diags.Addf(uint64(m.s.Position()), kind, format, args...)
}
