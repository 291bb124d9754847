// Package disasm decodes stack-VM script bytecode: operand templates, the
// string reference stack, the watermark end-of-code rule, listings and
// basic-block graphs.
package disasm

import (
	"fmt"
	"strings"
)

// Arg is one decoded operand.
type Arg struct {
	Kind   OperandKind
	Offset int // absolute position of the operand field
	Value  int
}

// Inst is a decoded opcode with its operands. Insts are only recorded when
// tracing is enabled.
type Inst struct {
	Offset    int
	Opcode    uint32
	Mnemonic  string
	Args      []Arg
	Watermark int // watermark after the instruction
}

// Targets returns the code-address operands of the instruction.
func (i Inst) Targets() []int {
	var out []int
	for _, a := range i.Args {
		if a.Kind == OperandCode {
			out = append(out, a.Value)
		}
	}
	return out
}

// Annotator returns a comment for an instruction, or "".
type Annotator func(inst Inst) string

// Format renders instructions as stable text output.
// Each line: <offset>  <mnemonic> <args>  ; <comment>
// Offsets are relative to codeOffset. Annotators are checked in order;
// the first non-empty result is used.
func Format(insts []Inst, codeOffset int, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "0x%06x  %-12s", inst.Offset-codeOffset, inst.Mnemonic)
		for j, a := range inst.Args {
			if j > 0 {
				b.WriteString(", ")
			} else {
				b.WriteByte(' ')
			}
			switch a.Kind {
			case OperandCode:
				fmt.Fprintf(&b, "code:0x%x", a.Value)
			case OperandString:
				fmt.Fprintf(&b, "str:0x%x", a.Value)
			default:
				fmt.Fprintf(&b, "%d", a.Value)
			}
		}
		for _, ann := range annotators {
			if s := ann(inst); s != "" {
				fmt.Fprintf(&b, "  ; %s", s)
				break
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// StringAnnotator quotes the text behind string operands.
func StringAnnotator(resolve Resolver) Annotator {
	return func(inst Inst) string {
		var parts []string
		for _, a := range inst.Args {
			if a.Kind != OperandString {
				continue
			}
			s, err := resolve(a.Value)
			if err != nil {
				parts = append(parts, "<bad string>")
				continue
			}
			parts = append(parts, fmt.Sprintf("%q", s))
		}
		return strings.Join(parts, " ")
	}
}

// RefAnnotator labels string operands with their classification.
func RefAnnotator(refs []Ref) Annotator {
	byOffset := make(map[int]Ref, len(refs))
	for _, r := range refs {
		byOffset[r.Offset] = r
	}
	return func(inst Inst) string {
		for _, a := range inst.Args {
			if r, ok := byOffset[a.Offset]; ok {
				return r.Kind.String()
			}
		}
		return ""
	}
}

// Chain combines annotators so every non-empty comment is shown.
func Chain(annotators ...Annotator) Annotator {
	return func(inst Inst) string {
		var parts []string
		for _, ann := range annotators {
			if s := ann(inst); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
}
