package ethornell

import (
	"fmt"

	"vnpatch/internal/binfmt"
	"vnpatch/internal/disasm"
	"vnpatch/internal/textenc"
)

// Decoded is one decoded script.
type Decoded struct {
	Header *Header
	*disasm.Result
	resolve disasm.Resolver
}

// Resolve returns the text at a code-relative string address.
func (d *Decoded) Resolve(address int) (string, error) { return d.resolve(address) }

// Resolver returns the string resolver used during decoding.
func (d *Decoded) Resolver() disasm.Resolver { return d.resolve }

// Disassemble parses the header and runs the decode loop over data. String
// addresses are relative to the code offset; text is decoded through tunnel.
func Disassemble(data []byte, tunnel *textenc.Tunnel, opts binfmt.Options) (*Decoded, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	s := binfmt.NewStream(data)
	resolve := func(address int) (string, error) {
		raw, err := s.CStringAt(h.CodeOffset + address)
		if err != nil {
			return "", err
		}
		return tunnel.Decode(raw)
	}

	m := disasm.NewMachine(V1, data, h.CodeOffset, resolve, opts)
	res, err := m.Run()
	if err != nil {
		return nil, fmt.Errorf("ethornell: %w", err)
	}
	res.Diags = append(h.Diagnostics, res.Diags...)
	return &Decoded{Header: h, Result: res, resolve: resolve}, nil
}

// Calls lists user-function calls whose name was pushed as a string. It
// needs a traced decode.
func (d *Decoded) Calls() []disasm.Call {
	var out []disasm.Call
	last := -1
	for _, inst := range d.Insts {
		switch inst.Opcode {
		case opPushString:
			if len(inst.Args) == 1 {
				last = inst.Args[0].Value
			}
		case opCallUser:
			if last < 0 {
				continue
			}
			if name, err := d.resolve(last); err == nil {
				out = append(out, disasm.Call{Offset: inst.Offset, Callee: name})
			}
			last = -1
		}
	}
	return out
}
