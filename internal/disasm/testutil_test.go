package disasm

import (
	"encoding/binary"
	"fmt"
)

const (
	opPushInt  = 0x00
	opPushCode = 0x01
	opPushStr  = 0x03
	opRet      = 0x1B
	opLine     = 0x7E
	opMessage  = 0x40
	opChoice   = 0x60
	opPair     = 0x07
)

func testSpec() *Spec {
	return &Spec{
		Name:        "test",
		OpcodeSize:  4,
		OperandSize: 4,
		Templates: MustParseTable(map[uint32]string{
			opPushInt:  "i",
			opPushCode: "c",
			opRet:      "",
			opLine:     "i",
			opPair:     "im",
		}),
		Handlers: map[uint32]Handler{
			opPushStr: PushStringAddress,
			opMessage: ShowMessage,
			opChoice:  ShowChoices,
		},
		Terminators: OpSet(opRet),
		Boundaries:  OpSet(opLine),
		Mnemonics:   map[uint32]string{opPushStr: "push_string", opRet: "ret"},
	}
}

// program assembles 32-bit words; the code starts at offset 0.
type program struct {
	words []uint32
}

func (p *program) emit(ws ...uint32) *program {
	p.words = append(p.words, ws...)
	return p
}

// pos returns the byte offset of the next word.
func (p *program) pos() int { return len(p.words) * 4 }

func (p *program) bytes(strs []byte) []byte {
	out := make([]byte, len(p.words)*4, len(p.words)*4+len(strs))
	for i, w := range p.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return append(out, strs...)
}

// stringsAt builds a resolver over NUL-terminated strings placed at base.
func stringsAt(data []byte) Resolver {
	return func(addr int) (string, error) {
		if addr < 0 || addr >= len(data) {
			return "", fmt.Errorf("address 0x%x out of range", addr)
		}
		end := addr
		for end < len(data) && data[end] != 0 {
			end++
		}
		return string(data[addr:end]), nil
	}
}
