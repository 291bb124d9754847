// Package ethornell decodes and patches BurikoCompiledScript (BGI) version 1
// scripts.
package ethornell

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"

	"vnpatch/internal/binfmt"
)

const magicPrefix = "BurikoCompiledScriptVer"

// Magic is the full signature of version 1 scripts, including the NUL.
var Magic = []byte(magicPrefix + "1.00\x00")

var ErrBadMagic = errors.New("ethornell: not a BurikoCompiledScript file")

var supported = version.MustConstraints(version.NewConstraint(">= 1.0, < 2.0"))

// Label is a named code address from the script header.
type Label struct {
	Name    string
	Address int
}

// Header is the parsed preamble of a script.
//
//	char magic[28]
//	i32  headerSize
//	i32  numReferencedScripts
//	sz   referencedScripts[numReferencedScripts]
//	i32  numLabels
//	{sz name; i32 address} labels[numLabels]
type Header struct {
	Version     *version.Version
	HeaderSize  int
	CodeOffset  int
	Referenced  []string
	Labels      []Label
	Diagnostics []binfmt.Diag
}

// ParseHeader validates the signature and locates the code region. The
// referenced-script and label tables are informational: a malformed table
// yields a diagnostic, not an error.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < len(Magic)+4 || !bytes.HasPrefix(data, []byte(magicPrefix)) {
		return nil, ErrBadMagic
	}
	raw := data[len(magicPrefix):len(Magic)]
	raw = bytes.TrimRight(raw, "\x00")
	v, err := version.NewVersion(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("ethornell: version %q: %w", raw, err)
	}
	if !supported.Check(v) {
		return nil, fmt.Errorf("ethornell: unsupported script version %s", v)
	}

	s := binfmt.NewStreamAt(data, len(Magic))
	size, err := s.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("ethornell: header size: %w", err)
	}
	h := &Header{
		Version:    v,
		HeaderSize: int(size),
		CodeOffset: len(Magic) + int(size),
	}
	if size < 4 || h.CodeOffset > len(data) {
		return nil, fmt.Errorf("ethornell: header size %d outside %d bytes", size, len(data))
	}

	var diags binfmt.Diags
	if err := h.readTables(data[:h.CodeOffset], s); err != nil {
		diags.Addf(uint64(s.Position()), binfmt.DiagTruncated, "header tables: %v", err)
	}
	h.Diagnostics = diags.Items()
	return h, nil
}

func (h *Header) readTables(header []byte, s *binfmt.Stream) error {
	hs := binfmt.NewStreamAt(header, s.Position())
	defer func() { s.SetPosition(hs.Position()) }()

	n, err := hs.ReadInt32()
	if err != nil {
		return err
	}
	for i := int32(0); i < n; i++ {
		name, err := hs.ReadCString()
		if err != nil {
			return err
		}
		h.Referenced = append(h.Referenced, string(name))
	}
	n, err = hs.ReadInt32()
	if err != nil {
		return err
	}
	for i := int32(0); i < n; i++ {
		name, err := hs.ReadCString()
		if err != nil {
			return err
		}
		addr, err := hs.ReadInt32()
		if err != nil {
			return err
		}
		h.Labels = append(h.Labels, Label{Name: string(name), Address: int(addr)})
	}
	return nil
}

// Detect reports whether data looks like a version 1 script.
func Detect(data []byte) bool {
	return bytes.HasPrefix(data, Magic)
}
