// Package patch rebuilds the string region of a script binary and rewrites
// every address field that points into it.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"vnpatch/internal/binfmt"
)

var (
	ErrAddressOverflow = errors.New("patch: string address exceeds field width")
	ErrRegionOverlap   = errors.New("patch: string region overlaps code")
	ErrNoStrings       = errors.New("patch: no string references")
)

// Layout describes where a script keeps its code and how it addresses strings.
type Layout struct {
	CodeEnd int // absolute position where code ends
	Base    int // absolute position addresses are relative to
	Width   int // address field width in bytes
}

// Ref is one address field and the encoded text it should point at.
// Text excludes the NUL terminator.
type Ref struct {
	FieldOffset int
	Address     int
	Text        []byte
}

// Result is a rebuilt binary.
type Result struct {
	Data        []byte
	RegionStart int // absolute, unchanged by the rebuild
	OldEnd      int
	NewEnd      int
	Slots       int // distinct strings written
}

// Delta is the change in total length.
func (r *Result) Delta() int { return r.NewEnd - r.OldEnd }

// Region returns the absolute bounds of the strings referenced by refs in
// data: the smallest start and the largest end including the terminator.
func Region(data []byte, layout Layout, refs []Ref) (start, end int, err error) {
	if len(refs) == 0 {
		return 0, 0, ErrNoStrings
	}
	s := binfmt.NewStream(data)
	start, end = -1, -1
	for _, r := range refs {
		at := layout.Base + r.Address
		str, err := s.CStringAt(at)
		if err != nil {
			return 0, 0, fmt.Errorf("patch: field 0x%x: %w", r.FieldOffset, err)
		}
		if start < 0 || at < start {
			start = at
		}
		if e := at + len(str) + 1; e > end {
			end = e
		}
	}
	if start < layout.CodeEnd {
		return 0, 0, fmt.Errorf("%w: string at 0x%x before code end 0x%x", ErrRegionOverlap, start, layout.CodeEnd)
	}
	return start, end, nil
}

// Rebuild produces a new binary. Bytes outside the string region are copied
// unchanged. The region is rewritten in ascending original address order:
// fields that pointed at the same string and carry the same text keep sharing
// one slot; strings stored separately stay separate. Each address field gets
// the new relative offset.
func Rebuild(data []byte, layout Layout, refs []Ref) (*Result, error) {
	start, end, err := Region(data, layout, refs)
	if err != nil {
		return nil, err
	}

	type slotKey struct {
		address int
		text    string
	}
	order := make([]int, len(refs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return refs[order[a]].Address < refs[order[b]].Address })

	var region bytes.Buffer
	slots := make(map[slotKey]int)
	newAddr := make([]int, len(refs))
	for _, i := range order {
		r := refs[i]
		key := slotKey{r.Address, string(r.Text)}
		at, ok := slots[key]
		if !ok {
			at = start + region.Len()
			slots[key] = at
			region.Write(r.Text)
			region.WriteByte(0)
		}
		newAddr[i] = at - layout.Base
	}

	newEnd := start + region.Len()
	out := make([]byte, 0, len(data)-(end-start)+region.Len())
	out = append(out, data[:start]...)
	out = append(out, region.Bytes()...)
	out = append(out, data[end:]...)

	limit := maxAddress(layout.Width)
	delta := newEnd - end
	for i, r := range refs {
		field := r.FieldOffset
		switch {
		case field+layout.Width <= start:
		case field >= end:
			field += delta
		default:
			return nil, fmt.Errorf("%w: address field 0x%x inside string region", ErrRegionOverlap, r.FieldOffset)
		}
		if newAddr[i] < 0 || uint64(newAddr[i]) > limit {
			return nil, fmt.Errorf("%w: 0x%x in %d-byte field at 0x%x", ErrAddressOverflow, newAddr[i], layout.Width, r.FieldOffset)
		}
		if err := binfmt.PutUint(out, field, layout.Width, uint32(newAddr[i])); err != nil {
			return nil, fmt.Errorf("patch: %w", err)
		}
	}

	return &Result{
		Data:        out,
		RegionStart: start,
		OldEnd:      end,
		NewEnd:      newEnd,
		Slots:       len(slots),
	}, nil
}

// maxAddress is the largest non-negative address a field can hold. Four-byte
// fields are signed in every supported format.
func maxAddress(width int) uint64 {
	switch width {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	default:
		return 0x7FFFFFFF
	}
}
