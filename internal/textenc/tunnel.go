// Package textenc converts between Go strings and the legacy Shift_JIS bytes
// stored in scripts. Characters that Shift_JIS cannot represent are routed
// through a tunnel: each one claims a slot in the CP932 user-defined area
// (lead bytes 0xF0-0xF9) and the slot assignments travel in a side table that
// the game's font patch reads back.
package textenc

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

const (
	tunnelLeadFirst = 0xF0
	tunnelLeadLast  = 0xF9
	trailsPerLead   = 188

	// TableFileName is the conventional name of the persisted tunnel table.
	TableFileName = "sjis_ext.bin"
)

// Capacity is the number of characters the tunnel can carry.
const Capacity = (tunnelLeadLast - tunnelLeadFirst + 1) * trailsPerLead

var (
	ErrTunnelFull = errors.New("textenc: tunnel table full")
	// ErrInvalidText is returned for U+FFFD, which stands for bytes that
	// were not valid Shift_JIS and cannot be written back faithfully.
	ErrInvalidText = errors.New("textenc: replacement character in text")
)

// Tunnel is a Shift_JIS codec with an extension table for unmappable runes.
// Slots are handed out in first-seen order and never reassigned.
//
// Tunnel sequences the table does not cover decode to the private-use rune
// CP932 assigns them (U+E000 + slot) and encode back to the same bytes.
// Their slots are reserved so later claims skip them.
type Tunnel struct {
	enc      encoding.Encoding
	chars    []rune
	slots    map[rune]int
	reserved map[int]bool
}

// NewTunnel returns an empty Shift_JIS tunnel.
func NewTunnel() *Tunnel {
	return &Tunnel{
		enc:      japanese.ShiftJIS,
		slots:    make(map[rune]int),
		reserved: make(map[int]bool),
	}
}

// Len returns the number of tunnelled characters.
func (t *Tunnel) Len() int { return len(t.chars) }

// Chars returns the tunnelled characters in slot order.
func (t *Tunnel) Chars() []rune {
	out := make([]rune, len(t.chars))
	copy(out, t.chars)
	return out
}

// Slot returns the slot assigned to r, if any.
func (t *Tunnel) Slot(r rune) (int, bool) {
	i, ok := t.slots[r]
	return i, ok
}

// Encode converts s to Shift_JIS, tunnelling runes the encoding rejects.
func (t *Tunnel) Encode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	enc := t.enc.NewEncoder()
	var buf [utf8.UTFMax]byte
	for _, r := range s {
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r == utf8.RuneError {
			return nil, fmt.Errorf("%w: %q", ErrInvalidText, s)
		}
		if literal, ok := t.literal(r); ok {
			lead, trail := slotBytes(literal)
			out = append(out, lead, trail)
			continue
		}
		if !isUserDefined(r) {
			n := utf8.EncodeRune(buf[:], r)
			if b, err := enc.Bytes(buf[:n]); err == nil {
				out = append(out, b...)
				continue
			}
		}
		slot, err := t.claim(r)
		if err != nil {
			return nil, err
		}
		lead, trail := slotBytes(slot)
		out = append(out, lead, trail)
	}
	return out, nil
}

// Decode converts Shift_JIS bytes back to a string, expanding tunnel
// sequences that have a slot in the table. Sequences without one become
// their private-use rune.
func (t *Tunnel) Decode(b []byte) (string, error) {
	var out []byte
	dec := t.enc.NewDecoder()
	start := 0
	flush := func(end int) error {
		if end <= start {
			return nil
		}
		s, err := dec.Bytes(b[start:end])
		if err != nil {
			return fmt.Errorf("textenc: decode at byte %d: %w", start, err)
		}
		out = append(out, s...)
		return nil
	}

	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c >= tunnelLeadFirst && c <= tunnelLeadLast && i+1 < len(b):
			if slot, ok := slotIndex(c, b[i+1]); ok {
				if err := flush(i); err != nil {
					return "", err
				}
				r := rune(0xE000 + slot)
				if slot < len(t.chars) {
					r = t.chars[slot]
				}
				out = utf8.AppendRune(out, r)
				i += 2
				start = i
				continue
			}
			i += 2
		case isLeadByte(c) && i+1 < len(b):
			i += 2
		default:
			i++
		}
	}
	if err := flush(len(b)); err != nil {
		return "", err
	}
	return string(out), nil
}

// literal returns the slot of a private-use rune that is written as its own
// CP932 bytes: one the table neither maps nor has given to another rune.
func (t *Tunnel) literal(r rune) (int, bool) {
	if !isUserDefined(r) {
		return 0, false
	}
	if _, ok := t.slots[r]; ok {
		return 0, false
	}
	slot := int(r - 0xE000)
	if slot < len(t.chars) {
		return 0, false
	}
	t.reserved[slot] = true
	return slot, true
}

func (t *Tunnel) claim(r rune) (int, error) {
	if slot, ok := t.slots[r]; ok {
		return slot, nil
	}
	// Reserved slots map to themselves.
	for len(t.chars) < Capacity && t.reserved[len(t.chars)] {
		n := len(t.chars)
		self := rune(0xE000 + n)
		t.chars = append(t.chars, self)
		t.slots[self] = n
	}
	if len(t.chars) >= Capacity {
		return 0, fmt.Errorf("%w: cannot map %q", ErrTunnelFull, r)
	}
	slot := len(t.chars)
	t.chars = append(t.chars, r)
	t.slots[r] = slot
	return slot, nil
}

// MarshalBinary serialises the table as UTF-16LE characters in slot order.
func (t *Tunnel) MarshalBinary() ([]byte, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	b, err := enc.Bytes([]byte(string(t.chars)))
	if err != nil {
		return nil, fmt.Errorf("textenc: encode table: %w", err)
	}
	return b, nil
}

// UnmarshalBinary replaces the table with one produced by MarshalBinary.
func (t *Tunnel) UnmarshalBinary(data []byte) error {
	if len(data)%2 != 0 {
		return fmt.Errorf("textenc: table has odd length %d", len(data))
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := dec.Bytes(data)
	if err != nil {
		return fmt.Errorf("textenc: decode table: %w", err)
	}
	chars := []rune(string(s))
	if len(chars) > Capacity {
		return fmt.Errorf("%w: table holds %d characters", ErrTunnelFull, len(chars))
	}
	t.chars = chars
	t.slots = make(map[rune]int, len(chars))
	for i, r := range chars {
		if _, dup := t.slots[r]; !dup {
			t.slots[r] = i
		}
	}
	return nil
}

// LoadFile reads a persisted table. A missing file leaves the table empty.
func (t *Tunnel) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("textenc: read table: %w", err)
	}
	return t.UnmarshalBinary(data)
}

// SaveFile writes the table to path. Nothing is written for an empty table.
func (t *Tunnel) SaveFile(path string) error {
	if t.Len() == 0 {
		return nil
	}
	data, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("textenc: write table: %w", err)
	}
	return nil
}

func slotBytes(slot int) (lead, trail byte) {
	lead = byte(tunnelLeadFirst + slot/trailsPerLead)
	t := slot % trailsPerLead
	trail = byte(0x40 + t)
	if trail >= 0x7F {
		trail++
	}
	return lead, trail
}

func slotIndex(lead, trail byte) (int, bool) {
	if trail < 0x40 || trail == 0x7F || trail > 0xFC {
		return 0, false
	}
	t := int(trail) - 0x40
	if trail > 0x7F {
		t--
	}
	return int(lead-tunnelLeadFirst)*trailsPerLead + t, true
}

func isLeadByte(b byte) bool {
	return (b >= 0x81 && b <= 0x9F) || (b >= 0xE0 && b <= 0xFC)
}

// isUserDefined reports whether r falls in the private-use block that CP932
// maps onto the tunnel lead bytes. Such runes never go through the legacy
// encoder so tunnel sequences stay unambiguous.
func isUserDefined(r rune) bool {
	return r >= 0xE000 && r < 0xE000+Capacity
}
