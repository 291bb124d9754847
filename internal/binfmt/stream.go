// Package binfmt provides a bounded little-endian cursor over script bytes
// plus the shared diagnostics and option types used by the decoders.
package binfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrStreamEOF     = errors.New("stream: unexpected end of data")
	ErrStreamOverrun = errors.New("stream: value out of range")
)

// Stream reads script data. Positions are absolute offsets into the
// underlying slice so callers can record operand field locations directly.
type Stream struct {
	data []byte
	pos  int
	end  int
}

// NewStream creates a stream over the given data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data)}
}

// NewStreamAt creates a stream starting at offset within data.
func NewStreamAt(data []byte, offset int) *Stream {
	if offset > len(data) {
		offset = len(data)
	}
	return &Stream{data: data, pos: offset, end: len(data)}
}

// Data returns the underlying bytes.
func (s *Stream) Data() []byte { return s.data }

// Position returns the current read position.
func (s *Stream) Position() int { return s.pos }

// SetPosition sets the read position.
func (s *Stream) SetPosition(pos int) {
	if pos > s.end {
		pos = s.end
	}
	if pos < 0 {
		pos = 0
	}
	s.pos = pos
}

// Len returns the total length of the data.
func (s *Stream) Len() int { return s.end }

// Remaining returns bytes left to read.
func (s *Stream) Remaining() int { return s.end - s.pos }

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if s.pos >= s.end {
		return 0, ErrStreamEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || s.pos+n > s.end {
		return nil, ErrStreamEOF
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// ReadUint16 reads a little-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	if s.pos+2 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if s.pos+4 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// ReadInt32 reads a little-endian int32.
func (s *Stream) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

// ReadUint reads an unsigned little-endian value of width 1, 2 or 4.
func (s *Stream) ReadUint(width int) (uint32, error) {
	switch width {
	case 1:
		b, err := s.ReadByte()
		return uint32(b), err
	case 2:
		v, err := s.ReadUint16()
		return uint32(v), err
	case 4:
		return s.ReadUint32()
	}
	return 0, fmt.Errorf("%w: width %d", ErrStreamOverrun, width)
}

// ReadCString reads a null-terminated byte string and returns it without
// the terminator.
func (s *Stream) ReadCString() ([]byte, error) {
	start := s.pos
	for s.pos < s.end {
		if s.data[s.pos] == 0 {
			str := s.data[start:s.pos]
			s.pos++ // skip null terminator
			return str, nil
		}
		s.pos++
	}
	s.pos = start
	return nil, fmt.Errorf("stream: unterminated string at offset 0x%x", start)
}

// CStringAt returns the null-terminated bytes starting at offset without
// moving the cursor.
func (s *Stream) CStringAt(offset int) ([]byte, error) {
	if offset < 0 || offset >= s.end {
		return nil, fmt.Errorf("%w: string offset 0x%x outside 0x%x bytes", ErrStreamEOF, offset, s.end)
	}
	for i := offset; i < s.end; i++ {
		if s.data[i] == 0 {
			return s.data[offset:i], nil
		}
	}
	return nil, fmt.Errorf("stream: unterminated string at offset 0x%x", offset)
}

// Skip advances the position by n bytes.
func (s *Stream) Skip(n int) error {
	if n < 0 || s.pos+n > s.end {
		return ErrStreamEOF
	}
	s.pos += n
	return nil
}

// PutUint writes v as a little-endian value of the given width at offset.
func PutUint(buf []byte, offset, width int, v uint32) error {
	if offset < 0 || offset+width > len(buf) {
		return fmt.Errorf("%w: field 0x%x+%d outside 0x%x bytes", ErrStreamEOF, offset, width, len(buf))
	}
	switch width {
	case 1:
		buf[offset] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf[offset:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf[offset:], v)
	default:
		return fmt.Errorf("%w: width %d", ErrStreamOverrun, width)
	}
	return nil
}
