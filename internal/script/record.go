// Package script defines the text record model shared by every codec and the
// contracts between codecs, collections and the extraction pipeline.
package script

import (
	"fmt"
	"strings"
)

// Kind classifies a string reference by how the script consumes it.
type Kind int

const (
	CharacterName Kind = iota
	Message
	Internal
)

var kindNames = [...]string{"name", "message", "internal"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(s, n) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("script: unknown kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Flags records which review passes a line has been through.
type Flags struct {
	Translated bool
	Checked    bool
	Edited     bool
}

// Record is one string reference. Offset is the position of the address
// field that referenced the string, not of the string bytes; it is unique
// within a script and records keep decode order.
type Record struct {
	Offset   int
	Kind     Kind
	Text     string
	Original string
	Flags    Flags
}

// Statistics tracks translation progress over Message records.
type Statistics struct {
	Total      int
	Translated int
	Checked    int
	Edited     int
}

// Count adds every Message record in records to the totals.
func (s *Statistics) Count(records []Record) {
	for _, r := range records {
		if r.Kind != Message {
			continue
		}
		s.Total++
		if r.Flags.Translated {
			s.Translated++
		}
		if r.Flags.Checked {
			s.Checked++
		}
		if r.Flags.Edited {
			s.Edited++
		}
	}
}

// Reset zeroes the counters.
func (s *Statistics) Reset() { *s = Statistics{} }

// Percent returns n as a percentage of Total.
func (s Statistics) Percent(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(s.Total)
}

// CountMessages returns the number of Message records.
func CountMessages(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Kind == Message {
			n++
		}
	}
	return n
}
