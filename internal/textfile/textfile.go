// Package textfile stores script text as JSON documents, one per script.
package textfile

import (
	"fmt"

	"vnpatch/internal/output"
	"vnpatch/internal/script"
)

// Extension of text documents.
const Extension = ".json"

// Entry is the on-disk shape of one record.
type Entry struct {
	Offset      int         `json:"offset"`
	Kind        script.Kind `json:"kind"`
	Original    string      `json:"original"`
	Translation string      `json:"translation,omitempty"`
	Checked     bool        `json:"checked,omitempty"`
	Edited      bool        `json:"edited,omitempty"`
}

// Codec reads and writes JSON text documents. Statistics accumulate over
// every Load until reset.
type Codec struct {
	records []script.Record
	stats   script.Statistics
}

func New() *Codec { return &Codec{} }

func (c *Codec) Extension() string { return Extension }

func (c *Codec) Load(loc script.Location) error {
	path, err := loc.FilePath()
	if err != nil {
		return err
	}
	var entries []Entry
	if err := output.ReadJSON(path, &entries); err != nil {
		return fmt.Errorf("textfile: %w", err)
	}
	c.records = make([]script.Record, len(entries))
	for i, e := range entries {
		c.records[i] = e.Record()
	}
	c.stats.Count(c.records)
	return nil
}

func (c *Codec) Records() []script.Record { return c.records }

// WritePatched replaces the document at loc with records.
func (c *Codec) WritePatched(records []script.Record, loc script.Location) error {
	path, err := loc.FilePath()
	if err != nil {
		return err
	}
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = NewEntry(r)
	}
	return output.WriteJSON(path, entries)
}

func (c *Codec) Statistics() *script.Statistics { return &c.stats }

// NewEntry converts a record. A record whose text differs from its original,
// or that is flagged translated, stores its text as the translation.
func NewEntry(r script.Record) Entry {
	e := Entry{
		Offset:   r.Offset,
		Kind:     r.Kind,
		Original: r.Original,
		Checked:  r.Flags.Checked,
		Edited:   r.Flags.Edited,
	}
	if r.Original == "" {
		e.Original = r.Text
	} else if r.Text != r.Original || r.Flags.Translated {
		e.Translation = r.Text
	}
	return e
}

// Record converts an entry. The effective text is the translation when
// present, else the original.
func (e Entry) Record() script.Record {
	r := script.Record{
		Offset:   e.Offset,
		Kind:     e.Kind,
		Text:     e.Original,
		Original: e.Original,
		Flags:    script.Flags{Checked: e.Checked, Edited: e.Edited},
	}
	if e.Translation != "" {
		r.Text = e.Translation
		r.Flags.Translated = true
	}
	return r
}
