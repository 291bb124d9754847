package store

import (
	"fmt"

	"vnpatch/internal/script"
	"vnpatch/internal/textfile"
)

// line is one row of a sheet. It shares the text document's field rules.
type line = textfile.Entry

func newLine(r script.Record) line { return textfile.NewEntry(r) }

// Codec reads and writes sheets of a Collection. Statistics accumulate
// across loads.
type Codec struct {
	records []script.Record
	stats   script.Statistics
}

// Extension is empty: sheets are addressed by the script's own name.
func (c *Codec) Extension() string { return "" }

func (c *Codec) Load(loc script.Location) error {
	col, err := collectionOf(loc)
	if err != nil {
		return err
	}
	records, err := col.load(loc.Name)
	if err != nil {
		return err
	}
	c.records = records
	c.stats.Count(records)
	return nil
}

func (c *Codec) Records() []script.Record { return c.records }

func (c *Codec) WritePatched(records []script.Record, loc script.Location) error {
	col, err := collectionOf(loc)
	if err != nil {
		return err
	}
	return col.save(loc.Name, records)
}

func (c *Codec) Statistics() *script.Statistics { return &c.stats }

func collectionOf(loc script.Location) (*Collection, error) {
	col, ok := loc.Collection.(*Collection)
	if !ok {
		return nil, fmt.Errorf("store: %s is not a text store: %w", loc, script.ErrNotSupported)
	}
	return col, nil
}
