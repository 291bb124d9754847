package ethornell

import (
	"fmt"
	"os"

	"github.com/apex/log"

	"vnpatch/internal/binfmt"
	"vnpatch/internal/patch"
	"vnpatch/internal/script"
)

// Codec reads and patches version 1 scripts. Scripts have no extension.
type Codec struct {
	run  *script.Run
	opts binfmt.Options

	data    []byte
	decoded *Decoded
	records []script.Record
}

// NewCodec returns a codec that encodes text through the run's tunnel.
func NewCodec(run *script.Run, opts binfmt.Options) *Codec {
	return &Codec{run: run, opts: opts}
}

func (c *Codec) Extension() string { return "" }

// Load reads and decodes the script at loc.
func (c *Codec) Load(loc script.Location) error {
	path, err := loc.FilePath()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ethornell: %w", err)
	}
	return c.LoadBytes(data)
}

// LoadBytes decodes an in-memory script.
func (c *Codec) LoadBytes(data []byte) error {
	d, err := Disassemble(data, c.run.Tunnel, c.opts)
	if err != nil {
		return err
	}
	records := make([]script.Record, 0, len(d.Refs))
	for _, r := range d.Refs {
		text, err := d.Resolve(r.Address)
		if err != nil {
			return fmt.Errorf("ethornell: string at field 0x%x: %w", r.Offset, err)
		}
		records = append(records, script.Record{
			Offset:   r.Offset,
			Kind:     r.Kind,
			Text:     text,
			Original: text,
		})
	}
	for _, dg := range d.Diags {
		log.WithField("format", V1.Name).Debug(dg.String())
	}
	c.data, c.decoded, c.records = data, d, records
	return nil
}

func (c *Codec) Records() []script.Record { return c.records }

// Decoded returns the result of the last Load.
func (c *Codec) Decoded() *Decoded { return c.decoded }

// WritePatched rebuilds the loaded script with records applied and writes
// it to loc. Records must match decoded address fields by offset and kind;
// fields without a record keep their original text. Nothing is written when
// the rebuild fails.
func (c *Codec) WritePatched(records []script.Record, loc script.Location) error {
	out, err := c.Patch(records)
	if err != nil {
		return err
	}
	if err := loc.Collection.Add(loc.Name); err != nil {
		return err
	}
	path, err := loc.FilePath()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("ethornell: %w", err)
	}
	return nil
}

// Patch returns the rebuilt script bytes.
func (c *Codec) Patch(records []script.Record) ([]byte, error) {
	if c.decoded == nil {
		return nil, fmt.Errorf("ethornell: patch before load")
	}
	byOffset := make(map[int]int, len(c.records))
	for i, r := range c.records {
		byOffset[r.Offset] = i
	}
	texts := make([]string, len(c.records))
	for i, r := range c.records {
		texts[i] = r.Original
	}
	for _, r := range records {
		i, ok := byOffset[r.Offset]
		if !ok {
			return nil, fmt.Errorf("%w: 0x%x", script.ErrUnknownOffset, r.Offset)
		}
		if want := c.records[i].Kind; r.Kind != want {
			return nil, fmt.Errorf("%w: 0x%x is %s, got %s", script.ErrKindMismatch, r.Offset, want, r.Kind)
		}
		texts[i] = r.Text
	}

	if len(c.records) == 0 {
		return append([]byte(nil), c.data...), nil
	}
	s := binfmt.NewStream(c.data)
	refs := make([]patch.Ref, len(c.records))
	for i, r := range c.decoded.Refs {
		var enc []byte
		var err error
		if texts[i] == c.records[i].Original {
			// Unchanged text keeps its source bytes.
			enc, err = s.CStringAt(c.decoded.CodeOffset + r.Address)
		} else {
			enc, err = c.run.Tunnel.Encode(texts[i])
		}
		if err != nil {
			return nil, fmt.Errorf("ethornell: field 0x%x: %w", r.Offset, err)
		}
		refs[i] = patch.Ref{FieldOffset: r.Offset, Address: r.Address, Text: enc}
	}
	layout := patch.Layout{
		CodeEnd: c.decoded.CodeEnd,
		Base:    c.decoded.CodeOffset,
		Width:   V1.OperandSize,
	}
	res, err := patch.Rebuild(c.data, layout, refs)
	if err != nil {
		return nil, fmt.Errorf("ethornell: %w", err)
	}
	return res.Data, nil
}
