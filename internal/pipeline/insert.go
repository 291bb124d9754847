package pipeline

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/apex/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vnpatch/internal/script"
)

// Inserter patches binary scripts with records from a text collection.
type Inserter struct {
	run    *script.Run
	input  script.Collection
	text   script.Collection
	output script.Collection

	ioCodec   script.Codec
	textCodec script.Codec
	report    reporter
}

// NewInserter binds the collections. Input and output must be the same kind
// of collection; this is checked before anything is read.
func NewInserter(run *script.Run, input, text, output script.Collection, out io.Writer) (*Inserter, error) {
	if reflect.TypeOf(input) != reflect.TypeOf(output) {
		return nil, fmt.Errorf("%w: %T vs %T", script.ErrCollectionMismatch, input, output)
	}
	ic, err := input.Codec()
	if err != nil {
		return nil, fmt.Errorf("pipeline: input codec: %w", err)
	}
	tc, err := text.Codec()
	if err != nil {
		return nil, fmt.Errorf("pipeline: text codec: %w", err)
	}
	return &Inserter{
		run:       run,
		input:     input,
		text:      text,
		output:    output,
		ioCodec:   ic,
		textCodec: tc,
		report:    reporter{w: out},
	}, nil
}

// Statistics returns the text codec's counters, or nil when it keeps none.
func (ins *Inserter) Statistics() *script.Statistics {
	if sp, ok := ins.textCodec.(script.StatisticsProvider); ok {
		return sp.Statistics()
	}
	return nil
}

// InsertOne patches one script.
func (ins *Inserter) InsertOne(ctx context.Context, inputName, textName, outputName string) (err error) {
	_, span := tracer.Start(ctx, "insert", trace.WithAttributes(
		attribute.String("script", inputName),
		attribute.String("text", textName),
	))
	defer func() { endSpan(span, err) }()

	ins.report.begin(inputName)
	if err := ins.require(ins.input, inputName); err != nil {
		ins.report.fail(err)
		return err
	}
	if err := ins.require(ins.text, textName); err != nil {
		ins.report.fail(err)
		return err
	}

	if err := ins.textCodec.Load(script.Location{Collection: ins.text, Name: textName}); err != nil {
		ins.report.fail(err)
		return err
	}
	records := ins.applyNames(ins.textCodec.Records())

	if err := ins.ioCodec.Load(script.Location{Collection: ins.input, Name: inputName}); err != nil {
		ins.report.fail(err)
		return err
	}
	if err := ins.ioCodec.WritePatched(records, script.Location{Collection: ins.output, Name: outputName}); err != nil {
		ins.report.fail(err)
		return err
	}
	log.WithFields(log.Fields{"script": inputName, "records": len(records)}).Debug("inserted")
	ins.report.done()
	return nil
}

// InsertAll patches every input script that has a text entry and copies the
// rest through unchanged. Copied scripts still count towards Total. Failures
// are reported per script; only fatal ones end the batch.
func (ins *Inserter) InsertAll(ctx context.Context) error {
	names, err := ins.input.Scripts()
	if err != nil {
		return err
	}
	for _, name := range names {
		textName := script.TextName(name, ins.ioCodec.Extension(), ins.textCodec.Extension())
		ok, err := ins.text.Exists(textName)
		switch {
		case err != nil:
			ins.report.begin(name)
			ins.report.fail(err)
		case ok:
			err = ins.InsertOne(ctx, name, textName, name)
		default:
			err = ins.copyThrough(ctx, name)
		}
		if script.Classify(err) == script.SeverityFatal {
			return err
		}
	}
	return nil
}

func (ins *Inserter) copyThrough(ctx context.Context, name string) (err error) {
	_, span := tracer.Start(ctx, "copy", trace.WithAttributes(attribute.String("script", name)))
	defer func() { endSpan(span, err) }()

	from := script.Location{Collection: ins.input, Name: name}
	if err := ins.output.AddCopy(name, from); err != nil {
		ins.report.begin(name)
		ins.report.fail(err)
		return err
	}
	stats := ins.Statistics()
	if stats == nil {
		return nil
	}
	if err := ins.ioCodec.Load(from); err != nil {
		ins.report.begin(name)
		ins.report.fail(err)
		return err
	}
	stats.Total += script.CountMessages(ins.ioCodec.Records())
	return nil
}

func (ins *Inserter) require(c script.Collection, name string) error {
	ok, err := c.Exists(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s does not exist in %s: %w", name, c.Name(), script.ErrNotFound)
	}
	return nil
}

// applyNames fills untranslated speaker names from the run's name table.
func (ins *Inserter) applyNames(records []script.Record) []script.Record {
	out := make([]script.Record, len(records))
	copy(out, records)
	for i, r := range out {
		if r.Kind != script.CharacterName || r.Flags.Translated {
			continue
		}
		if tr, ok := ins.run.Names.Translation(r.Original); ok {
			out[i].Text = tr
		}
	}
	return out
}
