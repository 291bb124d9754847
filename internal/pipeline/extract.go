// Package pipeline drives extraction and insertion over script collections.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vnpatch/internal/script"
)

// punctuation is excluded from character totals.
const punctuation = "「」『』【】（）“”、。？！"

var tracer = otel.Tracer("vnpatch/pipeline")

// Extractor copies records from binary scripts into a text collection.
type Extractor struct {
	run   *script.Run
	input script.Collection
	text  script.Collection

	inputCodec script.Codec
	textCodec  script.Codec
	report     reporter

	TotalLines      int
	TotalCharacters int
}

// NewExtractor binds the collections' codecs. Codec errors are fatal.
func NewExtractor(run *script.Run, input, text script.Collection, out io.Writer) (*Extractor, error) {
	ic, err := input.Codec()
	if err != nil {
		return nil, fmt.Errorf("pipeline: input codec: %w", err)
	}
	tc, err := text.Codec()
	if err != nil {
		return nil, fmt.Errorf("pipeline: text codec: %w", err)
	}
	return &Extractor{
		run:        run,
		input:      input,
		text:       text,
		inputCodec: ic,
		textCodec:  tc,
		report:     reporter{w: out},
	}, nil
}

// ExtractOne extracts a single script. The returned error has already been
// reported; callers use it only to decide whether to continue.
func (e *Extractor) ExtractOne(ctx context.Context, inputName, textName string) (err error) {
	_, span := tracer.Start(ctx, "extract", trace.WithAttributes(
		attribute.String("script", inputName),
		attribute.String("text", textName),
	))
	defer func() { endSpan(span, err) }()

	e.report.begin(inputName)
	ok, err := e.input.Exists(inputName)
	if err != nil {
		e.report.fail(err)
		return err
	}
	if !ok {
		err = fmt.Errorf("%s does not exist in %s: %w", inputName, e.input.Name(), script.ErrNotFound)
		e.report.fail(err)
		return err
	}

	if err := e.inputCodec.Load(script.Location{Collection: e.input, Name: inputName}); err != nil {
		e.report.fail(err)
		return err
	}
	records := e.inputCodec.Records()
	if len(records) == 0 {
		e.report.skip("No strings found")
		return nil
	}

	exists, err := e.text.Exists(textName)
	if err == nil && !exists {
		err = e.text.Add(textName)
	}
	if err == nil {
		err = e.textCodec.WritePatched(records, script.Location{Collection: e.text, Name: textName})
	}
	if err != nil {
		e.report.fail(err)
		return err
	}

	for _, r := range records {
		switch r.Kind {
		case script.CharacterName:
			e.run.Names.Add(r.Original)
		case script.Message:
			e.TotalLines++
			e.TotalCharacters += countCharacters(r.Text)
		}
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	log.WithFields(log.Fields{"script": inputName, "records": len(records)}).Debug("extracted")
	e.report.done()
	return nil
}

// ExtractAll extracts every script of the input collection. Only fatal
// errors stop the run.
func (e *Extractor) ExtractAll(ctx context.Context) error {
	names, err := e.input.Scripts()
	if err != nil {
		return err
	}
	for _, name := range names {
		textName := script.TextName(name, e.inputCodec.Extension(), e.textCodec.Extension())
		if err := e.ExtractOne(ctx, name, textName); script.Classify(err) == script.SeverityFatal {
			return err
		}
	}
	return nil
}

func countCharacters(s string) int {
	n := 0
	for _, r := range s {
		if !strings.ContainsRune(punctuation, r) {
			n++
		}
	}
	return n
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
