package pipeline

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	doneColor  = color.New(color.FgGreen)
	skipColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
)

// reporter prints one status line per script: "<name>...<status>".
type reporter struct {
	w io.Writer
}

func (r reporter) begin(name string) { fmt.Fprintf(r.w, "%s...", name) }

func (r reporter) done() { doneColor.Fprintln(r.w, "Done") }

func (r reporter) skip(format string, args ...any) {
	skipColor.Fprintf(r.w, format+". Skip...\n", args...)
}

func (r reporter) fail(err error) {
	errorColor.Fprintf(r.w, "Error: %v. Skip...\n", err)
}
