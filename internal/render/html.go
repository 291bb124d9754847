package render

import (
	"fmt"
	"io"
	"sort"
)

// ScriptStats summarizes one decoded script.
type ScriptStats struct {
	Name     string
	Names    int
	Messages int
	Internal int
	Calls    int
	Blocks   int
	Diags    int
	// First is the first message, shown as a preview.
	First string
}

// Total is the number of text references.
func (s ScriptStats) Total() int { return s.Names + s.Messages + s.Internal }

// Report is the input of WriteIndexHTML.
type Report struct {
	Title   string
	Scripts []ScriptStats
	// Edges is the number of call graph edges.
	Edges    int
	CFGCount int
}

// WriteIndexHTML writes a small HTML page summarizing a graph run.
func WriteIndexHTML(w io.Writer, r Report) {
	var names, messages, internal, diags int
	for _, s := range r.Scripts {
		names += s.Names
		messages += s.Messages
		internal += s.Internal
		diags += s.Diags
	}
	total := names + messages + internal

	th := NASA
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: %s; background: %s; margin: 2em; max-width: 900px; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.kind { display: inline-block; width: 10px; height: 10px; border-radius: 2px; margin-right: 4px; vertical-align: middle; }
a { color: %s; }
.bar { height: 8px; border-radius: 2px; display: inline-block; vertical-align: middle; }
.name { font-family: "Courier New", monospace; font-size: 12px; }
</style>
</head>
<body>
`, htmlEscape(r.Title), th.TextColor, th.Background, th.Link)

	fmt.Fprintf(w, "<h1>%s</h1>\n", htmlEscape(r.Title))

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintf(w, "<tr><td>Scripts</td><td class=\"num\">%d</td></tr>\n", len(r.Scripts))
	fmt.Fprintf(w, "<tr><td>Text references</td><td class=\"num\">%d</td></tr>\n", total)
	fmt.Fprintf(w, "<tr><td>Call graph edges</td><td class=\"num\">%d</td></tr>\n", r.Edges)
	fmt.Fprintf(w, "<tr><td>Diagnostics</td><td class=\"num\">%d</td></tr>\n", diags)
	if r.CFGCount > 0 {
		fmt.Fprintf(w, "<tr><td>CFGs generated</td><td class=\"num\">%d</td></tr>\n", r.CFGCount)
	}
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Record Kinds</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th></th><th>Kind</th><th>Count</th><th></th></tr>")
	kinds := []struct {
		label string
		color string
		count int
	}{
		{"Character names", th.KindName, names},
		{"Messages", th.KindMessage, messages},
		{"Internal", th.KindInternal, internal},
	}
	for _, k := range kinds {
		if k.count == 0 {
			continue
		}
		barW := k.count * 200 / total
		if barW < 2 {
			barW = 2
		}
		fmt.Fprintf(w, "<tr><td><span class=\"kind\" style=\"background:%s\"></span></td><td>%s</td><td class=\"num\">%d</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td></tr>\n",
			k.color, k.label, k.count, barW, k.color)
	}
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Graphs</h2>")
	fmt.Fprint(w, `<p><a href="callgraph.dot">Call graph</a>`)
	if r.CFGCount > 0 {
		fmt.Fprint(w, ` | <a href="cfg/">Per-script CFGs</a>`)
	}
	fmt.Fprintln(w, "</p>")

	if len(r.Scripts) == 0 {
		fmt.Fprintln(w, "</body></html>")
		return
	}

	// Scripts by message count, busiest first.
	scripts := append([]ScriptStats(nil), r.Scripts...)
	sort.SliceStable(scripts, func(i, j int) bool {
		if scripts[i].Messages != scripts[j].Messages {
			return scripts[i].Messages > scripts[j].Messages
		}
		return scripts[i].Name < scripts[j].Name
	})
	maxCount := scripts[0].Messages
	fmt.Fprintln(w, "<h2>Scripts</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th>Script</th><th>Names</th><th>Messages</th><th>Calls</th><th></th><th>First line</th></tr>")
	for _, s := range scripts {
		name := htmlEscape(s.Name)
		if s.Blocks > 1 {
			name = fmt.Sprintf(`%s <a href="cfg/%s.dot" style="font-size:11px">[cfg]</a>`, name, SafeName(s.Name))
		}
		barW := 0
		if maxCount > 0 {
			barW = s.Messages * 120 / maxCount
		}
		fmt.Fprintf(w, "<tr><td class=\"name\">%s</td><td class=\"num\">%d</td><td class=\"num\">%d</td><td class=\"num\">%d</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td><td>%s</td></tr>\n",
			name, s.Names, s.Messages, s.Calls, barW, th.KindMessage, htmlEscape(truncLabel(s.First, 60)))
	}
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "</body></html>")
}
