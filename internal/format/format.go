// Package format maps format names and file extensions to script codecs.
package format

import (
	"fmt"
	"sort"
	"strings"

	"vnpatch/internal/binfmt"
	"vnpatch/internal/ethornell"
	"vnpatch/internal/script"
	"vnpatch/internal/textfile"
)

// Factory creates a codec bound to a run.
type Factory func(run *script.Run, opts binfmt.Options) script.Codec

// Format describes one codec family.
type Format struct {
	Name      string
	Extension string
	// Binary formats hold bytecode; text formats hold extracted records.
	Binary bool
	New    Factory
	// Detect sniffs file contents; nil for formats without a signature.
	Detect func(data []byte) bool
}

var formats = map[string]Format{
	"ethornell": {
		Name:      "ethornell",
		Extension: "",
		Binary:    true,
		New: func(run *script.Run, opts binfmt.Options) script.Codec {
			return ethornell.NewCodec(run, opts)
		},
		Detect: ethornell.Detect,
	},
	"json": {
		Name:      "json",
		Extension: textfile.Extension,
		New: func(*script.Run, binfmt.Options) script.Codec {
			return textfile.New()
		},
	},
}

// Lookup returns the format registered under name.
func Lookup(name string) (Format, error) {
	f, ok := formats[strings.ToLower(name)]
	if !ok {
		return Format{}, fmt.Errorf("%w: format %q (known: %s)", script.ErrUnsupportedFormat, name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// ForExtension returns the format whose extension matches ext. Formats
// without an extension are only reachable by name or detection.
func ForExtension(ext string) (Format, error) {
	if ext != "" {
		for _, name := range Names() {
			if f := formats[name]; f.Extension != "" && strings.EqualFold(f.Extension, ext) {
				return f, nil
			}
		}
	}
	return Format{}, fmt.Errorf("%w: extension %q", script.ErrUnsupportedFormat, ext)
}

// Detect returns the first binary format whose signature matches data.
func Detect(data []byte) (Format, error) {
	for _, name := range Names() {
		if f := formats[name]; f.Detect != nil && f.Detect(data) {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: unrecognised signature", script.ErrUnsupportedFormat)
}

// Names lists registered formats in sorted order.
func Names() []string {
	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
