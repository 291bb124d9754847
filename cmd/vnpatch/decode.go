package main

import (
	"fmt"
	"os"
	"path"

	"github.com/apex/log"

	"vnpatch/internal/binfmt"
	"vnpatch/internal/callgraph"
	"vnpatch/internal/collection"
	"vnpatch/internal/ethornell"
	"vnpatch/internal/script"
)

// decoded pairs a script name with its traced decode.
type decoded struct {
	name string
	*ethornell.Decoded
}

// decodeAll runs a traced decode over every script at p. Files without a
// script signature are skipped; decode failures are logged and skipped.
func (a *app) decodeAll(p string) ([]decoded, error) {
	run, err := script.OpenRun(a.tunnelPath("", p), "")
	if err != nil {
		return nil, err
	}
	c, err := collection.Open(p, "", func() (script.Codec, error) { return nil, script.ErrNotSupported })
	if err != nil {
		return nil, err
	}
	names, err := c.Scripts()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", script.ErrNotFound, p)
	}

	opts := a.cfg.DecodeOptions()
	opts.Trace = true
	fb := c.(script.FileBacked)

	var out []decoded
	for _, name := range names {
		data, err := os.ReadFile(fb.Path(name))
		if err != nil {
			return nil, err
		}
		if !ethornell.Detect(data) {
			log.WithField("script", name).Debug("no script signature, skipped")
			continue
		}
		d, err := ethornell.Disassemble(data, run.Tunnel, opts)
		if err != nil {
			log.WithField("script", name).WithError(err).Warn("decode failed, skipped")
			continue
		}
		for _, diag := range d.Diags {
			log.WithField("script", name).Debug(diag.String())
		}
		out = append(out, decoded{name: name, Decoded: d})
	}
	return out, nil
}

// info builds the graph input for one script.
func (d decoded) info() callgraph.ScriptInfo {
	return callgraph.ScriptInfo{
		Name:       d.name,
		Spec:       ethornell.V1,
		Insts:      d.Insts,
		CodeOffset: d.CodeOffset,
		Calls:      d.Calls(),
		Refs:       d.Refs,
		Resolve:    d.Resolver(),
		Imports:    d.Header.Referenced,
	}
}

// summary is the per-script entry of the dump index.
type summary struct {
	Name       string         `json:"name"`
	Version    string         `json:"version"`
	CodeOffset int            `json:"code_offset"`
	CodeEnd    int            `json:"code_end"`
	Steps      int            `json:"steps"`
	Referenced []string       `json:"referenced,omitempty"`
	Labels     []label        `json:"labels,omitempty"`
	Refs       map[string]int `json:"refs"`
	Diags      []binfmt.Diag  `json:"diags,omitempty"`
}

type label struct {
	Name    string `json:"name"`
	Address int    `json:"address"`
}

func (d decoded) summary() summary {
	s := summary{
		Name:       d.name,
		Version:    d.Header.Version.Original(),
		CodeOffset: d.CodeOffset,
		CodeEnd:    d.CodeEnd,
		Steps:      d.Steps,
		Referenced: d.Header.Referenced,
		Refs:       make(map[string]int),
		Diags:      d.Diags,
	}
	for _, l := range d.Header.Labels {
		s.Labels = append(s.Labels, label{Name: l.Name, Address: l.Address})
	}
	for _, r := range d.Refs {
		s.Refs[r.Kind.String()]++
	}
	return s
}

// fileName maps a slash-separated script name to an output file name.
func fileName(name, ext string) string {
	return path.Clean(name) + ext
}
