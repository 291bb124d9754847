package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"vnpatch/internal/callgraph"
	"vnpatch/internal/output"
	report "vnpatch/internal/render"
	"vnpatch/internal/script"
)

func newGraphCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "graph <scripts>",
		Short: "Write control-flow and call graphs as DOT",
		Long: `Graph writes callgraph.dot, linking each script to the user functions it
calls and the scripts its header references, one cfg/<name>.dot per
script with more than one basic block, and an index.html summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.graph(cmd.OutOrStdout(), args[0], outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory for DOT files")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) graph(w io.Writer, path, outDir string) error {
	scripts, err := a.decodeAll(path)
	if err != nil {
		return err
	}

	infos := make([]callgraph.ScriptInfo, 0, len(scripts))
	rep := report.Report{Title: filepath.Base(filepath.Clean(path))}
	cfgCount := 0
	for _, d := range scripts {
		info := d.info()
		infos = append(infos, info)

		f, nblocks := callgraph.BuildScriptCFG(info)
		rep.Scripts = append(rep.Scripts, d.stats(len(info.Calls), nblocks))
		if nblocks < 2 {
			continue
		}
		dot := render.DOTCFG(&lattice.CFGGraph{Funcs: []*lattice.FuncCFG{f}}, d.name)
		dotPath := filepath.Join(outDir, "cfg", report.SafeName(d.name)+".dot")
		if err := output.WriteText(dotPath, dot); err != nil {
			return fmt.Errorf("write cfg dot %s: %w", d.name, err)
		}
		cfgCount++
	}

	cg := callgraph.BuildCallGraph(infos)
	cgPath := filepath.Join(outDir, "callgraph.dot")
	if err := output.WriteText(cgPath, render.DOT(cg, "callgraph")); err != nil {
		return fmt.Errorf("write callgraph.dot: %w", err)
	}
	fmt.Fprintf(w, "wrote %s (%d nodes, %d edges)\n", cgPath, len(cg.Nodes), len(cg.Edges))
	fmt.Fprintf(w, "wrote %d CFG DOTs to %s\n", cfgCount, filepath.Join(outDir, "cfg"))

	rep.Edges = len(cg.Edges)
	rep.CFGCount = cfgCount
	indexPath := filepath.Join(outDir, "index.html")
	f, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}
	defer f.Close()
	report.WriteIndexHTML(f, rep)
	fmt.Fprintf(w, "wrote %s\n", indexPath)
	return nil
}

// stats counts the script's text references by kind.
func (d decoded) stats(calls, blocks int) report.ScriptStats {
	s := report.ScriptStats{Name: d.name, Calls: calls, Blocks: blocks, Diags: len(d.Diags)}
	for _, r := range d.Refs {
		switch r.Kind {
		case script.CharacterName:
			s.Names++
		case script.Message:
			s.Messages++
			if s.First == "" {
				s.First, _ = d.Resolve(r.Address)
			}
		default:
			s.Internal++
		}
	}
	return s
}
